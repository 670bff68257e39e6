package responder_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpletcp/responder"
)

func TestActiveIPAddresses(t *testing.T) {
	t.Parallel()

	ips := responder.ActiveIPAddresses()

	seen := make(map[string]struct{})
	for _, s := range ips {
		ip := net.ParseIP(s)
		require.NotNil(t, ip, "invalid address %q", s)
		assert.NotNil(t, ip.To4(), "%q is not IPv4", s)
		assert.False(t, ip.IsLoopback(), "%q is a loopback address", s)

		_, dup := seen[s]
		assert.False(t, dup, "%q listed twice", s)
		seen[s] = struct{}{}
	}
}
