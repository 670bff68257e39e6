package server_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpletcp/responder/config"
	"github.com/simpletcp/responder/server"
)

func TestNewDispatchesOnKind(t *testing.T) {
	t.Parallel()

	echoInst, err := server.New(config.ServerSpec{Kind: config.KindEcho, Port: 9000}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, config.KindEcho, echoInst.Kind())
	assert.Equal(t, config.DefaultBindAddress, echoInst.BindAddress())
	assert.Equal(t, 9000, echoInst.Port())
	assert.False(t, echoInst.Running())

	webInst, err := server.New(config.ServerSpec{Kind: config.KindWeb, Port: 9001, Content: "hi"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, config.KindWeb, webInst.Kind())
}

func TestNewUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := server.New(config.ServerSpec{Kind: "ftp", Port: 9000}, testLogger())
	require.ErrorIs(t, err, server.ErrUnknownKind)
}

func TestNewRejectsInvalidSpecs(t *testing.T) {
	t.Parallel()

	_, err := server.New(config.ServerSpec{Kind: config.KindEcho, Port: 0}, testLogger())
	require.Error(t, err)

	_, err = server.New(config.ServerSpec{Kind: config.KindEcho, Port: 70000}, testLogger())
	require.Error(t, err)

	_, err = server.New(config.ServerSpec{Kind: config.KindWeb, Port: 9000}, testLogger())
	require.ErrorIs(t, err, config.ErrMissingContent)
}
