package responder

import (
	"net"
)

// ActiveIPAddresses returns the host's non-loopback IPv4 addresses, primary
// interface first, for display next to wildcard-bound servers. Best effort:
// any failure yields a shorter (possibly empty) list, never an error.
func ActiveIPAddresses() []string {
	var ips []string
	seen := make(map[string]struct{})

	add := func(ip net.IP) {
		v4 := ip.To4()
		if v4 == nil || v4.IsLoopback() {
			return
		}
		s := v4.String()
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		ips = append(ips, s)
	}

	// Dialing UDP sends nothing; it just resolves the primary route.
	if conn, err := net.Dial("udp4", "8.8.8.8:80"); err == nil {
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			add(addr.IP)
		}
		conn.Close()
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}

	for _, addr := range addrs {
		switch a := addr.(type) {
		case *net.IPNet:
			add(a.IP)
		case *net.IPAddr:
			add(a.IP)
		}
	}

	return ips
}
