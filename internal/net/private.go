package net

import (
	"net"
	"strings"
)

// IsPrivateNetwork returns true if the host is detected as a LAN address.
// Webhook targets on private networks get a lenient TLS client, since LAN
// services rarely carry publicly verifiable certificates.
func IsPrivateNetwork(host string) bool {
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		h = host
	}
	h = strings.ToLower(h)

	if h == "localhost" || strings.HasSuffix(h, ".local") || strings.HasSuffix(h, ".lan") {
		return true
	}

	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}
	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 10:
			return true
		case ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31:
			return true
		case ip4[0] == 192 && ip4[1] == 168:
			return true
		case ip4[0] == 127:
			return true
		}
		return false
	}

	// ULA fc00::/7, link-local fe80::/10, loopback ::1.
	if ip[0] >= 0xfc && ip[0] <= 0xfd {
		return true
	}
	if ip[0] == 0xfe && (ip[1]&0xc0) == 0x80 {
		return true
	}
	return ip.Equal(net.IPv6loopback)
}
