package parser

import (
	"net"
	"strings"
)

// CanonicalIP returns the canonical text form of ip so the same address
// always compares equal (lower-case IPv6, compressed zeros, IPv4-mapped
// addresses as IPv4). Unparseable input is returned trimmed.
func CanonicalIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if parsed := net.ParseIP(ip); parsed != nil {
		return parsed.String()
	}
	return ip
}
