// Package privacy contains helpers for redacting personal data before it
// reaches logs or audit sinks.
package privacy

import (
	"net"
	"strings"
)

// AnonymizeIP zeroes the host portion of an IP address so origins can be
// logged without identifying a single caller. IPv4 keeps a /24, IPv6 a /48.
// Unparseable input is redacted entirely.
func AnonymizeIP(ip string) string {
	if ip == "" {
		return ""
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "redacted"
	}
	if v4 := parsed.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}
	masked := parsed.Mask(net.CIDRMask(48, 128))
	return masked.String()
}
