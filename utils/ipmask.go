package utils

import (
	"encoding/hex"
	"net"
	"strings"
)

// FallbackIP is recorded when the client address cannot be determined.
const FallbackIP = "0.0.0.0"

// MaskIP hides the host part of an address for public display. IPv4 keeps
// the first two octets, IPv6 the first four groups. Anything else is returned unchanged.
func MaskIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if !strings.Contains(ip, ":") {
		parts := strings.Split(ip, ".")
		if len(parts) != 4 {
			return ip
		}
		parts[2], parts[3] = "**", "**"
		return strings.Join(parts, ".")
	}

	full := hex.EncodeToString(parsed.To16())
	groups := make([]string, 8)
	for i := range groups {
		if i >= 4 {
			groups[i] = "****"
			continue
		}
		groups[i] = full[i*4 : i*4+4]
	}
	return strings.Join(groups, ":")
}

// NormalizeClientIP returns ip when it parses, FallbackIP otherwise.
func NormalizeClientIP(ip string) string {
	if net.ParseIP(strings.TrimSpace(ip)) == nil {
		return FallbackIP
	}
	return strings.TrimSpace(ip)
}
