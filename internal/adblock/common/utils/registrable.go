package utils

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegistrableDomain returns the registrable domain (eTLD+1) of a hostname,
// e.g. "m.youtube.com" -> "youtube.com". When the public suffix list cannot
// answer (single label, unknown TLD, empty input) it falls back to the last
// two labels. IP literals are returned unchanged.
func RegistrableDomain(host string) string {
	host = CanonicalHost(host)
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return LastLabels(host, 2)
}

// LastLabels returns the last n dot-separated labels of name, or name itself
// when it has n labels or fewer.
func LastLabels(name string, n int) string {
	if n <= 0 {
		return ""
	}
	idx := len(name)
	for i := 0; i < n; i++ {
		j := strings.LastIndexByte(name[:idx], '.')
		if j < 0 {
			return name
		}
		idx = j
	}
	return name[idx+1:]
}

// CanonicalHost lowercases, trims whitespace and removes trailing dots.
func CanonicalHost(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}
