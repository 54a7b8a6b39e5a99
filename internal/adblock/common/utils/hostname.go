package utils

import "strings"

// ExtractHostname returns the lowercase host portion of a URL using a plain
// string scan instead of net/url. It runs on every intercepted request, so it
// trades full RFC 3986 parsing for zero allocations in the common case.
//
// Edge cases:
//   - no "://" separator (relative or malformed input): returns ""
//   - no path after the authority ("https://a.com"): the whole remainder is the host
//   - the authority also ends at '?' or '#' ("https://a.com?x=1" -> "a.com")
//   - userinfo is dropped ("https://u:p@a.com" -> "a.com")
//   - a port is dropped, bracketed IPv6 literals are unwrapped ("[::1]:80" -> "::1")
func ExtractHostname(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return ""
	}
	rest := rawURL[i+3:]

	end := strings.IndexAny(rest, "/?#")
	if end >= 0 {
		rest = rest[:end]
	}
	if at := strings.LastIndexByte(rest, '@'); at >= 0 {
		rest = rest[at+1:]
	}
	if rest == "" {
		return ""
	}

	if rest[0] == '[' {
		closeIdx := strings.IndexByte(rest, ']')
		if closeIdx < 0 {
			return ""
		}
		return strings.ToLower(rest[1:closeIdx])
	}
	if colon := strings.IndexByte(rest, ':'); colon >= 0 {
		rest = rest[:colon]
	}
	return strings.ToLower(rest)
}

// IsHTTPURL reports whether the URL uses the http or https scheme
// (case-insensitive).
func IsHTTPURL(rawURL string) bool {
	return hasPrefixFold(rawURL, "http://") || hasPrefixFold(rawURL, "https://")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// SplitPathQuery returns the path and the raw query (without '?') of a URL
// using the same scan as ExtractHostname. The fragment is dropped. Input
// without "://" yields empty strings.
func SplitPathQuery(rawURL string) (path, query string) {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return "", ""
	}
	rest := rawURL[i+3:]
	if h := strings.IndexByte(rest, '#'); h >= 0 {
		rest = rest[:h]
	}
	end := strings.IndexAny(rest, "/?")
	if end < 0 {
		return "", ""
	}
	rest = rest[end:]
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		return rest[:q], rest[q+1:]
	}
	return rest, ""
}
