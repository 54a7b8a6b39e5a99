// Package stripper removes tracking parameters from top-level navigation URLs.
//
// The query string is edited as text: parameters that are kept are copied
// byte for byte, so their order, values and encoding are preserved, and the
// path and fragment are never touched.
package stripper

import (
	"net/url"
	"strings"

	"github.com/haukened/adshield/internal/adblock/common/utils"
	"github.com/haukened/adshield/internal/adblock/domain"
)

// trackingParams are removed by exact (case-insensitive) name.
var trackingParams = map[string]struct{}{
	"fbclid":      {},
	"gclid":       {},
	"gclsrc":      {},
	"dclid":       {},
	"gbraid":      {},
	"wbraid":      {},
	"msclkid":     {},
	"mc_cid":      {},
	"mc_eid":      {},
	"yclid":       {},
	"_ga":         {},
	"_gl":         {},
	"igshid":      {},
	"twclid":      {},
	"ttclid":      {},
	"li_fat_id":   {},
	"mkt_tok":     {},
	"_hsenc":      {},
	"_hsmi":       {},
	"oly_anon_id": {},
	"oly_enc_id":  {},
	"vero_id":     {},
	"wickedid":    {},
	"rb_clickid":  {},
	"s_cid":       {},
	"ef_id":       {},
	"srsltid":     {},
}

// campaignPrefix removes every parameter whose name starts with it.
const campaignPrefix = "utm_"

// IsTrackingParam reports whether a query parameter name is stripped.
func IsTrackingParam(name string) bool {
	n := strings.ToLower(name)
	if unescaped, err := url.QueryUnescape(n); err == nil {
		n = unescaped
	}
	if strings.HasPrefix(n, campaignPrefix) {
		return true
	}
	_, ok := trackingParams[n]
	return ok
}

// Strip returns rawURL without tracking parameters. ok is false when nothing
// was removed, in which case the caller must not redirect. Only http(s) URLs
// are rewritten. Strip is idempotent: stripping its output reports false.
func Strip(rawURL string) (cleaned string, ok bool) {
	if !utils.IsHTTPURL(rawURL) {
		return "", false
	}

	q := strings.IndexByte(rawURL, '?')
	if q < 0 {
		return "", false
	}
	hash := strings.IndexByte(rawURL, '#')
	if hash >= 0 && hash < q {
		return "", false
	}

	base := rawURL[:q]
	query := rawURL[q+1:]
	fragment := ""
	if hash >= 0 {
		query = rawURL[q+1 : hash]
		fragment = rawURL[hash:]
	}

	segments := strings.Split(query, "&")
	kept := segments[:0:0]
	removed := false
	nonEmpty := 0
	for _, seg := range segments {
		name, _, _ := strings.Cut(seg, "=")
		if name != "" && IsTrackingParam(name) {
			removed = true
			continue
		}
		if seg != "" {
			nonEmpty++
		}
		kept = append(kept, seg)
	}
	if !removed {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(rawURL))
	b.WriteString(base)
	if nonEmpty > 0 {
		b.WriteByte('?')
		b.WriteString(strings.Join(kept, "&"))
	}
	b.WriteString(fragment)
	return b.String(), true
}

// StripNavigation applies Strip to main-frame navigations only. Sub-resource
// requests are left alone because APIs may depend on these parameters.
func StripNavigation(rawURL string, kind domain.ResourceKind) (string, bool) {
	if kind != domain.ResourceMainFrame {
		return "", false
	}
	return Strip(rawURL)
}
