package suppress

import (
	"strings"

	"github.com/haukened/adshield/internal/adblock/domain"
)

// StyleID identifies the injected stylesheet so it is added once per page.
const StyleID = "adshield-styles"

const hideDeclarations = `{
  display: none !important;
  visibility: hidden !important;
  opacity: 0 !important;
  pointer-events: none !important;
  height: 0 !important;
  min-height: 0 !important;
  max-height: 0 !important;
  overflow: hidden !important;
}
`

// fixedRules hide overlays, badges and promos that are not worth shipping in
// the remote config.
const fixedRules = `.ytp-ad-overlay-container,
.ytp-ad-text-overlay,
.ytp-ad-overlay-slot,
.video-ads {
  display: none !important;
  opacity: 0 !important;
}
ytd-mealbar-promo-renderer,
yt-mealbar-promo-renderer,
tp-yt-paper-dialog.ytd-mealbar-promo-renderer {
  display: none !important;
}
.ytp-ad-preview-container,
.ytp-ad-preview-text,
.ytp-ad-simple-ad-badge,
.ytp-ad-duration-remaining {
  display: none !important;
}
ytd-rich-item-renderer:has(ytd-ad-slot-renderer),
ytd-rich-section-renderer:has(ytd-ad-slot-renderer),
ytd-item-section-renderer:has(ytd-ad-slot-renderer) {
  display: none !important;
}
.html5-video-player.ad-showing .html5-video-container,
.html5-video-player.ad-interrupting .html5-video-container {
  z-index: 1 !important;
}
.ytp-ad-skip-ad-slot,
.ytp-ad-feedback-dialog-renderer {
  display: none !important;
}
ytd-reel-video-renderer[is-ad="true"],
ytd-reel-player-overlay-renderer[is-ad] {
  display: none !important;
}
`

// BuildStylesheet returns the CSS injected once per page.
func BuildStylesheet(p domain.Payload) string {
	var b strings.Builder
	if sel := sanitizeSelectors(p.HideSelectors()); len(sel) > 0 {
		b.WriteString(strings.Join(sel, ",\n"))
		b.WriteByte(' ')
		b.WriteString(hideDeclarations)
	}
	b.WriteString(fixedRules)
	return b.String()
}

// QuickStylesheet returns a minimal hiding rule for selectors, for hosts that
// want to inject CSS before the controller starts.
func QuickStylesheet(selectors []string) string {
	sel := sanitizeSelectors(selectors)
	if len(sel) == 0 {
		return ""
	}
	return strings.Join(sel, ",\n") + ` {
  display: none !important;
  visibility: hidden !important;
  height: 0 !important;
  opacity: 0 !important;
  pointer-events: none !important;
}
`
}

// sanitizeSelectors drops entries that would break out of the rule block.
func sanitizeSelectors(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || strings.ContainsAny(s, "{};") || strings.Contains(s, "</") {
			continue
		}
		out = append(out, s)
	}
	return out
}
