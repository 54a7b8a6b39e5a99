package classifier

import (
	"strings"

	"github.com/haukened/adshield/internal/adblock/common/utils"
	"github.com/haukened/adshield/internal/adblock/domain"
)

// isVideoHost reports whether host is one of the video site's domains or a
// subdomain of one.
func isVideoHost(host string) bool {
	for _, v := range videoHosts {
		if host == v || strings.HasSuffix(host, "."+v) {
			return true
		}
	}
	return false
}

// checkVideo runs the video-host sub-check. ok is false when the URL is not
// on a video host, or is on one but neither an ad nor a video segment, in
// which case classification continues with the general rules.
func checkVideo(host, rawURL string) (d domain.Decision, ok bool) {
	if !isVideoHost(host) {
		return domain.Decision{}, false
	}
	path, query := utils.SplitPathQuery(rawURL)
	if query != "" && videoAdQuery.MatchString(query) {
		return domain.BlockAs(domain.CategoryYouTube), true
	}
	lowerPath := strings.ToLower(path)
	for _, p := range videoAdPaths {
		if strings.HasPrefix(lowerPath, p) {
			return domain.BlockAs(domain.CategoryYouTube), true
		}
	}
	if strings.HasPrefix(lowerPath, videoContentPath) {
		return domain.Allow(), true
	}
	return domain.Decision{}, false
}
