package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidFilterConfig is returned when a filter configuration fails validation.
var ErrInvalidFilterConfig = errors.New("invalid filter config")

// FilterConfig is the curated ad/video-ad configuration. It is replaced
// wholesale when a remote fetch yields a different Version and is never
// mutated field by field; callers that need to modify it work on a Clone.
type FilterConfig struct {
	Version              string    `json:"version"`
	LastUpdated          time.Time `json:"lastUpdated"`
	NetworkPatterns      []string  `json:"networkPatterns"`
	DomSelectors         []string  `json:"domSelectors"`
	VideoAdIndicators    []string  `json:"videoAdIndicators"`
	SkipButtonSelectors  []string  `json:"skipButtonSelectors"`
	AdContainerSelectors []string  `json:"adContainerSelectors"`
}

// Validate checks the invariants a config must satisfy before it is accepted.
func (c *FilterConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidFilterConfig)
	}
	if c.Version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidFilterConfig)
	}
	return nil
}

// Clone returns a deep copy of the config.
func (c *FilterConfig) Clone() *FilterConfig {
	if c == nil {
		return nil
	}
	return &FilterConfig{
		Version:              c.Version,
		LastUpdated:          c.LastUpdated,
		NetworkPatterns:      slices.Clone(c.NetworkPatterns),
		DomSelectors:         slices.Clone(c.DomSelectors),
		VideoAdIndicators:    slices.Clone(c.VideoAdIndicators),
		SkipButtonSelectors:  slices.Clone(c.SkipButtonSelectors),
		AdContainerSelectors: slices.Clone(c.AdContainerSelectors),
	}
}

// Payload returns the one-shot page injection payload derived from the config.
func (c *FilterConfig) Payload() Payload {
	return Payload{
		Version:              c.Version,
		DomSelectors:         slices.Clone(c.DomSelectors),
		VideoAdIndicators:    slices.Clone(c.VideoAdIndicators),
		SkipButtonSelectors:  slices.Clone(c.SkipButtonSelectors),
		AdContainerSelectors: slices.Clone(c.AdContainerSelectors),
	}
}

// DefaultFilterVersion is the version of the built-in fallback config.
const DefaultFilterVersion = "1.0.0"

// DefaultFilterConfig returns the built-in config used when no cached or
// remote config is available. A fresh copy is returned on every call.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		Version:     DefaultFilterVersion,
		LastUpdated: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		NetworkPatterns: []string{
			"/pagead/",
			"/ptracking/",
			"/api/stats/ads",
			"/api/stats/qoe?ads",
			"/get_video_info?*ad_",
			"googlevideo.com/videoplayback*oad=",
			"youtube.com/api/stats/atr",
			"youtube.com/pagead/",
			"youtube.com/ptracking",
			"youtube.com/get_midroll_",
			"doubleclick.net",
			"googleadservices.com",
			"googlesyndication.com",
			"youtube.com/error_204*ad",
			"s.youtube.com/api/stats/watchtime*ad",
			"www.youtube.com/pcs/activeview",
			"google-analytics.com",
			"googletagmanager.com",
			"facebook.net",
			"scorecardresearch.com",
		},
		DomSelectors: []string{
			".ytp-ad-module",
			".ytp-ad-overlay-container",
			".ytp-ad-text-overlay",
			".ytp-ad-overlay-slot",
			".ytp-ad-progress",
			".ytp-ad-progress-list",
			".ytp-ad-player-overlay",
			".ytp-ad-player-overlay-layout",
			".ytp-ad-action-interstitial",
			".ytp-ad-action-interstitial-background",
			".ytp-ad-image-overlay",
			"#player-ads",
			"#masthead-ad",
			"ytd-ad-slot-renderer",
			"ytd-banner-promo-renderer",
			"ytd-statement-banner-renderer",
			"ytd-in-feed-ad-layout-renderer",
			"ytd-display-ad-renderer",
			"ytd-promoted-sparkles-web-renderer",
			"ytd-promoted-video-renderer",
			"ytd-compact-promoted-video-renderer",
			"ytd-video-masthead-ad-v3-renderer",
			"ytd-primetime-promo-renderer",
			".ytd-mealbar-promo-renderer",
			".ytd-carousel-ad-renderer",
			"ytd-reel-player-overlay-renderer[is-ad]",
			"ytd-rich-item-renderer:has(ytd-ad-slot-renderer)",
			`ytd-engagement-panel-section-list-renderer[target-id="engagement-panel-ads"]`,
			".ytd-popup-container:has(ytd-survey-renderer)",
			"ytd-mealbar-promo-renderer",
			"yt-mealbar-promo-renderer",
			`tp-yt-paper-dialog:has([dialog-title*="Premium"])`,
			`tp-yt-paper-dialog:has([dialog-title*="YouTube TV"])`,
		},
		VideoAdIndicators: []string{
			".ad-showing",
			".ad-interrupting",
			`[class*="ad-showing"]`,
			".ytp-ad-player-overlay-instream-info",
		},
		SkipButtonSelectors: []string{
			".ytp-ad-skip-button",
			".ytp-ad-skip-button-modern",
			".ytp-skip-ad-button",
			".ytp-ad-skip-button-container button",
			"button.ytp-ad-skip-button",
			"button.ytp-ad-skip-button-modern",
			".ytp-ad-skip-button-slot button",
			".ytp-ad-skip-button-slot .ytp-ad-skip-button",
			`[class*="skip"] button`,
			".videoAdUiSkipButton",
			".ytp-ad-preview-container + button",
		},
		AdContainerSelectors: []string{
			".video-ads",
			".ytp-ad-module",
			"#movie_player.ad-showing .video-ads",
			".ytp-ad-player-overlay-layout",
		},
	}
}
