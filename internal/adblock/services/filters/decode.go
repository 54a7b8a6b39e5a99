package filters

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/haukened/adshield/internal/adblock/domain"
)

// remoteConfig mirrors the remote JSON schema. Pointer fields distinguish a
// missing or null field from an empty one.
type remoteConfig struct {
	Version              *string   `json:"version"`
	LastUpdated          *string   `json:"lastUpdated"`
	NetworkPatterns      *[]string `json:"networkPatterns"`
	DomSelectors         *[]string `json:"domSelectors"`
	VideoAdIndicators    *[]string `json:"videoAdIndicators"`
	SkipButtonSelectors  *[]string `json:"skipButtonSelectors"`
	AdContainerSelectors *[]string `json:"adContainerSelectors"`
}

// decodeConfig parses and validates a remote config. The version and the
// four required lists must be present with the right JSON types;
// adContainerSelectors is optional and lastUpdated is parsed best-effort.
func decodeConfig(data []byte) (*domain.FilterConfig, error) {
	var rc remoteConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilterConfig, err)
	}

	if rc.Version == nil {
		return nil, fmt.Errorf("%w: missing version", domain.ErrInvalidFilterConfig)
	}
	required := []struct {
		name string
		list *[]string
	}{
		{"networkPatterns", rc.NetworkPatterns},
		{"domSelectors", rc.DomSelectors},
		{"videoAdIndicators", rc.VideoAdIndicators},
		{"skipButtonSelectors", rc.SkipButtonSelectors},
	}
	for _, r := range required {
		if r.list == nil {
			return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidFilterConfig, r.name)
		}
	}

	cfg := &domain.FilterConfig{
		Version:             *rc.Version,
		NetworkPatterns:     *rc.NetworkPatterns,
		DomSelectors:        *rc.DomSelectors,
		VideoAdIndicators:   *rc.VideoAdIndicators,
		SkipButtonSelectors: *rc.SkipButtonSelectors,
	}
	if rc.AdContainerSelectors != nil {
		cfg.AdContainerSelectors = *rc.AdContainerSelectors
	} else {
		cfg.AdContainerSelectors = []string{}
	}
	if rc.LastUpdated != nil {
		cfg.LastUpdated = parseTimestamp(*rc.LastUpdated)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseTimestamp accepts RFC 3339 with or without a time part. Anything else
// yields the zero time.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
