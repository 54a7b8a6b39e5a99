package filters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/adshield/internal/adblock/domain"
)

func TestDecodeConfig(t *testing.T) {
	cfg, err := decodeConfig([]byte(`{"version":"4","networkPatterns":["a"],"domSelectors":[],"videoAdIndicators":[],"skipButtonSelectors":[],"extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, "4", cfg.Version)
	assert.Equal(t, []string{}, cfg.AdContainerSelectors)
	assert.True(t, cfg.LastUpdated.IsZero())

	_, err = decodeConfig([]byte(`{"version":"","networkPatterns":[],"domSelectors":[],"videoAdIndicators":[],"skipButtonSelectors":[]}`))
	assert.ErrorIs(t, err, domain.ErrInvalidFilterConfig)

	_, err = decodeConfig([]byte(`[]`))
	assert.ErrorIs(t, err, domain.ErrInvalidFilterConfig)

	_, err = decodeConfig([]byte(`{"version":"4","networkPatterns":[1],"domSelectors":[],"videoAdIndicators":[],"skipButtonSelectors":[]}`))
	assert.ErrorIs(t, err, domain.ErrInvalidFilterConfig)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02T03:04:05.5+02:00", time.Date(2025, 1, 2, 1, 4, 5, 500000000, time.UTC)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTimestamp(tt.in)), "got %v", parseTimestamp(tt.in))
		})
	}
}
