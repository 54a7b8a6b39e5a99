package parsers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/adshield/internal/adblock/common/log"
)

func TestParseEasyList_Rules(t *testing.T) {
	input := `[Adblock Plus 2.0]
! Title: EasyList
||ads.example.com^
||tracker.example.net^$third-party
||cdn.example.org/banners/^
|https://example.com/ad.js|
/adframe.
-ad-banner^$image
example.com##.ad-box
example.com#@#.ad-box
@@||good.example.com^
@@/allowed/

$script
`
	got, err := ParseEasyList(strings.NewReader(input), 0, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ads.example.com",
		"tracker.example.net",
		"cdn.example.org",
		"https://example.com/ad.js",
		"/adframe.",
		"-ad-banner",
	}, got)
}

func TestParseEasyList_NeverEmitsExceptions(t *testing.T) {
	input := "@@||a.example.com^\n@@/x/\n||b.example.com^\n"
	got, err := ParseEasyList(strings.NewReader(input), 0, log.NewNoopLogger())
	require.NoError(t, err)
	for _, p := range got {
		assert.False(t, strings.HasPrefix(p, "@@"), p)
		assert.NotContains(t, p, "a.example.com")
	}
	assert.Equal(t, []string{"b.example.com"}, got)
}

func TestParseEasyList_Cap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "||ads%d.example.com^\n", i)
	}
	got, err := ParseEasyList(strings.NewReader(b.String()), 25, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Len(t, got, 25)
	assert.Equal(t, "ads0.example.com", got[0])
}

func TestParseEasyList_OversizedLineSkipped(t *testing.T) {
	input := "||before.example^\n/" + strings.Repeat("x", maxLineBytes+1) + "/\n||after.example^\n"
	got, err := ParseEasyList(strings.NewReader(input), 0, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"before.example", "after.example"}, got)
}

func TestEasyListPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"||a.com^", "a.com"},
		{"||a.com/path^", "a.com"},
		{"||a.com^$popup", "a.com"},
		{"|http://a.com|", "http://a.com"},
		{"||", ""},
		{"plain", "plain"},
		{"^", ""},
		{"$third-party", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, easyListPattern(tt.in))
		})
	}
}
