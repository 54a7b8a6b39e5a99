package patterns

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_LiteralsAreEscaped(t *testing.T) {
	m, rep := Compile([]string{"/api/stats/qoe?ads", "a.b(c)[d]+"}, Limits{})
	require.NotNil(t, m)
	assert.Equal(t, 2, rep.Accepted)

	assert.True(t, m.MatchString("https://www.youtube.com/api/stats/qoe?ads=1"))
	assert.False(t, m.MatchString("https://www.youtube.com/api/stats/qoeXads"), "'?' must be literal")
	assert.True(t, m.MatchString("x a.b(c)[d]+ y"))
	assert.False(t, m.MatchString("axb(c)[d]+"), "'.' must be literal")
}

func TestCompile_Wildcards(t *testing.T) {
	m, _ := Compile([]string{"googlevideo.com/videoplayback*oad=", "/get_video_info?.*?ad_"}, Limits{})
	require.NotNil(t, m)
	assert.Equal(t, []string{"googlevideo.com/videoplayback*oad=", "/get_video_info?*ad_"}, m.accepted)

	assert.True(t, m.MatchString("https://r1.googlevideo.com/videoplayback?id=1&oad=1"))
	assert.False(t, m.MatchString("https://r1.googlevideo.com/videoplayback?id=1"))
	assert.True(t, m.MatchString("https://www.youtube.com/get_video_info?video_id=x&ad_type=1"))
}

func TestCompile_CaseInsensitive(t *testing.T) {
	m, _ := Compile([]string{"DoubleClick.net"}, Limits{})
	assert.True(t, m.MatchString("https://AD.doubleclick.NET/x"))
}

func TestCompile_RejectsAndDedupes(t *testing.T) {
	input := []string{
		"",
		"   ",
		"ok.example.com",
		"OK.example.com",
		"*",
		"***",
		strings.Repeat("a", 513),
		"a*b*c*d*e*f*g*h*i*j",
		"bad\x00byte",
		"tab\there",
		"\xff\xfe",
		" padded.example.com ",
	}
	m, rep := Compile(input, Limits{})
	require.NotNil(t, m)
	assert.Equal(t, []string{"ok.example.com", "padded.example.com"}, m.accepted)
	assert.Equal(t, 2, rep.Accepted)
	assert.Equal(t, 2, rep.Empty)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 7, rep.Rejected)
}

func TestCompile_Cap(t *testing.T) {
	in := make([]string, 50)
	for i := range in {
		in[i] = fmt.Sprintf("host%d.example.com", i)
	}
	m, rep := Compile(in, Limits{MaxPatterns: 10})
	require.NotNil(t, m)
	assert.Equal(t, 10, m.Len())
	assert.Equal(t, 40, rep.Truncated)
	assert.True(t, m.MatchString("https://host9.example.com/"))
	assert.False(t, m.MatchString("https://host49.example.com/"))
}

func TestMatcher_NilNeverMatches(t *testing.T) {
	m, rep := Compile(nil, Limits{})
	assert.Nil(t, m)
	assert.Equal(t, 0, rep.Accepted)
	assert.False(t, m.MatchString("anything"))
	assert.Equal(t, 0, m.Len())
}

func TestCompile_DefaultSizedInput(t *testing.T) {
	in := make([]string, 20000)
	for i := range in {
		in[i] = fmt.Sprintf("ads%d.tracker-%d.example", i, i%97)
	}
	m, rep := Compile(in, DefaultLimits)
	require.NotNil(t, m)
	assert.Equal(t, 20000, rep.Accepted)
	assert.Equal(t, 20000, m.Len())
	assert.True(t, m.MatchString("https://ads19999.tracker-18.example/x"))
	assert.False(t, m.MatchString("https://www.example.org/"))
}

func FuzzCompile(f *testing.F) {
	for _, s := range []string{"doubleclick.net", "/pagead/", "a*b", ".*?", "(", "[a-", `\`, "$^|"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, p string) {
		m, _ := Compile([]string{p}, Limits{})
		if m == nil {
			return
		}
		accepted := m.accepted[0]
		if !m.MatchString(strings.ReplaceAll(accepted, "*", "")) {
			t.Fatalf("pattern %q does not match its own literal text", accepted)
		}
		if got, want := m.MatchString(accepted), naive([]string{accepted}).MatchString(accepted); got != want {
			t.Fatalf("pattern %q: indexed=%v alternation=%v", accepted, got, want)
		}
	})
}

// naive builds the single case-insensitive alternation the index replaces.
func naive(pats []string) *regexp.Regexp {
	parts := make([]string, len(pats))
	for i, p := range pats {
		segs := strings.Split(p, "*")
		for j, seg := range segs {
			segs[j] = regexp.QuoteMeta(seg)
		}
		parts[i] = strings.Join(segs, ".*?")
	}
	return regexp.MustCompile("(?i)(?:" + strings.Join(parts, "|") + ")")
}

// mixedPatterns resembles a real EasyList mix of hosts, wildcard paths,
// query markers and short path fragments.
func mixedPatterns(n int) []string {
	out := make([]string, 0, n)
	for i := 0; len(out) < n; i++ {
		switch i % 4 {
		case 0:
			out = append(out, fmt.Sprintf("adhost%d.example-network.com", i))
		case 1:
			out = append(out, fmt.Sprintf("/banner%d/*/img_", i))
		case 2:
			out = append(out, fmt.Sprintf("&adslot%d=", i))
		default:
			out = append(out, fmt.Sprintf("/a%d/", i))
		}
	}
	return out
}

func TestMatcher_AgreesWithAlternation(t *testing.T) {
	pats := append(mixedPatterns(600),
		"googlevideo.com/videoplayback*oad=",
		"/get_video_info?*ad_",
		"DoubleClick.net",
		"*tracker*",
		"x*y*z",
		"/pagead/",
	)
	m, rep := Compile(pats, Limits{})
	require.NotNil(t, m)
	require.Equal(t, len(pats), rep.Accepted)
	re := naive(pats)

	urls := []string{
		"https://www.wikipedia.org/wiki/Go_(programming_language)?x=1",
		"https://adhost0.example-network.com/x.js",
		"https://ADHOST404.EXAMPLE-NETWORK.COM/",
		"https://adhost1.example-network.com/",
		"https://cdn.example.com/banner1/2024/06/img_hero.png",
		"https://cdn.example.com/banner1/img_hero.png",
		"https://cdn.example.com/img_/banner1/",
		"https://ads.example.com/serve?zone=1&adslot2=top",
		"https://ads.example.com/serve?adslot2=top",
		"https://example.com/a3/x",
		"https://example.com/a33/x",
		"https://r3.googlevideo.com/videoplayback?id=1&oad=1",
		"https://r3.googlevideo.com/videoplayback?id=1",
		"https://www.youtube.com/get_video_info?video_id=1&ad_type=2",
		"https://stats.doubleclick.net/pixel",
		"https://example.org/my-tracker.js",
		"https://example.org/x/1/y/2/z",
		"https://example.org/z/y/x",
		"https://bad.example/",
		"https://www.google.com/pagead/conversion",
		"",
	}
	for _, u := range urls {
		assert.Equal(t, re.MatchString(u), m.MatchString(u), u)
	}
}

func TestMatcher_SharedStemsSpreadAcrossShortcuts(t *testing.T) {
	in := make([]string, 300)
	for i := range in {
		in[i] = fmt.Sprintf("tracker.example/pixel%d", i)
	}
	m, _ := Compile(in, Limits{})
	require.NotNil(t, m)
	longest := 0
	for _, idx := range m.shortcuts {
		longest = max(longest, len(idx))
	}
	assert.Less(t, longest, 10, "shortcuts should not pile onto the common stem")
	assert.True(t, m.MatchString("https://tracker.example/pixel299?x"))
	assert.False(t, m.MatchString("https://tracker.example/pixel"))
}

func TestMatcher_ShortPatternsAreUnindexed(t *testing.T) {
	m, _ := Compile([]string{"ad", "/x*y/", "longer-pattern"}, Limits{})
	require.NotNil(t, m)
	assert.Len(t, m.unindexed, 2)
	assert.True(t, m.MatchString("https://AD.example/"))
	assert.True(t, m.MatchString("https://example.com/x1/2y/"))
	assert.True(t, m.MatchString("https://example.com/longer-pattern"))
	assert.False(t, m.MatchString("https://example.com/"))
}

func BenchmarkMatcher_Miss(b *testing.B) {
	in := make([]string, 2500)
	for i := range in {
		in[i] = fmt.Sprintf("ads%d.example.com", i)
	}
	m, _ := Compile(in, DefaultLimits)
	url := "https://www.wikipedia.org/wiki/Go_(programming_language)?x=1"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MatchString(url)
	}
}

func BenchmarkMatcher_MixedMiss(b *testing.B) {
	m, _ := Compile(mixedPatterns(2520), DefaultLimits)
	url := "https://www.example-news-site.com/world/2024/06/12/some-long-article-slug-about-things.html?utm_campaign=x&ref=front&page=2"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if m.MatchString(url) {
			b.Fatal("unexpected match")
		}
	}
}
