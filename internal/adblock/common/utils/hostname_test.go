package utils

import "testing"

func TestExtractHostname(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple https", "https://example.com/path", "example.com"},
		{"no path", "https://example.com", "example.com"},
		{"trailing slash", "https://example.com/", "example.com"},
		{"uppercase host", "https://Example.COM/x", "example.com"},
		{"port", "https://example.com:8443/x", "example.com"},
		{"userinfo", "https://user:pw@example.com/", "example.com"},
		{"query directly after host", "https://example.com?x=1", "example.com"},
		{"fragment directly after host", "https://example.com#top", "example.com"},
		{"ipv6 literal", "http://[::1]:8080/", "::1"},
		{"unterminated ipv6", "http://[::1/", ""},
		{"subdomain", "https://r3---sn-abc.googlevideo.com/videoplayback?x", "r3---sn-abc.googlevideo.com"},
		{"no scheme", "example.com/path", ""},
		{"empty", "", ""},
		{"scheme only", "https://", ""},
		{"userinfo only", "https://user@/", ""},
		{"other scheme", "ws://socket.example.org/feed", "socket.example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractHostname(tt.input); got != tt.want {
				t.Errorf("ExtractHostname(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://a.com", true},
		{"https://a.com", true},
		{"HTTPS://a.com", true},
		{"ftp://a.com", false},
		{"chrome-extension://abc/x.js", false},
		{"data:text/plain,hi", false},
		{"http:/", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHTTPURL(tt.in); got != tt.want {
			t.Errorf("IsHTTPURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitPathQuery(t *testing.T) {
	tests := []struct {
		in        string
		wantPath  string
		wantQuery string
	}{
		{"https://a.com/videoplayback?id=1&oad=1", "/videoplayback", "id=1&oad=1"},
		{"https://a.com/p/q#frag?x", "/p/q", ""},
		{"https://a.com?x=1", "", "x=1"},
		{"https://a.com", "", ""},
		{"https://a.com/", "/", ""},
		{"no-scheme/path?q", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path, query := SplitPathQuery(tt.in)
			if path != tt.wantPath || query != tt.wantQuery {
				t.Errorf("SplitPathQuery(%q) = (%q, %q), want (%q, %q)", tt.in, path, query, tt.wantPath, tt.wantQuery)
			}
		})
	}
}

func BenchmarkExtractHostname(b *testing.B) {
	u := "https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js?client=ca-pub-1"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ExtractHostname(u)
	}
}
