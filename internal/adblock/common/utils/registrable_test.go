package utils

import "testing"

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"mobile subdomain", "m.youtube.com", "youtube.com"},
		{"apex", "youtube.com", "youtube.com"},
		{"trailing dot", "www.example.com.", "example.com"},
		{"upper case", "WWW.Example.COM", "example.com"},
		{"co.uk", "www.bbc.co.uk", "bbc.co.uk"},
		{"github.io", "user.github.io", "user.github.io"},
		{"single label fallback", "localhost", "localhost"},
		{"ipv4 literal", "192.168.1.1", "192.168.1.1"},
		{"ipv6 literal", "::1", "::1"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RegistrableDomain(tt.input); got != tt.want {
				t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLastLabels(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"a.b.c", 2, "b.c"},
		{"a.b.c", 1, "c"},
		{"a.b.c", 3, "a.b.c"},
		{"a.b.c", 5, "a.b.c"},
		{"c", 2, "c"},
		{"a.b", 0, ""},
	}
	for _, tt := range tests {
		if got := LastLabels(tt.in, tt.n); got != tt.want {
			t.Errorf("LastLabels(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestCanonicalHost(t *testing.T) {
	tests := []struct{ in, want string }{
		{" Example.COM. ", "example.com"},
		{"example.com..", "example.com"},
		{"", ""},
		{".", ""},
	}
	for _, tt := range tests {
		if got := CanonicalHost(tt.in); got != tt.want {
			t.Errorf("CanonicalHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
