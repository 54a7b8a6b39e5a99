package domain

import (
	"fmt"
	"strings"
)

// Category classifies why a request was blocked.
type Category uint8

const (
	// CategoryNone is used for allowed requests.
	CategoryNone Category = iota
	// CategoryNetwork covers ad/tracking domains, hosts-list hits and dynamic patterns.
	CategoryNetwork
	// CategoryYouTube covers ad streams and ad endpoints on the video host.
	CategoryYouTube
	// CategoryTracking covers generic ad-serving and analytics path patterns.
	CategoryTracking
)

// Categories lists every blocking category, excluding CategoryNone.
var Categories = []Category{CategoryNetwork, CategoryYouTube, CategoryTracking}

// String returns a stable string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryNetwork:
		return "network"
	case CategoryYouTube:
		return "youtube"
	case CategoryTracking:
		return "tracking"
	default:
		return fmt.Sprintf("Category(%d)", c)
	}
}

// ParseCategory converts a string into a Category (case-insensitive).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return CategoryNone, nil
	case "network":
		return CategoryNetwork, nil
	case "youtube":
		return CategoryYouTube, nil
	case "tracking":
		return CategoryTracking, nil
	default:
		return 0, fmt.Errorf("unsupported category: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
