package domain

import "strings"

// ResourceKind is the kind of resource a request loads, as reported by the
// host's interception hook.
type ResourceKind uint8

const (
	ResourceOther ResourceKind = iota
	ResourceMainFrame
	ResourceSubFrame
	ResourceScript
	ResourceImage
	ResourceStylesheet
	ResourceXHR
	ResourceMedia
	ResourceFont
	ResourcePing
	ResourceWebSocket
)

var resourceKindNames = [...]string{
	ResourceOther:      "other",
	ResourceMainFrame:  "mainFrame",
	ResourceSubFrame:   "subFrame",
	ResourceScript:     "script",
	ResourceImage:      "image",
	ResourceStylesheet: "stylesheet",
	ResourceXHR:        "xhr",
	ResourceMedia:      "media",
	ResourceFont:       "font",
	ResourcePing:       "ping",
	ResourceWebSocket:  "webSocket",
}

// String returns the host-facing name of the kind.
func (k ResourceKind) String() string {
	if int(k) < len(resourceKindNames) {
		return resourceKindNames[k]
	}
	return "other"
}

// ParseResourceKind maps a host resource type name onto a ResourceKind.
// Matching ignores case, '_' and '-' so "mainFrame", "main_frame" and
// "MAIN-FRAME" are equivalent. Unknown names map to ResourceOther.
func ParseResourceKind(s string) ResourceKind {
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for i, name := range resourceKindNames {
		if strings.ToLower(name) == norm {
			return ResourceKind(i)
		}
	}
	switch norm {
	case "xmlhttprequest", "fetch":
		return ResourceXHR
	case "document":
		return ResourceMainFrame
	}
	return ResourceOther
}

// MarshalText implements encoding.TextMarshaler.
func (k ResourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ResourceKind) UnmarshalText(b []byte) error {
	*k = ParseResourceKind(string(b))
	return nil
}

// Request is what the host's interception hook hands to the classifier.
// Referrer and Kind are optional.
type Request struct {
	URL      string       `json:"url"`
	Referrer string       `json:"referrer,omitempty"`
	Kind     ResourceKind `json:"resourceKind"`
}
