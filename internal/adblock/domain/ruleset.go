package domain

// DomainSet is a read-only set of lowercase domains.
type DomainSet interface {
	Contains(name string) bool
	Len() int
}

// Ruleset is the data the filter manager pushes to the classifier whenever a
// source changes. The classifier compiles it once and swaps it in atomically.
type Ruleset struct {
	// Version identifies the curated config version the ruleset was built from.
	Version string
	// Patterns are the merged network patterns, curated first.
	Patterns []string
	// Hosts is the hosts-file snapshot; nil or empty disables the hosts check.
	Hosts DomainSet
}

// UpdateResult is returned by a forced refresh.
type UpdateResult struct {
	Success bool   `json:"success"`
	Version string `json:"version"`
}
