// Package patterns compiles untrusted network patterns into a single
// case-insensitive matcher.
//
// Every literal is matched as-is; the only metacharacter is '*' (and its
// legacy spelling ".*?"), which matches any run of characters. Patterns that
// are too long, too wildcard-heavy, contain control characters, invalid UTF-8
// or no literal text at all are rejected before anything is indexed.
//
// Accepted patterns are indexed by a fixed-length shortcut taken from their
// literal text. A lookup slides a window of that length over the URL and only
// verifies the patterns registered under the windows it sees, so the cost of
// a miss grows with the URL length rather than with the number of patterns.
package patterns

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits bound what Compile accepts.
type Limits struct {
	MaxLength    int
	MaxWildcards int
	MaxPatterns  int
}

// DefaultLimits are used when a zero Limits value is passed.
var DefaultLimits = Limits{
	MaxLength:    512,
	MaxWildcards: 8,
	MaxPatterns:  20000,
}

// legacyWildcard is the regex-flavoured wildcard found in older filter configs.
const legacyWildcard = ".*?"

// shortcutLength is the width of the index key. Patterns whose longest
// literal segment is shorter are checked on every lookup.
const shortcutLength = 5

// Report describes what happened to the input.
type Report struct {
	Accepted   int
	Empty      int
	Rejected   int
	Duplicates int
	Truncated  int
}

// rule is one accepted pattern split on '*' into lowercase literal segments.
type rule struct {
	segments []string
}

// match reports whether every segment occurs in s, in order and without
// overlapping. s must already be lowercase.
func (r *rule) match(s string) bool {
	pos := 0
	for _, seg := range r.segments {
		i := strings.Index(s[pos:], seg)
		if i < 0 {
			return false
		}
		pos += i + len(seg)
	}
	return true
}

// Matcher tests URLs against the accepted patterns. A nil Matcher never
// matches.
type Matcher struct {
	rules     []rule
	accepted  []string
	shortcuts map[string][]int
	// unindexed holds rules without a literal segment of shortcutLength.
	unindexed []int
}

// MatchString reports whether s matches any accepted pattern.
func (m *Matcher) MatchString(s string) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}
	s = strings.ToLower(s)
	for _, idx := range m.unindexed {
		if m.rules[idx].match(s) {
			return true
		}
	}
	for i := 0; i+shortcutLength <= len(s); i++ {
		for _, idx := range m.shortcuts[s[i:i+shortcutLength]] {
			if m.rules[idx].match(s) {
				return true
			}
		}
	}
	return false
}

// Len returns the number of accepted patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Compile validates patterns and indexes them into one matcher. The returned
// matcher is nil when nothing was accepted.
func Compile(patterns []string, limits Limits) (*Matcher, Report) {
	limits = limits.withDefaults()

	var rep Report
	seen := make(map[string]struct{}, len(patterns))
	m := &Matcher{
		rules:     make([]rule, 0, len(patterns)),
		accepted:  make([]string, 0, len(patterns)),
		shortcuts: make(map[string][]int, len(patterns)),
	}

	for _, raw := range patterns {
		p, ok := normalize(raw)
		if !ok {
			rep.Empty++
			continue
		}
		if err := check(p, limits); err != nil {
			rep.Rejected++
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			rep.Duplicates++
			continue
		}
		if len(m.rules) >= limits.MaxPatterns {
			rep.Truncated++
			continue
		}
		seen[key] = struct{}{}
		m.add(p, key)
	}

	rep.Accepted = len(m.rules)
	if rep.Accepted == 0 {
		return nil, rep
	}
	return m, rep
}

// add registers p under the least used shortcut of its literal text.
func (m *Matcher) add(p, lower string) {
	idx := len(m.rules)
	r := rule{segments: segments(lower)}
	m.rules = append(m.rules, r)
	m.accepted = append(m.accepted, p)

	shortcut, ok := m.pickShortcut(r.segments)
	if !ok {
		m.unindexed = append(m.unindexed, idx)
		return
	}
	m.shortcuts[shortcut] = append(m.shortcuts[shortcut], idx)
}

// pickShortcut returns the window of the rule's literal text with the fewest
// rules already registered under it, which keeps candidate lists short when
// many patterns share a common stem.
func (m *Matcher) pickShortcut(segs []string) (string, bool) {
	best, bestLoad, found := "", 0, false
	for _, seg := range segs {
		for i := 0; i+shortcutLength <= len(seg); i++ {
			w := seg[i : i+shortcutLength]
			load := len(m.shortcuts[w])
			if !found || load < bestLoad {
				best, bestLoad, found = w, load, true
				if load == 0 {
					return best, true
				}
			}
		}
	}
	return best, found
}

// segments splits a lowercase pattern on '*' and drops the empty pieces left
// by leading, trailing or repeated wildcards.
func segments(p string) []string {
	parts := strings.Split(p, "*")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalize trims p and rewrites the legacy wildcard. It reports false for
// blank input.
func normalize(raw string) (string, bool) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", false
	}
	return strings.ReplaceAll(p, legacyWildcard, "*"), true
}

func check(p string, limits Limits) error {
	if len(p) > limits.MaxLength {
		return fmt.Errorf("pattern longer than %d bytes", limits.MaxLength)
	}
	if !utf8.ValidString(p) {
		return fmt.Errorf("invalid utf-8")
	}
	if n := strings.Count(p, "*"); n > limits.MaxWildcards {
		return fmt.Errorf("%d wildcards exceed %d", n, limits.MaxWildcards)
	}
	if strings.Trim(p, "*") == "" {
		return fmt.Errorf("no literal text")
	}
	for _, r := range p {
		if unicode.IsControl(r) {
			return fmt.Errorf("control character %U", r)
		}
	}
	return nil
}

func (l Limits) withDefaults() Limits {
	if l.MaxLength <= 0 {
		l.MaxLength = DefaultLimits.MaxLength
	}
	if l.MaxWildcards <= 0 {
		l.MaxWildcards = DefaultLimits.MaxWildcards
	}
	if l.MaxPatterns <= 0 {
		l.MaxPatterns = DefaultLimits.MaxPatterns
	}
	return l
}
