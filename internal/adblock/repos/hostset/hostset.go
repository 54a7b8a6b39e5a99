// Package hostset holds immutable hosts-list snapshots.
//
// A snapshot is either memory-backed (New), holding the exact set in a map,
// or store-backed (Store.Build), holding only a bloom filter in memory and
// answering bloom positives from a bbolt bucket.
package hostset

import (
	"slices"
	"strings"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// DefaultFalsePositiveRate is the bloom pre-filter target.
const DefaultFalsePositiveRate = 0.001

// Snapshot is a read-only domain set built once from a parsed hosts list.
// Snapshots are replaced wholesale, never mutated.
type Snapshot struct {
	n int

	// memory-backed
	domains []string
	set     map[string]struct{}

	// store-backed
	bf     *bitsbloom.BloomFilter
	store  *Store
	bucket []byte
}

// Empty is a snapshot with no domains.
var Empty = New(nil)

// New builds a memory-backed snapshot. Names are lowercased, trimmed of a
// trailing dot and deduplicated, keeping first-seen order.
func New(domains []string) *Snapshot {
	names := normalize(domains)
	s := &Snapshot{
		n:       len(names),
		domains: names,
		set:     make(map[string]struct{}, len(names)),
	}
	for _, d := range names {
		s.set[d] = struct{}{}
	}
	return s
}

// normalize lowercases, trims and dedupes domains in first-seen order.
func normalize(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Contains reports whether name is in the snapshot. The lookup is exact;
// callers walk parent domains themselves.
func (s *Snapshot) Contains(name string) bool {
	if s == nil || s.n == 0 {
		return false
	}
	if s.set != nil {
		_, ok := s.set[name]
		return ok
	}
	if !s.bf.TestString(name) {
		return false
	}
	return s.store.exists(s.bucket, name)
}

// Len returns the number of domains.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return s.n
}

// IsEmpty reports whether the snapshot has no domains.
func (s *Snapshot) IsEmpty() bool { return s.Len() == 0 }

// Domains returns a copy of the domains. Memory-backed snapshots keep
// first-seen order; store-backed ones are returned in key order.
func (s *Snapshot) Domains() []string {
	if s == nil {
		return nil
	}
	if s.set != nil {
		return slices.Clone(s.domains)
	}
	return s.store.keys(s.bucket)
}
