// Package decisioncache holds classification outcomes keyed by the exact
// request URL.
//
// Eviction is threshold based, not least-recently-used: lookups never touch
// recency, and when an insert finds the cache full an eviction pass runs first
// that drops either every entry or the oldest half by insertion order. A
// recency-aware policy would need lookups to reorder entries, which the
// classifier hot path avoids.
package decisioncache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/adshield/internal/adblock/domain"
)

// Policy selects what an eviction pass removes.
type Policy uint8

const (
	// EvictOldestHalf removes the oldest half of the entries by insertion order.
	EvictOldestHalf Policy = iota
	// EvictAll clears the cache.
	EvictAll
)

func (p Policy) String() string {
	switch p {
	case EvictAll:
		return "all"
	case EvictOldestHalf:
		return "half"
	default:
		return fmt.Sprintf("Policy(%d)", p)
	}
}

// ParsePolicy converts "all" or "half" into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "half", "":
		return EvictOldestHalf, nil
	case "all":
		return EvictAll, nil
	default:
		return 0, fmt.Errorf("unsupported eviction policy: %q", s)
	}
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Capacity  int
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is the decision cache contract used by the classifier.
type Cache interface {
	Get(url string) (domain.Decision, bool)
	Put(url string, d domain.Decision)
	Len() int
	Purge()
	Stats() Stats
}

// newLRU is swapped in tests to exercise constructor failures.
var newLRU = func(size int, onEvict func(string, domain.Decision)) (*lru.Cache[string, domain.Decision], error) {
	return lru.NewWithEvict(size, onEvict)
}

// decisionCache stores decisions in an insertion-ordered golang-lru cache.
// Get uses Peek so that the list order stays the insertion order.
type decisionCache struct {
	mu        sync.Mutex // serializes Put so the capacity check and insert are atomic
	lru       *lru.Cache[string, domain.Decision]
	capacity  int
	policy    Policy
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op Cache used when capacity <= 0.
type disabledCache struct {
	misses uint64
}

// New creates a cache holding at most capacity entries. If capacity <= 0, a
// disabled cache is returned that always misses.
func New(capacity int, policy Policy) (Cache, error) {
	if capacity <= 0 {
		return &disabledCache{}, nil
	}

	dc := &decisionCache{capacity: capacity, policy: policy}
	cache, err := newLRU(capacity, func(string, domain.Decision) {
		atomic.AddUint64(&dc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

// Get looks up a decision by URL without changing its position.
func (c *decisionCache) Get(url string) (domain.Decision, bool) {
	if val, ok := c.lru.Peek(url); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.Decision{}, false
}

// Put stores a decision. An existing entry keeps its value and position.
// When the cache is full an eviction pass runs before the insert, so the
// size never exceeds the capacity.
func (c *decisionCache) Put(url string, d domain.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lru.Contains(url) {
		return
	}
	if c.lru.Len() >= c.capacity {
		c.evict()
	}
	c.lru.Add(url, d)
}

func (c *decisionCache) evict() {
	switch c.policy {
	case EvictAll:
		c.lru.Purge()
	default:
		n := c.lru.Len() / 2
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			c.lru.RemoveOldest()
		}
	}
}

// Len returns the number of entries in the cache.
func (c *decisionCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *decisionCache) Purge() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

// Stats returns the capacity, size and cumulative counters.
func (c *decisionCache) Stats() Stats {
	return Stats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
	}
}

// disabledCache implementation

func (d *disabledCache) Get(string) (domain.Decision, bool) {
	atomic.AddUint64(&d.misses, 1)
	return domain.Decision{}, false
}

func (d *disabledCache) Put(string, domain.Decision) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() Stats {
	return Stats{Misses: atomic.LoadUint64(&d.misses)}
}

var _ Cache = (*decisionCache)(nil)
var _ Cache = (*disabledCache)(nil)
