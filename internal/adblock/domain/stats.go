package domain

import "time"

// CategoryCounts holds per-category block counters.
type CategoryCounts struct {
	Network  uint64 `json:"network"`
	Tracking uint64 `json:"tracking"`
	YouTube  uint64 `json:"youtube"`
}

// Total returns the sum of all categories.
func (c CategoryCounts) Total() uint64 {
	return c.Network + c.Tracking + c.YouTube
}

// Add returns the element-wise sum of c and o.
func (c CategoryCounts) Add(o CategoryCounts) CategoryCounts {
	return CategoryCounts{
		Network:  c.Network + o.Network,
		Tracking: c.Tracking + o.Tracking,
		YouTube:  c.YouTube + o.YouTube,
	}
}

// Sub returns the element-wise difference c - o, clamped at zero.
func (c CategoryCounts) Sub(o CategoryCounts) CategoryCounts {
	sub := func(a, b uint64) uint64 {
		if b > a {
			return 0
		}
		return a - b
	}
	return CategoryCounts{
		Network:  sub(c.Network, o.Network),
		Tracking: sub(c.Tracking, o.Tracking),
		YouTube:  sub(c.YouTube, o.YouTube),
	}
}

// Inc increments the counter for the given category. CategoryNone is ignored.
func (c *CategoryCounts) Inc(cat Category) {
	switch cat {
	case CategoryNetwork:
		c.Network++
	case CategoryTracking:
		c.Tracking++
	case CategoryYouTube:
		c.YouTube++
	}
}

// FilterStats describes the state of the filter sources.
type FilterStats struct {
	Version       string    `json:"version"`
	LastUpdated   time.Time `json:"lastUpdated"`
	PatternCount  int       `json:"patternCount"`
	HostsCount    int       `json:"hostsCount"`
	EasyListCount int       `json:"easyListCount"`
	LastCheck     time.Time `json:"lastCheck"`
	LastListCheck time.Time `json:"lastListCheck"`
}

// Stats is the read-only statistics surface exposed to the host.
type Stats struct {
	// Session counts blocks since the process started.
	Session CategoryCounts `json:"session"`
	// Lifetime counts blocks across restarts (includes Session).
	Lifetime CategoryCounts `json:"lifetime"`

	TotalBlocked   uint64 `json:"totalBlocked"`
	SessionBlocked uint64 `json:"sessionBlocked"`
	Classified     uint64 `json:"classified"`

	CacheSize     int    `json:"cacheSize"`
	CacheCapacity int    `json:"cacheCapacity"`
	CacheHits     uint64 `json:"cacheHits"`
	CacheMisses   uint64 `json:"cacheMisses"`
	PatternCount  int    `json:"patternCount"`

	Filters FilterStats `json:"filters"`
}
