// Package stats combines the classifier's session counters with the
// persisted lifetime totals into the read-only statistics surface.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/haukened/adshield/internal/adblock/common/log"
	"github.com/haukened/adshield/internal/adblock/domain"
	"github.com/haukened/adshield/internal/adblock/services/classifier"
)

// SessionSource provides the in-memory session counters.
type SessionSource interface {
	Stats() classifier.Stats
	ResetSession()
}

// LifetimeStore persists lifetime counters.
type LifetimeStore interface {
	AddCounts(c domain.CategoryCounts) error
	Counts() (domain.CategoryCounts, error)
}

// FilterSource describes the filter sources.
type FilterSource interface {
	Stats() domain.FilterStats
}

// DefaultFlushInterval is how often session deltas are persisted by Run.
const DefaultFlushInterval = 30 * time.Second

type Options struct {
	Session SessionSource
	// Store may be nil, in which case lifetime totals only cover this process.
	Store   LifetimeStore
	Filters FilterSource
	Logger  log.Logger
}

// Tracker owns the split between flushed and unflushed session counts.
type Tracker struct {
	session SessionSource
	store   LifetimeStore
	filters FilterSource
	logger  log.Logger

	mu sync.Mutex
	// base is the persisted lifetime total, including everything flushed.
	base domain.CategoryCounts
	// flushed is the part of the current session counters already in base.
	flushed domain.CategoryCounts
}

// New loads the persisted totals and returns a tracker.
func New(opts Options) (*Tracker, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	t := &Tracker{
		session: opts.Session,
		store:   opts.Store,
		filters: opts.Filters,
		logger:  log.Component(logger, "stats"),
	}
	if t.store != nil {
		base, err := t.store.Counts()
		if err != nil {
			return nil, err
		}
		t.base = base
	}
	return t, nil
}

// Flush writes the session counts accumulated since the last flush.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *Tracker) flushLocked() error {
	cur := t.session.Stats().Blocked
	delta := cur.Sub(t.flushed)
	if delta.Total() == 0 {
		t.flushed = cur
		return nil
	}
	if t.store != nil {
		if err := t.store.AddCounts(delta); err != nil {
			return err
		}
	}
	t.base = t.base.Add(delta)
	t.flushed = cur
	t.logger.Debug(map[string]any{"delta": delta.Total(), "lifetime": t.base.Total()}, "stats flushed")
	return nil
}

// ResetSession persists pending counts and then zeroes the session counters.
func (t *Tracker) ResetSession() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flushLocked(); err != nil {
		return err
	}
	t.session.ResetSession()
	t.flushed = domain.CategoryCounts{}
	return nil
}

// Snapshot returns the current statistics.
func (t *Tracker) Snapshot() domain.Stats {
	t.mu.Lock()
	cs := t.session.Stats()
	lifetime := t.base.Add(cs.Blocked.Sub(t.flushed))
	t.mu.Unlock()

	st := domain.Stats{
		Session:        cs.Blocked,
		Lifetime:       lifetime,
		TotalBlocked:   lifetime.Total(),
		SessionBlocked: cs.Blocked.Total(),
		Classified:     cs.Classified,
		CacheSize:      cs.CacheSize,
		CacheCapacity:  cs.CacheCapacity,
		CacheHits:      cs.CacheHits,
		CacheMisses:    cs.CacheMisses,
		PatternCount:   cs.PatternCount,
	}
	if t.filters != nil {
		st.Filters = t.filters.Stats()
	}
	return st
}

// Run flushes every interval until ctx is done, then flushes one last time.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := t.Flush(); err != nil {
				t.logger.Error(map[string]any{"error": err.Error()}, "final stats flush failed")
			}
			return
		case <-ticker.C:
			if err := t.Flush(); err != nil {
				t.logger.Warn(map[string]any{"error": err.Error()}, "stats flush failed")
			}
		}
	}
}
