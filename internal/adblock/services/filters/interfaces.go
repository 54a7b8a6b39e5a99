package filters

import (
	"context"
	"time"

	"github.com/haukened/adshield/internal/adblock/domain"
	"github.com/haukened/adshield/internal/adblock/repos/filecache"
	"github.com/haukened/adshield/internal/adblock/repos/hostset"
)

// Fetcher downloads a source as text. Deadlines come from ctx.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Store persists the sources between runs. Implemented by filecache.Store.
type Store interface {
	EnsureDir() error
	LoadFilters() (*domain.FilterConfig, time.Time, error)
	SaveFilters(cfg *domain.FilterConfig, lastCheck time.Time) error
	LoadRaw(kind filecache.RawKind) (string, time.Time, error)
	SaveRaw(kind filecache.RawKind, text string) error
}

// Sink receives a new ruleset whenever any source changes. Implemented by
// the classifier.
type Sink interface {
	UpdateRules(rs domain.Ruleset)
}

// HostsBuilder turns a parsed hosts list into a snapshot. Implemented by
// hostset.Store.
type HostsBuilder interface {
	Build(domains []string) (*hostset.Snapshot, error)
}
