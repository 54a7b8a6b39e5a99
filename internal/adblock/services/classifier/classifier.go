// Package classifier decides whether a request URL is blocked.
//
// Classification is synchronous and performs no I/O. The dynamic rules
// (compiled network patterns and the hosts snapshot) are pushed in by the
// filter manager through UpdateRules and swapped in as one reference.
package classifier

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/haukened/adshield/internal/adblock/common/log"
	"github.com/haukened/adshield/internal/adblock/common/metrics"
	"github.com/haukened/adshield/internal/adblock/common/utils"
	"github.com/haukened/adshield/internal/adblock/domain"
	"github.com/haukened/adshield/internal/adblock/services/patterns"
)

// ruleset is the compiled form of domain.Ruleset. It is never mutated after
// being stored.
type ruleset struct {
	version string
	matcher *patterns.Matcher
	hosts   domain.DomainSet
}

type Options struct {
	Cache     Cache
	Logger    log.Logger
	Whitelist []string
	AdDomains []string
	Limits    patterns.Limits
}

type Classifier struct {
	cache  Cache
	logger log.Logger
	limits patterns.Limits

	whitelistHosts []string
	whitelistURLs  []string
	adDomains      []string

	rules atomic.Pointer[ruleset]
	// swapMu makes "swap rules, purge cache" atomic with respect to
	// "look up, decide, store" so no decision made under old rules survives
	// the purge.
	swapMu sync.RWMutex

	// disabled turns Classify into a pass-through; the zero value blocks.
	disabled atomic.Bool

	classified atomic.Uint64
	network    atomic.Uint64
	tracking   atomic.Uint64
	youtube    atomic.Uint64
}

// Stats is a snapshot of classifier counters.
type Stats struct {
	Classified    uint64
	Blocked       domain.CategoryCounts
	CacheSize     int
	CacheCapacity int
	CacheHits     uint64
	CacheMisses   uint64
	PatternCount  int
	HostsCount    int
	Version       string
}

// New builds a classifier. Nil Whitelist or AdDomains select the defaults.
// The classifier starts with no dynamic rules until UpdateRules is called.
func New(opts Options) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	whitelist := opts.Whitelist
	if whitelist == nil {
		whitelist = DefaultWhitelist
	}
	adDomains := opts.AdDomains
	if adDomains == nil {
		adDomains = DefaultAdDomains
	}

	c := &Classifier{
		cache:  opts.Cache,
		logger: log.Component(logger, "classifier"),
		limits: opts.Limits,
	}
	for _, w := range whitelist {
		w = strings.ToLower(strings.TrimSpace(w))
		switch {
		case w == "":
		case strings.Contains(w, "/"):
			c.whitelistURLs = append(c.whitelistURLs, w)
		default:
			c.whitelistHosts = append(c.whitelistHosts, w)
		}
	}
	for _, d := range adDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			c.adDomains = append(c.adDomains, d)
		}
	}
	c.rules.Store(&ruleset{})
	return c
}

// Classify returns the decision for req. Non-http(s) URLs, and every URL
// while blocking is disabled, are allowed without being cached or counted.
// Every other outcome is cached before it is returned.
func (c *Classifier) Classify(req domain.Request) domain.Decision {
	url := req.URL
	if !utils.IsHTTPURL(url) || c.disabled.Load() {
		return domain.Allow()
	}
	c.classified.Add(1)

	c.swapMu.RLock()
	d, hit := c.lookup(url)
	if !hit {
		d = c.decide(url, c.rules.Load())
		if c.cache != nil {
			c.cache.Put(url, d)
		}
	}
	c.swapMu.RUnlock()

	c.record(d)
	return d
}

func (c *Classifier) lookup(url string) (domain.Decision, bool) {
	if c.cache == nil {
		return domain.Decision{}, false
	}
	d, ok := c.cache.Get(url)
	if ok {
		metrics.ClassifierCacheHits.Inc()
	} else {
		metrics.ClassifierCacheMisses.Inc()
	}
	return d, ok
}

// decide runs the ordered checks; the first match wins.
func (c *Classifier) decide(url string, rs *ruleset) domain.Decision {
	host := utils.ExtractHostname(url)

	if d, ok := checkVideo(host, url); ok {
		return d
	}
	if c.whitelisted(host, url) {
		return domain.Allow()
	}
	if host != "" && containsAny(host, c.adDomains) {
		return domain.BlockAs(domain.CategoryNetwork)
	}
	if inHosts(host, rs.hosts) {
		return domain.BlockAs(domain.CategoryNetwork)
	}
	if adPattern.MatchString(url) {
		return domain.BlockAs(domain.CategoryTracking)
	}
	if rs.matcher.MatchString(url) {
		return domain.BlockAs(domain.CategoryNetwork)
	}
	return domain.Allow()
}

func (c *Classifier) whitelisted(host, url string) bool {
	if host != "" && containsAny(host, c.whitelistHosts) {
		return true
	}
	if len(c.whitelistURLs) == 0 {
		return false
	}
	return containsAny(strings.ToLower(url), c.whitelistURLs)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// inHosts walks host from the most specific name to the least specific
// (a.b.c, b.c, c) and reports the first snapshot hit. An empty snapshot is
// skipped entirely.
func inHosts(host string, hosts domain.DomainSet) bool {
	if host == "" || hosts == nil || hosts.Len() == 0 {
		return false
	}
	name := host
	for {
		if hosts.Contains(name) {
			return true
		}
		i := strings.IndexByte(name, '.')
		if i < 0 {
			return false
		}
		name = name[i+1:]
		if name == "" {
			return false
		}
	}
}

func (c *Classifier) record(d domain.Decision) {
	metrics.ClassifierDecisions.WithLabelValues(d.Category.String()).Inc()
	if !d.Block {
		return
	}
	switch d.Category {
	case domain.CategoryNetwork:
		c.network.Add(1)
	case domain.CategoryTracking:
		c.tracking.Add(1)
	case domain.CategoryYouTube:
		c.youtube.Add(1)
	}
}

// UpdateRules compiles rs and installs it, then clears the decision cache.
// Indexing happens before any lock is taken so classification is never
// stalled by it.
func (c *Classifier) UpdateRules(rs domain.Ruleset) {
	matcher, rep := patterns.Compile(rs.Patterns, c.limits)
	fields := map[string]any{
		"version":    rs.Version,
		"accepted":   rep.Accepted,
		"rejected":   rep.Rejected,
		"duplicates": rep.Duplicates,
		"truncated":  rep.Truncated,
		"hosts":      0,
	}
	if rs.Hosts != nil {
		fields["hosts"] = rs.Hosts.Len()
	}
	next := &ruleset{version: rs.Version, matcher: matcher, hosts: rs.Hosts}

	c.swapMu.Lock()
	c.rules.Store(next)
	if c.cache != nil {
		c.cache.Purge()
	}
	c.swapMu.Unlock()

	metrics.ClassifierRulesetSwaps.Inc()
	c.logger.Info(fields, "ruleset installed")
}

// SetEnabled switches blocking on or off at runtime. Cached decisions are
// kept and served again once blocking is re-enabled.
func (c *Classifier) SetEnabled(enabled bool) {
	if c.disabled.Swap(!enabled) == !enabled {
		return
	}
	c.logger.Info(map[string]any{"enabled": enabled}, "blocking toggled")
}

// Enabled reports whether blocking is on.
func (c *Classifier) Enabled() bool {
	return !c.disabled.Load()
}

// IsThirdParty reports whether req targets a different registrable domain
// than its referrer. Main-frame requests and requests without a referrer are
// never third-party.
func (c *Classifier) IsThirdParty(req domain.Request) bool {
	if req.Kind == domain.ResourceMainFrame || req.Referrer == "" {
		return false
	}
	target := utils.RegistrableDomain(utils.ExtractHostname(req.URL))
	origin := utils.RegistrableDomain(utils.ExtractHostname(req.Referrer))
	if target == "" || origin == "" {
		return false
	}
	return target != origin
}

// Version returns the version of the installed ruleset.
func (c *Classifier) Version() string {
	return c.rules.Load().version
}

// Stats returns the session counters and cache figures.
func (c *Classifier) Stats() Stats {
	rs := c.rules.Load()
	st := Stats{
		Classified: c.classified.Load(),
		Blocked: domain.CategoryCounts{
			Network:  c.network.Load(),
			Tracking: c.tracking.Load(),
			YouTube:  c.youtube.Load(),
		},
		PatternCount: rs.matcher.Len(),
		Version:      rs.version,
	}
	if rs.hosts != nil {
		st.HostsCount = rs.hosts.Len()
	}
	if c.cache != nil {
		cs := c.cache.Stats()
		st.CacheSize = cs.Size
		st.CacheCapacity = cs.Capacity
		st.CacheHits = cs.Hits
		st.CacheMisses = cs.Misses
	}
	return st
}

// ResetSession zeroes the session counters.
func (c *Classifier) ResetSession() {
	c.classified.Store(0)
	c.network.Store(0)
	c.tracking.Store(0)
	c.youtube.Store(0)
}
