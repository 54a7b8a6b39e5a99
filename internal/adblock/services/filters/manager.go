// Package filters owns the three filter sources: the curated JSON config,
// the hosts-file blocklist and the EasyList subset. It refreshes them on a
// schedule, persists them to a disk cache and pushes a merged ruleset to the
// classifier whenever any of them changes.
package filters

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/haukened/adshield/internal/adblock/common/clock"
	"github.com/haukened/adshield/internal/adblock/common/log"
	"github.com/haukened/adshield/internal/adblock/common/metrics"
	"github.com/haukened/adshield/internal/adblock/domain"
	"github.com/haukened/adshield/internal/adblock/repos/filecache"
	"github.com/haukened/adshield/internal/adblock/repos/hostset"
	"github.com/haukened/adshield/internal/adblock/repos/parsers"
)

// Defaults applied to zero Options fields.
const (
	DefaultInterval      = 24 * time.Hour
	DefaultCheckEvery    = time.Hour
	DefaultConfigTimeout = 10 * time.Second
	DefaultListsTimeout  = 12 * time.Second
	DefaultMaxHosts      = 50000
	DefaultMaxEasyList   = 2500
)

// Metric source labels.
const (
	sourceConfig   = "config"
	sourceHosts    = "hosts"
	sourceEasyList = "easylist"
)

// URLs locates the remote sources. An empty URL disables that source.
type URLs struct {
	Config   string
	Hosts    string
	EasyList string
}

type Options struct {
	Fetcher Fetcher
	// Store may be nil, in which case nothing is cached on disk.
	Store  Store
	// Hosts may be nil, in which case hosts snapshots are held in memory.
	Hosts  HostsBuilder
	Sink   Sink
	Clock  clock.Clock
	Logger log.Logger
	URLs   URLs

	// Interval gates non-forced refreshes of each kind.
	Interval time.Duration
	// CheckEvery is how often Run evaluates the gate.
	CheckEvery    time.Duration
	ConfigTimeout time.Duration
	ListsTimeout  time.Duration
	MaxHosts      int
	MaxEasyList   int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Logger == nil {
		o.Logger = log.NewNoopLogger()
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.CheckEvery <= 0 {
		o.CheckEvery = DefaultCheckEvery
	}
	if o.ConfigTimeout <= 0 {
		o.ConfigTimeout = DefaultConfigTimeout
	}
	if o.ListsTimeout <= 0 {
		o.ListsTimeout = DefaultListsTimeout
	}
	if o.MaxHosts <= 0 {
		o.MaxHosts = DefaultMaxHosts
	}
	if o.MaxEasyList <= 0 {
		o.MaxEasyList = DefaultMaxEasyList
	}
	return o
}

// Manager is constructed once at startup and shared by reference.
type Manager struct {
	opts   Options
	logger log.Logger

	mu            sync.RWMutex
	cfg           *domain.FilterConfig
	hosts         *hostset.Snapshot
	easyList      []string
	lastCheck     time.Time
	lastListCheck time.Time
	initialized   bool

	// configMu and listMu serialise refreshes of the same kind so that a
	// forced update and a scheduled one never interleave.
	configMu sync.Mutex
	listMu   sync.Mutex
	// publishMu orders snapshot-and-push so the sink never receives an
	// older ruleset after a newer one.
	publishMu sync.Mutex

	bg sync.WaitGroup
}

// New returns a manager holding the built-in default config. Call
// Initialize to load the disk cache and start the first refreshes.
func New(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts:   opts,
		logger: log.Component(opts.Logger, "filters"),
		cfg:    domain.DefaultFilterConfig(),
		hosts:  hostset.Empty,
	}
}

// Initialize loads whatever the disk cache holds, publishes the resulting
// ruleset and starts both refreshes in the background using ctx. Failures
// are logged and fall back to defaults. Later calls are no-ops.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return
	}
	m.initialized = true
	m.mu.Unlock()

	if m.opts.Store != nil {
		if err := m.opts.Store.EnsureDir(); err != nil {
			m.logger.Warn(map[string]any{"error": err.Error()}, "cannot create cache directory")
		}
		m.loadCachedFilters()
		m.loadCachedLists()
	}

	m.publish()
	m.recordRuleCounts()
	m.logger.Info(map[string]any{
		"version":  m.Version(),
		"hosts":    m.hostsLen(),
		"easylist": m.easyListLen(),
	}, "filter manager initialized")

	m.bg.Add(2)
	go func() {
		defer m.bg.Done()
		m.CheckForUpdates(ctx, false)
	}()
	go func() {
		defer m.bg.Done()
		m.CheckForListUpdates(ctx, false)
	}()
}

// Wait blocks until the background refreshes started by Initialize finish.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// Run evaluates both refresh gates every CheckEvery until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.CheckEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckForUpdates(ctx, false)
			m.CheckForListUpdates(ctx, false)
		}
	}
}

func (m *Manager) loadCachedFilters() {
	cfg, lastCheck, err := m.opts.Store.LoadFilters()
	if err != nil {
		m.logger.Warn(map[string]any{"error": err.Error()}, "ignoring cached filter config")
		return
	}
	if cfg == nil {
		m.logger.Debug(nil, "no cached filter config, using defaults")
		return
	}
	m.mu.Lock()
	m.cfg = cfg
	m.lastCheck = lastCheck
	m.mu.Unlock()
	m.logger.Info(map[string]any{"version": cfg.Version}, "loaded cached filter config")
}

func (m *Manager) loadCachedLists() {
	hostsText, hostsTime, err := m.opts.Store.LoadRaw(filecache.RawHosts)
	if err != nil {
		m.logger.Warn(map[string]any{"error": err.Error()}, "ignoring cached hosts list")
	}
	easyText, easyTime, err := m.opts.Store.LoadRaw(filecache.RawEasyList)
	if err != nil {
		m.logger.Warn(map[string]any{"error": err.Error()}, "ignoring cached easylist")
	}

	var snap *hostset.Snapshot
	if domains := m.parseHosts(hostsText); len(domains) > 0 {
		snap = m.buildHosts(domains)
	}
	var easy []string
	if patterns := m.parseEasyList(easyText); len(patterns) > 0 {
		easy = patterns
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if snap != nil {
		m.hosts = snap
	}
	if easy != nil {
		m.easyList = easy
	}
	// Both caches must be present for the pair to count as checked.
	if !hostsTime.IsZero() && !easyTime.IsZero() {
		m.lastListCheck = hostsTime
		if easyTime.Before(hostsTime) {
			m.lastListCheck = easyTime
		}
	}
}

// CheckForUpdates fetches the remote JSON config and installs it when its
// version differs from the current one. It reports whether the config
// changed. Unless force is set, the fetch is skipped until Interval has
// passed since the last successful check.
func (m *Manager) CheckForUpdates(ctx context.Context, force bool) bool {
	m.configMu.Lock()
	defer m.configMu.Unlock()

	now := m.opts.Clock.Now()
	m.mu.RLock()
	last := m.lastCheck
	current := m.cfg.Version
	m.mu.RUnlock()
	if !force && now.Sub(last) < m.opts.Interval {
		return false
	}
	url := m.opts.URLs.Config
	if url == "" {
		return false
	}

	fctx, cancel := context.WithTimeout(ctx, m.opts.ConfigTimeout)
	defer cancel()
	text, err := m.opts.Fetcher.Fetch(fctx, url)
	if err != nil {
		m.fetchFailed(sourceConfig, url, err)
		return false
	}

	cfg, err := decodeConfig([]byte(text))
	m.mu.Lock()
	m.lastCheck = now
	m.mu.Unlock()
	if err != nil {
		metrics.SetStatusOK(metrics.FilterUpdateStatus.WithLabelValues(sourceConfig), false)
		m.logger.Warn(map[string]any{"url": url, "error": err.Error()}, "rejected remote filter config")
		return false
	}
	metrics.SetStatusOK(metrics.FilterUpdateStatus.WithLabelValues(sourceConfig), true)

	if cfg.Version == current {
		m.logger.Debug(map[string]any{"version": current}, "filter config up to date")
		return false
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	if m.opts.Store != nil {
		if err := m.opts.Store.SaveFilters(cfg, now); err != nil {
			m.logger.Warn(map[string]any{"error": err.Error()}, "failed to cache filter config")
		}
	}
	m.publish()
	m.recordRuleCounts()
	metrics.FilterUpdatedTime.WithLabelValues(sourceConfig).Set(float64(now.Unix()))
	m.logger.Info(map[string]any{"from": current, "to": cfg.Version}, "filter config updated")
	return true
}

// listResult is the outcome of one list download.
type listResult struct {
	text string
	err  error
}

// CheckForListUpdates downloads the hosts list and EasyList concurrently
// under one ListsTimeout deadline. Each list that downloads and parses to at
// least one entry replaces the previous one; a failed or empty list keeps its
// previous data and is not cached. The check time is recorded whether or not
// anything succeeded.
func (m *Manager) CheckForListUpdates(ctx context.Context, force bool) bool {
	m.listMu.Lock()
	defer m.listMu.Unlock()

	now := m.opts.Clock.Now()
	m.mu.RLock()
	last := m.lastListCheck
	m.mu.RUnlock()
	if !force && now.Sub(last) < m.opts.Interval {
		return false
	}

	fctx, cancel := context.WithTimeout(ctx, m.opts.ListsTimeout)
	defer cancel()

	var hostsRes, easyRes listResult
	var wg sync.WaitGroup
	fetch := func(url string, out *listResult) {
		defer wg.Done()
		if url == "" {
			out.err = errSourceDisabled
			return
		}
		out.text, out.err = m.opts.Fetcher.Fetch(fctx, url)
	}
	wg.Add(2)
	go fetch(m.opts.URLs.Hosts, &hostsRes)
	go fetch(m.opts.URLs.EasyList, &easyRes)
	wg.Wait()

	var snap *hostset.Snapshot
	if m.listFetched(sourceHosts, m.opts.URLs.Hosts, hostsRes.err) {
		if domains := m.parseHosts(hostsRes.text); m.listUsable(sourceHosts, m.opts.URLs.Hosts, len(domains)) {
			snap = m.buildHosts(domains)
			m.saveRaw(filecache.RawHosts, hostsRes.text)
			metrics.FilterUpdatedTime.WithLabelValues(sourceHosts).Set(float64(now.Unix()))
			m.logger.Info(map[string]any{"domains": snap.Len()}, "hosts list updated")
		}
	}
	var easy []string
	if m.listFetched(sourceEasyList, m.opts.URLs.EasyList, easyRes.err) {
		if patterns := m.parseEasyList(easyRes.text); m.listUsable(sourceEasyList, m.opts.URLs.EasyList, len(patterns)) {
			easy = patterns
			m.saveRaw(filecache.RawEasyList, easyRes.text)
			metrics.FilterUpdatedTime.WithLabelValues(sourceEasyList).Set(float64(now.Unix()))
			m.logger.Info(map[string]any{"patterns": len(easy)}, "easylist updated")
		}
	}

	changed := snap != nil || easy != nil
	m.mu.Lock()
	if snap != nil {
		m.hosts = snap
	}
	if easy != nil {
		m.easyList = easy
	}
	m.lastListCheck = now
	m.mu.Unlock()

	if changed {
		m.publish()
		m.recordRuleCounts()
	}
	return changed
}

var errSourceDisabled = errors.New("source disabled")

// listFetched logs a failed list download and reports whether it succeeded.
func (m *Manager) listFetched(source, url string, err error) bool {
	if errors.Is(err, errSourceDisabled) {
		return false
	}
	if err != nil {
		m.fetchFailed(source, url, err)
		return false
	}
	return true
}

// listUsable records the outcome of parsing a downloaded list. A body that
// yields no entries, such as an error page or a captive portal, counts as a
// failed refresh.
func (m *Manager) listUsable(source, url string, n int) bool {
	if n == 0 {
		metrics.SetStatusOK(metrics.FilterUpdateStatus.WithLabelValues(source), false)
		m.logger.Warn(map[string]any{"source": source, "url": url}, "downloaded list has no usable entries, keeping previous")
		return false
	}
	metrics.SetStatusOK(metrics.FilterUpdateStatus.WithLabelValues(source), true)
	return true
}

// buildHosts turns parsed domains into a snapshot, preferring the on-disk
// store and falling back to memory when it fails.
func (m *Manager) buildHosts(domains []string) *hostset.Snapshot {
	if m.opts.Hosts == nil {
		return hostset.New(domains)
	}
	snap, err := m.opts.Hosts.Build(domains)
	if err != nil {
		m.logger.Warn(map[string]any{"error": err.Error(), "domains": len(domains)}, "hosts store unavailable, holding list in memory")
		return hostset.New(domains)
	}
	return snap
}

func (m *Manager) fetchFailed(source, url string, err error) {
	metrics.SetStatusOK(metrics.FilterUpdateStatus.WithLabelValues(source), false)
	msg := "filter fetch failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "filter fetch timed out"
	}
	m.logger.Warn(map[string]any{"source": source, "url": url, "error": err.Error()}, msg)
}

func (m *Manager) saveRaw(kind filecache.RawKind, text string) {
	if m.opts.Store == nil {
		return
	}
	if err := m.opts.Store.SaveRaw(kind, text); err != nil {
		m.logger.Warn(map[string]any{"kind": string(kind), "error": err.Error()}, "failed to cache list")
	}
}

func (m *Manager) parseHosts(text string) []string {
	if text == "" {
		return nil
	}
	domains, err := parsers.ParseHosts(strings.NewReader(text), m.opts.MaxHosts, m.logger)
	if err != nil {
		m.logger.Warn(map[string]any{"error": err.Error(), "kept": len(domains)}, "hosts list partially parsed")
	}
	return domains
}

func (m *Manager) parseEasyList(text string) []string {
	if text == "" {
		return nil
	}
	patterns, err := parsers.ParseEasyList(strings.NewReader(text), m.opts.MaxEasyList, m.logger)
	if err != nil {
		m.logger.Warn(map[string]any{"error": err.Error(), "kept": len(patterns)}, "easylist partially parsed")
	}
	return patterns
}

// ForceUpdate runs both refreshes concurrently, ignoring the interval gate.
func (m *Manager) ForceUpdate(ctx context.Context) domain.UpdateResult {
	var cfgChanged, listsChanged bool
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cfgChanged = m.CheckForUpdates(ctx, true)
	}()
	go func() {
		defer wg.Done()
		listsChanged = m.CheckForListUpdates(ctx, true)
	}()
	wg.Wait()
	return domain.UpdateResult{Success: cfgChanged || listsChanged, Version: m.Version()}
}

// publish pushes the current merged ruleset to the sink.
func (m *Manager) publish() {
	if m.opts.Sink == nil {
		return
	}
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	m.mu.RLock()
	rs := domain.Ruleset{
		Version:  m.cfg.Version,
		Patterns: m.networkPatternsLocked(),
		Hosts:    m.hosts,
	}
	m.mu.RUnlock()
	m.opts.Sink.UpdateRules(rs)
}

func (m *Manager) recordRuleCounts() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metrics.FilterRulesTotal.WithLabelValues(sourceConfig).Set(float64(len(m.cfg.NetworkPatterns)))
	metrics.FilterRulesTotal.WithLabelValues(sourceHosts).Set(float64(m.hosts.Len()))
	metrics.FilterRulesTotal.WithLabelValues(sourceEasyList).Set(float64(len(m.easyList)))
}

func (m *Manager) networkPatternsLocked() []string {
	out := make([]string, 0, len(m.cfg.NetworkPatterns)+len(m.easyList))
	out = append(out, m.cfg.NetworkPatterns...)
	return append(out, m.easyList...)
}

// NetworkPatterns returns the curated patterns followed by the EasyList ones.
func (m *Manager) NetworkPatterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.networkPatternsLocked()
}

// BlockedDomains returns a copy of the hosts snapshot.
func (m *Manager) BlockedDomains() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hosts.Domains()
}

func (m *Manager) DomSelectors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.cfg.DomSelectors)
}

func (m *Manager) VideoAdIndicators() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.cfg.VideoAdIndicators)
}

func (m *Manager) SkipButtonSelectors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.cfg.SkipButtonSelectors)
}

func (m *Manager) AdContainerSelectors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.cfg.AdContainerSelectors)
}

// Filters returns a deep copy of the current config.
func (m *Manager) Filters() *domain.FilterConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

func (m *Manager) Version() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Version
}

// Payload returns the page injection payload for the current config.
func (m *Manager) Payload() domain.Payload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Payload()
}

// Stats describes the sources. PatternCount covers the network patterns of
// both the config and EasyList plus the DOM, indicator and skip selectors.
func (m *Manager) Stats() domain.FilterStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.FilterStats{
		Version:     m.cfg.Version,
		LastUpdated: m.cfg.LastUpdated,
		PatternCount: len(m.cfg.NetworkPatterns) + len(m.easyList) +
			len(m.cfg.DomSelectors) + len(m.cfg.VideoAdIndicators) + len(m.cfg.SkipButtonSelectors),
		HostsCount:    m.hosts.Len(),
		EasyListCount: len(m.easyList),
		LastCheck:     m.lastCheck,
		LastListCheck: m.lastListCheck,
	}
}

func (m *Manager) hostsLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hosts.Len()
}

func (m *Manager) easyListLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.easyList)
}
