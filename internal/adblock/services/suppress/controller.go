// Package suppress detects and remediates in-page video ads.
//
// A Controller runs once per page against a Document adapter. It receives a
// one-shot domain.Payload when the page starts loading and never talks to the
// network side again. Every DOM call is isolated: an error or panic from one
// selector or element is counted and the loop continues.
package suppress

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/haukened/adshield/internal/adblock/common/log"
	"github.com/haukened/adshield/internal/adblock/domain"
)

// PlayerSelector locates the video player container.
const PlayerSelector = ".html5-video-player"

// instreamInfoSelector is the ad info overlay shown during video ads.
const instreamInfoSelector = ".ytp-ad-player-overlay-instream-info"

// overlaySelectors are hidden while an ad is being fast-forwarded.
var overlaySelectors = []string{
	".ytp-ad-overlay-container",
	".ytp-ad-text-overlay",
	".video-ads .ytp-ad-overlay-slot",
}

// State is the per-page ad playback state.
type State uint8

const (
	StateContent State = iota
	StateAdDetected
	StateRemediating
)

func (s State) String() string {
	switch s {
	case StateContent:
		return "content"
	case StateAdDetected:
		return "ad_detected"
	case StateRemediating:
		return "remediating"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Action is what a single Check did.
type Action uint8

const (
	ActionNone Action = iota
	ActionSkipped
	ActionSeeked
	ActionAccelerated
	ActionRestored
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSkipped:
		return "skipped"
	case ActionSeeked:
		return "seeked"
	case ActionAccelerated:
		return "accelerated"
	case ActionRestored:
		return "restored"
	default:
		return fmt.Sprintf("Action(%d)", a)
	}
}

// Options tune the controller. Zero values select the defaults.
type Options struct {
	Logger          log.Logger
	CheckInterval   time.Duration
	Debounce        time.Duration
	NavigateDelay   time.Duration
	MaxSeekAttempts int
	FastRate        float64
	// SeekAfter and AccelerateAfter are the consecutive detections needed
	// before seeking and before fast-forwarding.
	SeekAfter       int
	AccelerateAfter int
}

// Defaults.
const (
	DefaultCheckInterval   = 100 * time.Millisecond
	DefaultDebounce        = 50 * time.Millisecond
	DefaultNavigateDelay   = 100 * time.Millisecond
	DefaultMaxSeekAttempts = 10
	DefaultFastRate        = 16.0
	DefaultSeekAfter       = 2
	DefaultAccelerateAfter = 3
)

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.NewNoopLogger()
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.NavigateDelay <= 0 {
		o.NavigateDelay = DefaultNavigateDelay
	}
	if o.MaxSeekAttempts <= 0 {
		o.MaxSeekAttempts = DefaultMaxSeekAttempts
	}
	if o.FastRate <= 1 {
		o.FastRate = DefaultFastRate
	}
	if o.SeekAfter <= 0 {
		o.SeekAfter = DefaultSeekAfter
	}
	if o.AccelerateAfter <= 0 {
		o.AccelerateAfter = DefaultAccelerateAfter
	}
	return o
}

// Stats counts what the controller has done on this page.
type Stats struct {
	Detections      uint64
	Skipped         uint64
	Seeked          uint64
	Accelerated     uint64
	Restored        uint64
	ElementsRemoved uint64
	OverlaysHidden  uint64
	Errors          uint64
}

// Controller owns the ad playback state of one page.
type Controller struct {
	doc     Document
	payload domain.Payload
	opts    Options
	logger  log.Logger
	css     string
	hide    []string

	mu           sync.Mutex
	state        State
	consecutive  int
	seekFailures int
	stats        Stats
	stopped      bool
	navTimer     *time.Timer

	debounce *Debouncer
}

// New builds a controller for doc using payload.
func New(doc Document, payload domain.Payload, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		doc:     doc,
		payload: payload,
		opts:    opts,
		logger:  log.Component(opts.Logger, "suppress"),
		css:     BuildStylesheet(payload),
		hide:    payload.HideSelectors(),
	}
	c.debounce = NewDebouncer(opts.Debounce, c.react)
	return c
}

// Start injects the stylesheet, sweeps existing ad nodes and runs a first check.
func (c *Controller) Start() Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ActionNone
	}
	c.injectStyles()
	c.sweep()
	c.logger.Debug(map[string]any{"version": c.payload.Version}, "controller started")
	return c.check()
}

// Run polls at the check interval until ctx is done, then stops the controller.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.CheckInterval)
	defer ticker.Stop()
	defer c.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.react()
		}
	}
}

// react is the shared body of the poll and the debounced mutation handler.
func (c *Controller) react() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.check()
	c.sweep()
}

// Check evaluates the state machine once and returns what it did.
func (c *Controller) Check() Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ActionNone
	}
	return c.check()
}

// Sweep removes nodes matching the ad selectors and returns how many were removed.
func (c *Controller) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0
	}
	return c.sweep()
}

// OnMutations feeds observed mutations; relevant batches schedule a
// debounced check and sweep.
func (c *Controller) OnMutations(muts []Mutation) {
	if IsAdRelated(muts) {
		c.debounce.Trigger()
	}
}

// OnMediaEvent reacts to media events while an ad is playing.
func (c *Controller) OnMediaEvent(ev MediaEvent) Action {
	switch ev {
	case MediaTimeUpdate, MediaPlay, MediaLoadedData:
	default:
		return ActionNone
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || !c.adPlaying() {
		return ActionNone
	}
	return c.check()
}

// OnNavigate handles a single-page-app navigation: the playback state is
// reset and styles and the sweep are re-applied after a short delay.
func (c *Controller) OnNavigate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.state = StateContent
	c.consecutive = 0
	c.seekFailures = 0
	if c.navTimer != nil {
		c.navTimer.Stop()
	}
	c.navTimer = time.AfterFunc(c.opts.NavigateDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.stopped {
			return
		}
		c.injectStyles()
		c.sweep()
	})
}

// Stop tears down timers; later calls are no-ops.
func (c *Controller) Stop() {
	c.debounce.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.navTimer != nil {
		c.navTimer.Stop()
	}
}

// State returns the current playback state and consecutive detection count.
func (c *Controller) State() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.consecutive
}

// Stats returns a copy of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// check runs with c.mu held.
func (c *Controller) check() Action {
	if !c.adPlaying() {
		restored := c.restore()
		c.state = StateContent
		c.consecutive = 0
		c.seekFailures = 0
		if restored {
			c.stats.Restored++
			return ActionRestored
		}
		return ActionNone
	}

	if c.state == StateContent {
		c.stats.Detections++
		c.state = StateAdDetected
	}
	c.consecutive++

	a := c.remediate()
	if a != ActionNone {
		c.state = StateRemediating
	}
	return a
}

// remediate tries, in order, a skip click, a seek to the end and a
// fast-forward. The consecutive detection count gates the later steps so a
// flickering indicator only ever triggers a click.
func (c *Controller) remediate() Action {
	if c.clickSkip() {
		c.stats.Skipped++
		return ActionSkipped
	}

	if c.consecutive >= c.opts.SeekAfter && c.seekFailures < c.opts.MaxSeekAttempts {
		if c.seekToEnd() {
			c.seekFailures = 0
			c.stats.Seeked++
			return ActionSeeked
		}
		c.seekFailures++
	}

	if c.consecutive >= c.opts.AccelerateAfter {
		c.hideOverlays()
		if c.accelerate() {
			c.stats.Accelerated++
			return ActionAccelerated
		}
	}
	return ActionNone
}

// adPlaying reports whether the player shows an ad.
func (c *Controller) adPlaying() bool {
	var player Element
	c.guard("query player", func() error {
		var err error
		player, err = c.doc.QuerySelector(PlayerSelector)
		return err
	})
	if player == nil {
		return false
	}

	className := ""
	c.guard("player class", func() error {
		className = player.ClassName()
		return nil
	})
	classes := strings.Fields(className)

	for _, ind := range c.payload.VideoAdIndicators {
		switch {
		case strings.HasPrefix(ind, "."):
			for _, cls := range classes {
				if cls == ind[1:] {
					return true
				}
			}
		case strings.HasPrefix(ind, "["):
			matched := false
			c.guard("player matches", func() error {
				var err error
				matched, err = player.Matches(ind)
				return err
			})
			if matched {
				return true
			}
		default:
			if c.exists(ind) {
				return true
			}
		}
	}

	if strings.Contains(className, "ad-showing") || strings.Contains(className, "ad-interrupting") {
		return true
	}
	return c.exists(instreamInfoSelector)
}

func (c *Controller) exists(selector string) bool {
	found := false
	c.guard("query "+selector, func() error {
		el, err := c.doc.QuerySelector(selector)
		found = err == nil && el != nil
		return err
	})
	return found
}

// clickSkip clicks the first visible, enabled skip control.
func (c *Controller) clickSkip() bool {
	for _, sel := range c.payload.SkipButtonSelectors {
		var buttons []Element
		if !c.guard("query "+sel, func() error {
			var err error
			buttons, err = c.doc.QuerySelectorAll(sel)
			return err
		}) {
			continue
		}
		for _, b := range buttons {
			if b == nil {
				continue
			}
			clicked := false
			c.guard("click "+sel, func() error {
				if !b.Visible() || !b.Enabled() {
					return nil
				}
				if err := b.Click(); err != nil {
					return err
				}
				clicked = true
				return nil
			})
			if clicked {
				c.logger.Debug(map[string]any{"selector": sel}, "skip clicked")
				return true
			}
		}
	}
	return false
}

// seekToEnd jumps the media element to its end when the duration is finite.
func (c *Controller) seekToEnd() bool {
	m := c.media()
	if m == nil {
		return false
	}
	seeked := false
	c.guard("seek", func() error {
		d := m.Duration()
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return nil
		}
		if err := m.SetCurrentTime(d); err != nil {
			return err
		}
		seeked = true
		return nil
	})
	return seeked
}

// accelerate raises the playback rate and mutes. It reports false when the
// media is already accelerated or missing.
func (c *Controller) accelerate() bool {
	m := c.media()
	if m == nil {
		return false
	}
	changed := false
	c.guard("accelerate", func() error {
		if m.PlaybackRate() >= c.opts.FastRate {
			return nil
		}
		if err := m.SetPlaybackRate(c.opts.FastRate); err != nil {
			return err
		}
		changed = true
		return m.SetMuted(true)
	})
	return changed
}

// restore returns an accelerated media element to normal speed with sound.
func (c *Controller) restore() bool {
	m := c.media()
	if m == nil {
		return false
	}
	restored := false
	c.guard("restore", func() error {
		if m.PlaybackRate() <= 1 {
			return nil
		}
		if err := m.SetPlaybackRate(1); err != nil {
			return err
		}
		restored = true
		return m.SetMuted(false)
	})
	return restored
}

func (c *Controller) hideOverlays() {
	for _, sel := range overlaySelectors {
		var els []Element
		if !c.guard("query "+sel, func() error {
			var err error
			els, err = c.doc.QuerySelectorAll(sel)
			return err
		}) {
			continue
		}
		for _, el := range els {
			if el == nil {
				continue
			}
			c.guard("hide "+sel, func() error {
				if el.Hidden() {
					return nil
				}
				if err := el.Hide(); err != nil {
					return err
				}
				c.stats.OverlaysHidden++
				return nil
			})
		}
	}
}

// sweep runs with c.mu held.
func (c *Controller) sweep() int {
	removed := 0
	for _, sel := range c.hide {
		var els []Element
		if !c.guard("query "+sel, func() error {
			var err error
			els, err = c.doc.QuerySelectorAll(sel)
			return err
		}) {
			continue
		}
		for _, el := range els {
			if el == nil {
				continue
			}
			c.guard("remove "+sel, func() error {
				if !el.Attached() {
					return nil
				}
				if err := el.Remove(); err != nil {
					return err
				}
				removed++
				return nil
			})
		}
	}
	if removed > 0 {
		c.stats.ElementsRemoved += uint64(removed)
		c.logger.Debug(map[string]any{"removed": removed}, "ad elements removed")
	}
	return removed
}

func (c *Controller) injectStyles() {
	c.guard("inject styles", func() error {
		if c.doc.HasStyle(StyleID) {
			return nil
		}
		return c.doc.InjectStyle(StyleID, c.css)
	})
}

func (c *Controller) media() Media {
	var m Media
	c.guard("media", func() error {
		m = c.doc.Media()
		return nil
	})
	return m
}

// guard runs fn, converting errors and panics into a counted failure.
func (c *Controller) guard(op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.Errors++
			c.logger.Debug(map[string]any{"op": op, "panic": fmt.Sprint(r)}, "dom operation panicked")
			ok = false
		}
	}()
	if err := fn(); err != nil {
		c.stats.Errors++
		c.logger.Debug(map[string]any{"op": op, "error": err.Error()}, "dom operation failed")
		return false
	}
	return true
}
