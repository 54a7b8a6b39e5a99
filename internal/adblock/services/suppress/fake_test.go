package suppress

import (
	"errors"
	"math"
	"sync"
)

var errDetached = errors.New("element detached")

// fakeDoc is an in-memory Document. Selectors map directly to element lists.
type fakeDoc struct {
	mu       sync.Mutex
	nodes    map[string][]*fakeElement
	panicOn  map[string]bool
	errOn    map[string]bool
	styles   map[string]string
	injected int
	queries  int
	media    *fakeMedia
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{
		nodes:   make(map[string][]*fakeElement),
		panicOn: make(map[string]bool),
		errOn:   make(map[string]bool),
		styles:  make(map[string]string),
	}
}

func (d *fakeDoc) add(selector string, el *fakeElement) *fakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	el.doc = d
	d.nodes[selector] = append(d.nodes[selector], el)
	return el
}

func (d *fakeDoc) setPlayer(classes string) *fakeElement {
	return d.add(PlayerSelector, &fakeElement{class: classes, visible: true, enabled: true, attached: true})
}

func (d *fakeDoc) QuerySelector(sel string) (Element, error) {
	els, err := d.QuerySelectorAll(sel)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (d *fakeDoc) QuerySelectorAll(sel string) ([]Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries++
	if d.panicOn[sel] {
		panic("unsupported selector " + sel)
	}
	if d.errOn[sel] {
		return nil, errors.New("syntax error: " + sel)
	}
	var out []Element
	for _, el := range d.nodes[sel] {
		if el.attached {
			out = append(out, el)
		}
	}
	return out, nil
}

func (d *fakeDoc) HasStyle(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.styles[id]
	return ok
}

func (d *fakeDoc) InjectStyle(id, css string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.styles[id] = css
	d.injected++
	return nil
}

func (d *fakeDoc) removeStyle(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.styles, id)
}

func (d *fakeDoc) injectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.injected
}

func (d *fakeDoc) Media() Media {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.media == nil {
		return nil
	}
	return d.media
}

type fakeElement struct {
	doc         *fakeDoc
	class       string
	id          string
	visible     bool
	enabled     bool
	attached    bool
	hidden      bool
	clicks      int
	clickErr    error
	panicRemove bool
	matches     func(string) bool
}

func (e *fakeElement) Matches(sel string) (bool, error) {
	if e.matches == nil {
		return false, nil
	}
	return e.matches(sel), nil
}
func (e *fakeElement) ClassName() string { return e.class }
func (e *fakeElement) ID() string        { return e.id }
func (e *fakeElement) Visible() bool     { return e.visible }
func (e *fakeElement) Enabled() bool     { return e.enabled }
func (e *fakeElement) Attached() bool    { return e.attached }
func (e *fakeElement) Hidden() bool      { return e.hidden }

func (e *fakeElement) Click() error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *fakeElement) Remove() error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.panicRemove {
		panic("node is not a child of this node")
	}
	if !e.attached {
		return errDetached
	}
	e.attached = false
	return nil
}

func (e *fakeElement) Hide() error {
	e.hidden = true
	return nil
}

func (e *fakeElement) setClass(c string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.class = c
}

func (e *fakeElement) isAttached() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.attached
}

type fakeMedia struct {
	duration  float64
	current   float64
	rate      float64
	muted     bool
	seekCalls int
	seekErr   error
}

func newFakeMedia(duration float64) *fakeMedia {
	return &fakeMedia{duration: duration, rate: 1}
}

func (m *fakeMedia) Duration() float64 { return m.duration }

func (m *fakeMedia) SetCurrentTime(t float64) error {
	m.seekCalls++
	if m.seekErr != nil {
		return m.seekErr
	}
	m.current = t
	return nil
}

func (m *fakeMedia) PlaybackRate() float64 { return m.rate }

func (m *fakeMedia) SetPlaybackRate(r float64) error {
	m.rate = r
	return nil
}

func (m *fakeMedia) Muted() bool { return m.muted }

func (m *fakeMedia) SetMuted(v bool) error {
	m.muted = v
	return nil
}

var nan = math.NaN()
