package suppress

// Element is the subset of a DOM element the controller touches. Any method
// may fail or panic when the element is detached mid-operation; the
// controller isolates each call.
type Element interface {
	Matches(selector string) (bool, error)
	ClassName() string
	ID() string
	// Visible reports whether the element is rendered (has an offset parent).
	Visible() bool
	Enabled() bool
	Attached() bool
	Click() error
	Remove() error
	// Hidden reports whether an inline display:none is already set.
	Hidden() bool
	Hide() error
}

// Media is the page's video element.
type Media interface {
	Duration() float64
	SetCurrentTime(t float64) error
	PlaybackRate() float64
	SetPlaybackRate(r float64) error
	Muted() bool
	SetMuted(m bool) error
}

// Document is the page adapter the controller runs against.
type Document interface {
	// QuerySelector returns nil, nil when nothing matches.
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
	HasStyle(id string) bool
	InjectStyle(id, css string) error
	// Media returns the first video element, or nil.
	Media() Media
}

// Mutation is one observed DOM mutation record.
type Mutation struct {
	TargetIsElement bool
	TargetClass     string
	TargetID        string
	AddedNodes      int
}

// MediaEvent names a media element event the controller reacts to.
type MediaEvent string

const (
	MediaTimeUpdate MediaEvent = "timeupdate"
	MediaPlay       MediaEvent = "play"
	MediaLoadedData MediaEvent = "loadeddata"
)
