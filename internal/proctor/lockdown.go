package proctor

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// EventType names a document or window event the lockdown listens to.
type EventType string

const (
	EventFullscreenChange EventType = "fullscreenchange"
	EventVisibilityChange EventType = "visibilitychange"
	EventBlur             EventType = "blur"
	EventKeyDown          EventType = "keydown"
	EventContextMenu      EventType = "contextmenu"
	EventCopy             EventType = "copy"
	EventCut              EventType = "cut"
	EventPaste            EventType = "paste"
	EventBeforeUnload     EventType = "beforeunload"
)

// Event is an environment event delivered to a Listener.
type Event struct {
	Type         EventType `json:"type"`
	Key          string    `json:"key,omitempty"`
	Alt          bool      `json:"alt,omitempty"`
	Ctrl         bool      `json:"ctrl,omitempty"`
	Shift        bool      `json:"shift,omitempty"`
	Meta         bool      `json:"meta,omitempty"`
	Hidden       bool      `json:"hidden,omitempty"`
	Fullscreen   bool      `json:"fullscreen,omitempty"`
	InCodeEditor bool      `json:"code_editor,omitempty"`

	defaultPrevented   bool
	propagationStopped bool
}

func (e *Event) PreventDefault()          { e.defaultPrevented = true }
func (e *Event) StopImmediatePropagation() { e.propagationStopped = true }
func (e *Event) DefaultPrevented() bool   { return e.defaultPrevented }
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// Listener subscribes to one event type.
type Listener struct {
	Type    EventType
	Capture bool
	Handle  func(*Event)
}

// Environment is the document the learner sees.
//
// Implementations must not invoke listeners synchronously from within
// RequestFullscreen, ExitFullscreen or AddListener.
type Environment interface {
	RequestFullscreen() error
	ExitFullscreen() error
	IsFullscreen() bool
	AddListener(l Listener) (remove func())
}

// Reporter receives the lockdown's findings.
type Reporter interface {
	Violation(kind model.ViolationKind, detail string)
	Warning(kind model.ViolationKind, detail string)
	FullscreenRestored()
}

// Lockdown installs the restriction hooks on an Environment.
type Lockdown struct {
	env      Environment
	reporter Reporter
	log      zerolog.Logger

	// inFullscreen is read by several listeners within a single dispatch.
	inFullscreen atomic.Bool
}

// NewLockdown creates a Lockdown for env reporting to r.
func NewLockdown(env Environment, r Reporter, log zerolog.Logger) *Lockdown {
	return &Lockdown{
		env:      env,
		reporter: r,
		log:      log.With().Str("component", "lockdown").Logger(),
	}
}

// Handle is the scoped acquisition returned by Install. Release undoes it once.
type Handle struct {
	once     sync.Once
	lockdown *Lockdown
	removers []func()
}

// Install subscribes every listener and then asks for fullscreen.
// A fullscreen failure is logged and the exam continues.
func (l *Lockdown) Install() *Handle {
	h := &Handle{lockdown: l}

	listeners := []Listener{
		{Type: EventFullscreenChange, Handle: l.onFullscreenChange},
		{Type: EventVisibilityChange, Handle: l.onVisibilityChange},
		{Type: EventBlur, Handle: l.onBlur},
		{Type: EventKeyDown, Capture: true, Handle: l.onKeyDown},
		{Type: EventContextMenu, Capture: true, Handle: l.onContextMenu},
		{Type: EventCopy, Handle: l.onClipboard(model.ViolationCopy)},
		{Type: EventCut, Handle: l.onClipboard(model.ViolationCut)},
		{Type: EventPaste, Handle: l.onPaste},
		{Type: EventBeforeUnload, Handle: l.onBeforeUnload},
	}
	for _, ln := range listeners {
		h.removers = append(h.removers, l.env.AddListener(ln))
	}

	if l.env.IsFullscreen() {
		l.inFullscreen.Store(true)
	}
	if err := l.env.RequestFullscreen(); err != nil {
		l.log.Warn().Err(err).Msg("Fullscreen request failed")
	}

	return h
}

// Release removes every listener in reverse order of installation and exits
// fullscreen if engaged. Safe to call any number of times.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		for i := len(h.removers) - 1; i >= 0; i-- {
			h.removers[i]()
		}
		h.removers = nil

		l := h.lockdown
		if l.env.IsFullscreen() {
			if err := l.env.ExitFullscreen(); err != nil {
				l.log.Warn().Err(err).Msg("Fullscreen exit failed")
			}
		}
		l.inFullscreen.Store(false)
	})
}

// InFullscreen reports whether fullscreen has been confirmed.
func (l *Lockdown) InFullscreen() bool { return l.inFullscreen.Load() }

// Reengage asks for fullscreen again and reports a cure if the environment
// already is in fullscreen.
func (l *Lockdown) Reengage() error {
	err := l.env.RequestFullscreen()
	if err != nil {
		l.log.Warn().Err(err).Msg("Fullscreen re-request failed")
	}
	if l.env.IsFullscreen() {
		l.inFullscreen.Store(true)
		l.reporter.FullscreenRestored()
	}
	return err
}

func (l *Lockdown) onFullscreenChange(e *Event) {
	if e.Fullscreen {
		l.inFullscreen.Store(true)
		l.reporter.FullscreenRestored()
		return
	}
	if l.inFullscreen.Swap(false) {
		l.reporter.Violation(model.ViolationFullscreenExit, "")
	}
}

// Blur and hidden only count once fullscreen has been confirmed, so the
// permission prompt during load cannot produce violations.
func (l *Lockdown) onVisibilityChange(e *Event) {
	if e.Hidden && l.inFullscreen.Load() {
		l.reporter.Violation(model.ViolationTabHidden, "")
	}
}

func (l *Lockdown) onBlur(e *Event) {
	if l.inFullscreen.Load() {
		l.reporter.Violation(model.ViolationWindowBlur, "")
	}
}

func (l *Lockdown) onKeyDown(e *Event) {
	label, blocked := restrictedKey(e, l.inFullscreen.Load())
	if !blocked {
		return
	}
	e.PreventDefault()
	e.StopImmediatePropagation()
	l.reporter.Violation(model.ViolationRestrictedKey, label)
}

// Right-click is suppressed and warned about but never counted.
func (l *Lockdown) onContextMenu(e *Event) {
	e.PreventDefault()
	e.StopImmediatePropagation()
	l.reporter.Warning(model.ViolationRightClick, "")
}

func (l *Lockdown) onClipboard(kind model.ViolationKind) func(*Event) {
	return func(e *Event) {
		if e.InCodeEditor {
			return
		}
		e.PreventDefault()
		l.reporter.Violation(kind, "")
	}
}

// Paste is suppressed outside the code editor without counting.
func (l *Lockdown) onPaste(e *Event) {
	if e.InCodeEditor {
		return
	}
	e.PreventDefault()
}

func (l *Lockdown) onBeforeUnload(e *Event) {
	e.PreventDefault()
}
