package websocket

import (
	"errors"
	"sync"

	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// ErrShimUnavailable is returned when a command cannot reach the browser shim.
var ErrShimUnavailable = errors.New("browser shim unavailable")

type remoteListener struct {
	id int
	proctor.Listener
}

// RemoteDocument is a proctor.Environment whose document lives in the browser.
// Commands go out through the outbox; Dispatch feeds events coming back.
type RemoteDocument struct {
	out *Outbox

	mu         sync.Mutex
	nextID     int
	listeners  []remoteListener
	fullscreen bool
}

// NewRemoteDocument creates a RemoteDocument writing commands to out.
func NewRemoteDocument(out *Outbox) *RemoteDocument {
	return &RemoteDocument{out: out}
}

func (d *RemoteDocument) RequestFullscreen() error {
	return d.command(CommandEvent{Event: EventCommand, Command: CommandRequestFullscreen})
}

func (d *RemoteDocument) ExitFullscreen() error {
	return d.command(CommandEvent{Event: EventCommand, Command: CommandExitFullscreen})
}

// IsFullscreen returns the last fullscreen state reported by the shim.
func (d *RemoteDocument) IsFullscreen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fullscreen
}

// AddListener registers l and asks the shim to forward its event type.
func (d *RemoteDocument) AddListener(l proctor.Listener) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, remoteListener{id: id, Listener: l})
	d.mu.Unlock()

	_ = d.command(CommandEvent{Event: EventCommand, Command: CommandListen, Type: l.Type, Capture: l.Capture})

	return func() {
		d.mu.Lock()
		for i, rl := range d.listeners {
			if rl.id == id {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				break
			}
		}
		d.mu.Unlock()
		_ = d.command(CommandEvent{Event: EventCommand, Command: CommandUnlisten, Type: l.Type, Capture: l.Capture})
	}
}

// Dispatch delivers ev to capture listeners, then bubble listeners, in
// registration order until one stops propagation. It must not be called while
// holding a session lock.
func (d *RemoteDocument) Dispatch(ev *proctor.Event) *proctor.Event {
	d.mu.Lock()
	if ev.Type == proctor.EventFullscreenChange {
		d.fullscreen = ev.Fullscreen
	}
	var capture, bubble []func(*proctor.Event)
	for _, rl := range d.listeners {
		if rl.Type != ev.Type {
			continue
		}
		if rl.Capture {
			capture = append(capture, rl.Handle)
		} else {
			bubble = append(bubble, rl.Handle)
		}
	}
	d.mu.Unlock()

	for _, h := range append(capture, bubble...) {
		h(ev)
		if ev.PropagationStopped() {
			break
		}
	}
	return ev
}

func (d *RemoteDocument) command(c CommandEvent) error {
	if !d.out.Send(c) {
		return ErrShimUnavailable
	}
	return nil
}
