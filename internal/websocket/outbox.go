package websocket

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// frameWriter is the write side of a websocket connection.
type frameWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v any) error
}

// Outbox serializes every write to one connection through a single goroutine.
// Send never blocks; frames are dropped once the buffer is full or the outbox closed.
type Outbox struct {
	w    frameWriter
	ch   chan any
	done chan struct{}
	once sync.Once
	log  zerolog.Logger
}

// NewOutbox creates an Outbox over w with room for size pending frames.
func NewOutbox(w frameWriter, size int, log zerolog.Logger) *Outbox {
	return &Outbox{
		w:    w,
		ch:   make(chan any, size),
		done: make(chan struct{}),
		log:  log,
	}
}

// Send queues v and reports whether it was accepted.
func (o *Outbox) Send(v any) bool {
	select {
	case <-o.done:
		return false
	default:
	}

	select {
	case o.ch <- v:
		return true
	default:
		o.log.Warn().Msg("Outbox full, frame dropped")
		return false
	}
}

// Run writes queued frames until Close or a write error. Frames queued before
// Close are flushed first.
func (o *Outbox) Run() {
	for {
		select {
		case v := <-o.ch:
			if !o.write(v) {
				return
			}
		case <-o.done:
			for {
				select {
				case v := <-o.ch:
					if !o.write(v) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (o *Outbox) write(v any) bool {
	_ = o.w.SetWriteDeadline(time.Now().Add(writeWait))
	if err := o.w.WriteJSON(v); err != nil {
		o.log.Debug().Err(err).Msg("Websocket write failed")
		o.Close()
		return false
	}
	return true
}

// Close stops accepting frames.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}

// Done is closed once the outbox stops accepting frames.
func (o *Outbox) Done() <-chan struct{} { return o.done }
