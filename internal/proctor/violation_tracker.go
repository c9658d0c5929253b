package proctor

import (
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// ViolationThreshold is the counted violation total that ends a session.
const ViolationThreshold = 3

// ViolationTracker counts integrity violations and escalates once the threshold is reached.
//
// The counter is a plain cell read and written synchronously by Record, so two violations
// reported back to back are both counted before either caller returns. Session calls
// CheckThreshold after the violation toast, in the same critical section. It is not safe for
// concurrent use on its own; Session serializes every call under its mutex.
type ViolationTracker struct {
	threshold int
	count     int
	live      bool
	closed    bool
	escalated bool
	last      model.ViolationKind
	events    []model.ViolationEvent
	escalate  func(kind model.ViolationKind)
	now       func() time.Time
}

// NewViolationTracker creates a tracker that calls escalate exactly once, from the
// first CheckThreshold after the count reaches the threshold.
func NewViolationTracker(escalate func(kind model.ViolationKind), now func() time.Time) *ViolationTracker {
	if now == nil {
		now = time.Now
	}
	if escalate == nil {
		escalate = func(model.ViolationKind) {}
	}
	return &ViolationTracker{
		threshold: ViolationThreshold,
		escalate:  escalate,
		now:       now,
	}
}

// Arm starts accepting violations. Called once the exam payload has loaded.
func (t *ViolationTracker) Arm() {
	if !t.closed {
		t.live = true
	}
}

// Close stops accepting violations for good.
func (t *ViolationTracker) Close() {
	t.closed = true
	t.live = false
}

// Record counts one violation of any kind and returns the current count.
// Calls before Arm or after Close are ignored.
func (t *ViolationTracker) Record(kind model.ViolationKind, detail string) int {
	if !t.live || t.closed {
		return t.count
	}

	t.count++
	t.events = append(t.events, model.ViolationEvent{
		Kind:      kind,
		Timestamp: t.now(),
		Detail:    detail,
		Counted:   true,
	})

	t.last = kind
	return t.count
}

// CheckThreshold calls escalate once the count has reached the threshold and
// reports whether it did. Later calls return false.
func (t *ViolationTracker) CheckThreshold() bool {
	if t.escalated || t.count < t.threshold {
		return false
	}
	t.escalated = true
	t.escalate(t.last)
	return true
}

// Note appends an uncounted entry to the log (right-click warnings).
func (t *ViolationTracker) Note(kind model.ViolationKind, detail string) {
	if !t.live || t.closed {
		return
	}
	t.events = append(t.events, model.ViolationEvent{
		Kind:      kind,
		Timestamp: t.now(),
		Detail:    detail,
	})
}

// Count returns the number of counted violations.
func (t *ViolationTracker) Count() int { return t.count }

// Threshold returns the escalation threshold.
func (t *ViolationTracker) Threshold() int { return t.threshold }

// Live reports whether violations are currently accepted.
func (t *ViolationTracker) Live() bool { return t.live && !t.closed }

// Events returns a copy of the ordered violation log.
func (t *ViolationTracker) Events() []model.ViolationEvent {
	out := make([]model.ViolationEvent, len(t.events))
	copy(out, t.events)
	return out
}
