package handler

import (
	"sync"

	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/service"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

// streamNotifier forwards session output to the socket and mirrors integrity
// events to the supervisors' monitor channel.
type streamNotifier struct {
	out     *ws.Outbox
	monitor *service.MonitorService
	testID  string
	student model.Student

	mu         sync.Mutex
	sessionID  string
	violations int
}

func newStreamNotifier(out *ws.Outbox, monitor *service.MonitorService, testID string, student model.Student) *streamNotifier {
	return &streamNotifier{out: out, monitor: monitor, testID: testID, student: student}
}

// bind attaches the session id used on monitor events.
func (n *streamNotifier) bind(sessionID string) {
	n.mu.Lock()
	n.sessionID = sessionID
	n.mu.Unlock()
}

func (n *streamNotifier) Render(v proctor.View) {
	n.out.Send(ws.SnapshotEvent{Event: ws.EventSnapshot, View: v})
}

func (n *streamNotifier) Toast(t proctor.Toast) {
	n.out.Send(ws.ToastEvent{Event: ws.EventToast, Toast: t})
	if t.Category != proctor.CategorySecurityViolation {
		return
	}

	n.emit(service.MonitorEvent{
		Type:           n.classify(t),
		ViolationKind:  string(t.Kind),
		ViolationCount: t.ViolationCount,
		Message:        t.Message,
	})
}

// classify tells counted violations, which raise the count, from uncounted warnings.
func (n *streamNotifier) classify(t proctor.Toast) service.MonitorEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t.ViolationCount > n.violations {
		n.violations = t.ViolationCount
		return service.MonitorViolation
	}
	return service.MonitorWarning
}

func (n *streamNotifier) Navigate(target string) {
	n.out.Send(ws.NavigateEvent{Event: ws.EventNavigate, Target: target})
}

func (n *streamNotifier) emit(ev service.MonitorEvent) {
	if n.monitor == nil {
		return
	}
	n.mu.Lock()
	ev.SessionID = n.sessionID
	n.mu.Unlock()
	ev.TestID = n.testID
	ev.StudentEmail = n.student.Email
	ev.StudentName = n.student.Name
	n.monitor.Emit(ev)
}
