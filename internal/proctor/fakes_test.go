package proctor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
)

type fakeListener struct {
	id int
	Listener
}

// fakeEnv is an in-memory document. Listeners only run from dispatch.
type fakeEnv struct {
	mu         sync.Mutex
	nextID     int
	listeners  []fakeListener
	removed    []EventType
	fullscreen bool
	denyFS     bool
	exitCalls  int
}

func newFakeEnv() *fakeEnv { return &fakeEnv{} }

func (e *fakeEnv) RequestFullscreen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.denyFS {
		return errors.New("fullscreen denied")
	}
	e.fullscreen = true
	return nil
}

func (e *fakeEnv) ExitFullscreen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exitCalls++
	e.fullscreen = false
	return nil
}

func (e *fakeEnv) IsFullscreen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullscreen
}

func (e *fakeEnv) AddListener(l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, fakeListener{id: id, Listener: l})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, fl := range e.listeners {
			if fl.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				e.removed = append(e.removed, fl.Type)
				return
			}
		}
	}
}

func (e *fakeEnv) listenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *fakeEnv) removedOrder() []EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]EventType(nil), e.removed...)
}

// dispatch runs capture listeners first, then bubble listeners, until one stops propagation.
func (e *fakeEnv) dispatch(ev *Event) *Event {
	e.mu.Lock()
	var capture, bubble []func(*Event)
	for _, fl := range e.listeners {
		if fl.Type != ev.Type {
			continue
		}
		if fl.Capture {
			capture = append(capture, fl.Handle)
		} else {
			bubble = append(bubble, fl.Handle)
		}
	}
	e.mu.Unlock()

	for _, h := range append(capture, bubble...) {
		h(ev)
		if ev.PropagationStopped() {
			break
		}
	}
	return ev
}

// enterFullscreen grants fullscreen and fires the change event.
func (e *fakeEnv) enterFullscreen() {
	e.mu.Lock()
	e.fullscreen = true
	e.mu.Unlock()
	e.dispatch(&Event{Type: EventFullscreenChange, Fullscreen: true})
}

// leaveFullscreen simulates the learner pressing Escape.
func (e *fakeEnv) leaveFullscreen() {
	e.mu.Lock()
	e.fullscreen = false
	e.mu.Unlock()
	e.dispatch(&Event{Type: EventFullscreenChange, Fullscreen: false})
}

type fakeNotifier struct {
	mu        sync.Mutex
	renders   int
	last      View
	toasts    []Toast
	navigated []string
}

func (n *fakeNotifier) Render(v View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.renders++
	n.last = v
}

func (n *fakeNotifier) Toast(t Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, t)
}

func (n *fakeNotifier) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navigated = append(n.navigated, target)
}

func (n *fakeNotifier) lastToast() Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return Toast{}
	}
	return n.toasts[len(n.toasts)-1]
}

func (n *fakeNotifier) toastsWith(cat Category) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, t := range n.toasts {
		if t.Category == cat {
			c++
		}
	}
	return c
}

// violationCounts lists the counts carried by counted-violation toasts.
func (n *fakeNotifier) violationCounts() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []int
	seen := 0
	for _, t := range n.toasts {
		if t.Category == CategorySecurityViolation && t.ViolationCount > seen {
			out = append(out, t.ViolationCount)
			seen = t.ViolationCount
		}
	}
	return out
}

func (n *fakeNotifier) navigations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.navigated...)
}

type fakeCollaborator struct {
	dryRun   func(model.DryRunRequest) (*model.DryRunResponse, error)
	submit   func(model.CodeSubmitRequest) (*model.CodeSubmitResponse, error)
	passcode func(model.PasscodeRequest) (*model.PasscodeResponse, error)
}

func (c *fakeCollaborator) DryRun(_ context.Context, req model.DryRunRequest) (*model.DryRunResponse, error) {
	return c.dryRun(req)
}

func (c *fakeCollaborator) SubmitCode(_ context.Context, req model.CodeSubmitRequest) (*model.CodeSubmitResponse, error) {
	return c.submit(req)
}

func (c *fakeCollaborator) ValidatePasscode(_ context.Context, req model.PasscodeRequest) (*model.PasscodeResponse, error) {
	return c.passcode(req)
}

// passcodeCollaborator accepts exactly one code.
func passcodeCollaborator(valid string) *fakeCollaborator {
	return &fakeCollaborator{
		passcode: func(req model.PasscodeRequest) (*model.PasscodeResponse, error) {
			if req.Code == valid {
				return &model.PasscodeResponse{Valid: true}, nil
			}
			return &model.PasscodeResponse{Valid: false, Message: "Invalid passcode"}, nil
		},
	}
}

type fakeSink struct {
	mu        sync.Mutex
	persisted []*model.SubmissionResult
	err       error
}

func (s *fakeSink) Persist(_ context.Context, res *model.SubmissionResult, _ model.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(s.persisted, res)
	return s.err
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persisted)
}

func mcq(id, correct string) *model.MCQQuestion {
	return &model.MCQQuestion{
		ID:            id,
		Prompt:        "Question " + id,
		CorrectOption: correct,
		Marks:         1,
		Options: [4]model.Option{
			{Letter: "A", Text: "a"},
			{Letter: "B", Text: "b"},
			{Letter: "C", Text: "c"},
			{Letter: "D", Text: "d"},
		},
	}
}

func coding(id string, marks int) *model.CodingQuestion {
	return &model.CodingQuestion{
		ID:               id,
		Title:            "Problem " + id,
		ProblemStatement: "Solve it",
		AllowedLanguages: []string{"python", "go"},
		Marks:            marks,
	}
}

func testExam(seconds int, qs ...model.Question) *model.Exam {
	return &model.Exam{
		TestID:               "test-1",
		Name:                 "Unit Test",
		Questions:            qs,
		TotalDurationSeconds: seconds,
	}
}

type harness struct {
	s      *Session
	env    *fakeEnv
	notify *fakeNotifier
	sink   *fakeSink
}

func newHarness(t *testing.T, collab Collaborator) *harness {
	t.Helper()
	h := &harness{
		env:    newFakeEnv(),
		notify: &fakeNotifier{},
		sink:   &fakeSink{},
	}
	h.s = NewSession(Options{
		ID:                  "session-1",
		Student:             model.Student{Email: "learner@example.com", Name: "Learner"},
		Collaborator:        collab,
		Results:             h.sink,
		Notifier:            h.notify,
		Logger:              zerolog.Nop(),
		NavigateDelay:       0,
		MaxOverrideAttempts: DefaultMaxOverrideAttempts,
	})
	return h
}

// start activates the session and confirms fullscreen.
func (h *harness) start(t *testing.T, exam *model.Exam) {
	t.Helper()
	if err := h.s.Activate(exam, h.env); err != nil {
		t.Fatalf("activate: %v", err)
	}
	h.env.enterFullscreen()
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.s.Tick()
	}
}

func (h *harness) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-h.s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}
