package proctor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/observability"
)

const (
	DefaultNavigateDelay       = 3 * time.Second
	DefaultPersistTimeout      = 10 * time.Second
	DefaultMaxOverrideAttempts = 5

	// ExitRoute is where the learner is sent once a session ends.
	ExitRoute = "/student/tests"

	passcodeTypeSupervisor = "supervisor"
)

// Collaborator is the remote code-execution and passcode service.
type Collaborator interface {
	DryRun(ctx context.Context, req model.DryRunRequest) (*model.DryRunResponse, error)
	SubmitCode(ctx context.Context, req model.CodeSubmitRequest) (*model.CodeSubmitResponse, error)
	ValidatePasscode(ctx context.Context, req model.PasscodeRequest) (*model.PasscodeResponse, error)
}

// ResultSink persists a compiled result. Failures are logged and never block navigation.
type ResultSink interface {
	Persist(ctx context.Context, res *model.SubmissionResult, student model.Student) error
}

// Notifier receives everything shown to the learner. Implementations must be
// safe for concurrent use and must not block.
type Notifier interface {
	Render(v View)
	Toast(t Toast)
	Navigate(target string)
}

type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a transient learner notification.
type Toast struct {
	Level          ToastLevel          `json:"level"`
	Category       Category            `json:"category"`
	Kind           model.ViolationKind `json:"kind,omitempty"`
	Message        string              `json:"message"`
	ViolationCount int                 `json:"violation_count"`
	ViolationLimit int                 `json:"violation_limit"`
}

// Cause labels why a session ended.
type Cause string

const (
	CauseViolations     Cause = "violations"
	CauseGraceExpired   Cause = "grace_expired"
	CauseSupervisor     Cause = "supervisor_override"
	CauseOverrideFailed Cause = "override_failed"
	CauseExternal       Cause = "external"
)

// Options configures a Session.
type Options struct {
	ID                  string
	Student             model.Student
	Collaborator        Collaborator
	Results             ResultSink
	Notifier            Notifier
	Logger              zerolog.Logger
	NavigateDelay       time.Duration
	PersistTimeout      time.Duration
	MaxOverrideAttempts int
	Now                 func() time.Time
}

// Session is the proctored test-session state machine:
// Loading → InProgress → (AwaitingSupervisorOverride) → Ended.
// All mutation happens under mu.
type Session struct {
	mu sync.Mutex

	id       string
	student  model.Student
	collab   Collaborator
	results  ResultSink
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time

	navigateDelay       time.Duration
	persistTimeout      time.Duration
	maxOverrideAttempts int

	exam    *model.Exam
	state   model.SessionState
	answers map[string]model.Answer
	marked  map[string]bool
	current int

	dryRuns     map[string]*model.DryRunResponse
	codeResults map[string]*model.CodeSubmitResponse

	tracker    *ViolationTracker
	examTimer  *Countdown
	graceTimer *Countdown

	warning     bool
	warningKind model.ViolationKind

	timeUp           bool
	overrideErr      string
	overrideAttempts int

	lockdown *Lockdown
	handle   *Handle

	reason  string
	loadErr error
	result  *model.SubmissionResult

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession creates a session in the Loading state.
func NewSession(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NavigateDelay < 0 {
		opts.NavigateDelay = 0
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}

	s := &Session{
		id:                  opts.ID,
		student:             opts.Student,
		collab:              opts.Collaborator,
		results:             opts.Results,
		notifier:            opts.Notifier,
		now:                 opts.Now,
		navigateDelay:       opts.NavigateDelay,
		persistTimeout:      opts.PersistTimeout,
		maxOverrideAttempts: opts.MaxOverrideAttempts,
		state:               model.SessionStateLoading,
		answers:             make(map[string]model.Answer),
		marked:              make(map[string]bool),
		dryRuns:             make(map[string]*model.DryRunResponse),
		codeResults:         make(map[string]*model.CodeSubmitResponse),
		done:                make(chan struct{}),
		log: opts.Logger.With().
			Str("session_id", opts.ID).
			Str("student", opts.Student.Email).
			Logger(),
	}
	s.tracker = NewViolationTracker(s.escalateLocked, s.now)
	s.graceTimer = NewCountdown(GraceSeconds, s.graceExpiredLocked)

	return s
}

// Activate loads the exam, installs the lockdown on env and starts the exam timer.
func (s *Session) Activate(exam *model.Exam, env Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateLoading {
		return ErrAlreadyActive
	}

	s.exam = exam
	s.log = s.log.With().Str("test_id", exam.TestID).Logger()
	s.examTimer = NewCountdown(exam.TotalDurationSeconds, s.handleTimeUpLocked)
	s.state = model.SessionStateInProgress
	s.tracker.Arm()

	s.lockdown = NewLockdown(env, s, s.log)
	s.handle = s.lockdown.Install()
	s.examTimer.Start()

	s.log.Info().
		Int("questions", len(exam.Questions)).
		Int("duration_seconds", exam.TotalDurationSeconds).
		Msg("Session in progress")

	s.renderLocked()
	return nil
}

// Fail ends a session whose exam data could not be loaded. No result is compiled.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateLoading {
		return
	}
	s.failLocked(err)
}

func (s *Session) failLocked(err error) {
	s.state = model.SessionStateEnded
	s.loadErr = err
	s.reason = "exam data could not be loaded"
	s.tracker.Close()

	s.log.Error().Err(err).Msg("Session failed to load")
	s.notifier.Toast(Toast{
		Level:    ToastError,
		Category: CategoryLoadFailure,
		Message:  "The test could not be loaded. Return to the test list and try again.",
	})
	s.renderLocked()
	s.closeDone()
}

// Tick advances both countdowns by one second. It returns false once the session has ended.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionStateEnded {
		return false
	}

	changed := false
	if s.examTimer != nil && s.examTimer.Active() {
		s.examTimer.Tick()
		changed = true
	}
	if warningShown(s.state, s.warning) && s.graceTimer.Active() {
		s.graceTimer.Tick()
		changed = true
	}

	if s.state == model.SessionStateEnded {
		return false
	}
	if changed {
		s.renderLocked()
	}
	return true
}

// Run ticks the session once per second until it ends or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if !s.Tick() {
				return
			}
		}
	}
}

// ─── Reporter ───────────────────────────────────────────────────────

// Violation counts a violation reported by the lockdown.
func (s *Session) Violation(kind model.ViolationKind, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tracker.Live() {
		return
	}

	count := s.tracker.Record(kind, detail)
	observability.ViolationsTotal.WithLabelValues(string(kind), "true").Inc()
	s.log.Info().
		Str("kind", string(kind)).
		Str("detail", detail).
		Int("count", count).
		Msg("Violation recorded")

	label := kind.Label()
	if detail != "" {
		label += " (" + detail + ")"
	}
	s.notifier.Toast(Toast{
		Level:          ToastWarning,
		Category:       CategorySecurityViolation,
		Kind:           kind,
		Message:        fmt.Sprintf("%s detected. Violation %d of %d.", label, count, s.tracker.Threshold()),
		ViolationCount: count,
		ViolationLimit: s.tracker.Threshold(),
	})

	if s.tracker.CheckThreshold() {
		return
	}

	if kind.RequiresCure() {
		s.warning = true
		s.warningKind = kind
		s.graceTimer.Reset()
		s.graceTimer.Start()
	}
	s.renderLocked()
}

// Warning logs an uncounted violation and tells the learner.
func (s *Session) Warning(kind model.ViolationKind, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tracker.Live() {
		return
	}

	s.tracker.Note(kind, detail)
	observability.ViolationsTotal.WithLabelValues(string(kind), "false").Inc()
	s.notifier.Toast(Toast{
		Level:          ToastWarning,
		Category:       CategorySecurityViolation,
		Kind:           kind,
		Message:        fmt.Sprintf("%s is disabled during the test.", kind.Label()),
		ViolationCount: s.tracker.Count(),
		ViolationLimit: s.tracker.Threshold(),
	})
}

// FullscreenRestored cures a pending warning and rearms the grace timer at its full value.
func (s *Session) FullscreenRestored() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionStateEnded || !s.warning {
		return
	}

	s.warning = false
	s.warningKind = ""
	s.graceTimer.Reset()
	s.notifier.Toast(Toast{
		Level:          ToastInfo,
		Category:       CategoryInfo,
		Message:        "Fullscreen restored.",
		ViolationCount: s.tracker.Count(),
		ViolationLimit: s.tracker.Threshold(),
	})
	s.renderLocked()
}

func (s *Session) escalateLocked(kind model.ViolationKind) {
	s.terminateLocked(CauseViolations,
		fmt.Sprintf("Maximum violations reached (%d): %s", s.tracker.Threshold(), kind.Label()))
}

func (s *Session) graceExpiredLocked() {
	s.terminateLocked(CauseGraceExpired, "Violation time-out: failed to cure violation in time")
}

func (s *Session) handleTimeUpLocked() {
	if s.state == model.SessionStateEnded {
		return
	}
	s.timeUp = true
	s.state = model.SessionStateAwaitingSupervisorOverride
	s.overrideErr = ""
	s.overrideAttempts = 0

	s.log.Info().Msg("Exam time is up")
	s.notifier.Toast(Toast{
		Level:    ToastWarning,
		Category: CategoryInfo,
		Message:  "Time is up. Ask your supervisor to enter the passcode to submit.",
	})
}

// ─── Learner operations ─────────────────────────────────────────────

// AnswerQuestion overwrites the stored answer for id. The value is not validated.
func (s *Session) AnswerQuestion(id string, ans model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}
	if _, _, ok := s.exam.Question(id); !ok {
		return ErrUnknownQuestion
	}

	s.answers[id] = ans
	s.renderLocked()
	return nil
}

// MarkForReview toggles the review flag of id and advances to the next question.
func (s *Session) MarkForReview(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}
	_, idx, ok := s.exam.Question(id)
	if !ok {
		return ErrUnknownQuestion
	}

	if s.marked[id] {
		delete(s.marked, id)
	} else {
		s.marked[id] = true
	}
	s.advanceFromLocked(idx)

	s.renderLocked()
	return nil
}

// ClearAnswer removes the answer or code entry of id.
func (s *Session) ClearAnswer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}
	if _, _, ok := s.exam.Question(id); !ok {
		return ErrUnknownQuestion
	}

	delete(s.answers, id)
	s.renderLocked()
	return nil
}

// Goto moves to the question at index.
func (s *Session) Goto(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(s.exam.Questions) {
		return ErrUnknownQuestion
	}

	s.current = index
	s.renderLocked()
	return nil
}

func (s *Session) Next() error { return s.step(1) }
func (s *Session) Prev() error { return s.step(-1) }

func (s *Session) step(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}
	next := s.current + delta
	if next < 0 || next >= len(s.exam.Questions) {
		return nil
	}
	s.current = next
	s.renderLocked()
	return nil
}

func (s *Session) advanceFromLocked(idx int) {
	if idx+1 < len(s.exam.Questions) {
		s.current = idx + 1
	} else {
		s.current = idx
	}
}

// submitAllowed reports whether elapsed/total ≥ 0.9, compared in integers.
func submitAllowed(elapsed, total int) bool {
	return total > 0 && elapsed*10 >= total*9
}

// SubmitManually opens the supervisor override once 90% of the duration has elapsed.
func (s *Session) SubmitManually() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}

	total := s.examTimer.Initial()
	elapsed := total - s.examTimer.Remaining()
	if !submitAllowed(elapsed, total) {
		return s.rejectLocked(ErrTooEarly)
	}

	s.state = model.SessionStateAwaitingSupervisorOverride
	s.timeUp = false
	s.overrideErr = ""
	s.examTimer.Stop()

	s.renderLocked()
	return nil
}

// DismissOverride returns to InProgress while time remains.
func (s *Session) DismissOverride() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateAwaitingSupervisorOverride {
		return ErrNotAwaitingOverride
	}
	if s.timeUp {
		return s.rejectLocked(ErrDismissAfterTimeUp)
	}

	s.state = model.SessionStateInProgress
	s.overrideErr = ""
	s.examTimer.Start()

	s.renderLocked()
	return nil
}

// SubmitPasscode validates the supervisor passcode and ends the session when it is valid.
func (s *Session) SubmitPasscode(ctx context.Context, code string) error {
	s.mu.Lock()
	if s.state != model.SessionStateAwaitingSupervisorOverride {
		s.mu.Unlock()
		return ErrNotAwaitingOverride
	}
	if strings.TrimSpace(code) == "" {
		err := s.rejectLocked(ErrEmptyCode)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	resp, err := s.collab.ValidatePasscode(ctx, model.PasscodeRequest{Code: code, Type: passcodeTypeSupervisor})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionStateEnded {
		return ErrSessionEnded
	}
	if s.state != model.SessionStateAwaitingSupervisorOverride {
		return ErrNotAwaitingOverride
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Passcode validation failed")
		s.notifier.Toast(Toast{
			Level:    ToastError,
			Category: CategoryNetworkTransient,
			Message:  "Could not verify the passcode. Please try again.",
		})
		return fmt.Errorf("validate passcode: %w", err)
	}

	if !resp.Valid {
		msg := resp.Message
		if msg == "" {
			msg = ErrInvalidPasscode.Error()
		}
		s.overrideErr = msg
		s.notifier.Toast(Toast{Level: ToastError, Category: CategoryValidation, Message: msg})

		if s.timeUp {
			s.overrideAttempts++
			if s.maxOverrideAttempts > 0 && s.overrideAttempts >= s.maxOverrideAttempts {
				s.terminateLocked(CauseOverrideFailed, "Time up: supervisor override failed")
				return ErrInvalidPasscode
			}
		}
		s.renderLocked()
		return ErrInvalidPasscode
	}

	reason := "Submitted with supervisor approval"
	if s.timeUp {
		reason = "Time up: submitted with supervisor approval"
	}
	s.terminateLocked(CauseSupervisor, reason)
	return nil
}

// ReturnToFullscreen asks the environment for fullscreen while a warning is shown.
func (s *Session) ReturnToFullscreen() error {
	s.mu.Lock()
	ld := s.lockdown
	pending := s.state != model.SessionStateEnded && s.warning
	s.mu.Unlock()

	if ld == nil || !pending {
		return nil
	}
	return ld.Reengage()
}

// RunDryRun executes code against the sample cases. Only the returned result is recorded.
func (s *Session) RunDryRun(ctx context.Context, questionID, code, language string) (*model.DryRunResponse, error) {
	s.mu.Lock()
	if err := s.codingPreconditionLocked(questionID, code); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	resp, err := s.collab.DryRun(ctx, model.DryRunRequest{
		QuestionID: questionID,
		Code:       code,
		Language:   language,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionStateEnded {
		return nil, ErrSessionEnded
	}
	if err != nil {
		s.log.Warn().Err(err).Str("question_id", questionID).Msg("Dry run failed")
		s.notifier.Toast(Toast{
			Level:    ToastError,
			Category: CategoryNetworkTransient,
			Message:  "Dry run failed. Please try again.",
		})
		return nil, fmt.Errorf("dry run: %w", err)
	}

	s.dryRuns[questionID] = resp
	s.renderLocked()
	return resp, nil
}

// SubmitCode submits code for scoring and advances on success.
func (s *Session) SubmitCode(ctx context.Context, questionID, code, language string) (*model.CodeSubmitResponse, error) {
	s.mu.Lock()
	if err := s.codingPreconditionLocked(questionID, code); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	req := model.CodeSubmitRequest{
		QuestionID: questionID,
		Code:       code,
		Language:   language,
		StudentID:  s.student.Email,
		TestID:     s.exam.TestID,
	}
	s.mu.Unlock()

	resp, err := s.collab.SubmitCode(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionStateEnded {
		return nil, ErrSessionEnded
	}
	if err != nil {
		s.log.Warn().Err(err).Str("question_id", questionID).Msg("Code submission failed")
		s.notifier.Toast(Toast{
			Level:    ToastError,
			Category: CategoryNetworkTransient,
			Message:  "Code submission failed. Please try again.",
		})
		return nil, fmt.Errorf("submit code: %w", err)
	}

	if !resp.Success {
		s.notifier.Toast(Toast{
			Level:    ToastWarning,
			Category: CategoryInfo,
			Message:  fmt.Sprintf("Submission not accepted (%s).", resp.Status),
		})
		s.renderLocked()
		return resp, nil
	}

	s.codeResults[questionID] = resp
	s.notifier.Toast(Toast{
		Level:    ToastSuccess,
		Category: CategoryInfo,
		Message:  fmt.Sprintf("Code submitted: %d/%d test cases passed.", resp.TestResults.Passed, resp.TestResults.Total),
	})
	if _, idx, ok := s.exam.Question(questionID); ok {
		s.advanceFromLocked(idx)
	}
	s.renderLocked()
	return resp, nil
}

func (s *Session) codingPreconditionLocked(questionID, code string) error {
	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}
	q, _, ok := s.exam.Question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if q.Kind() != model.QuestionKindCoding {
		return ErrNotCodingQuestion
	}
	if strings.TrimSpace(code) == "" {
		return s.rejectLocked(ErrEmptyCode)
	}
	return nil
}

// rejectLocked surfaces a validation error as a toast without changing state.
func (s *Session) rejectLocked(err error) error {
	s.notifier.Toast(Toast{
		Level:          ToastError,
		Category:       Classify(err),
		Message:        err.Error(),
		ViolationCount: s.tracker.Count(),
		ViolationLimit: s.tracker.Threshold(),
	})
	return err
}

// ─── Termination ────────────────────────────────────────────────────

// Terminate ends the session. Only the first call has any effect.
func (s *Session) Terminate(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionStateLoading {
		s.failLocked(fmt.Errorf("%w: %s", ErrLoadFailure, reason))
		return true
	}
	return s.terminateLocked(CauseExternal, reason)
}

// terminateLocked flips the state before anything else so every later caller
// observes Ended and returns.
func (s *Session) terminateLocked(cause Cause, reason string) bool {
	if s.state == model.SessionStateEnded {
		return false
	}

	s.state = model.SessionStateEnded
	s.reason = reason

	if s.examTimer != nil {
		s.examTimer.Stop()
	}
	s.graceTimer.Stop()
	s.warning = false
	s.tracker.Close()
	s.handle.Release()

	scores := make(map[string]float64, len(s.codeResults))
	for id, r := range s.codeResults {
		scores[id] = r.Score
	}
	res := CompileResult(s.exam.Questions, s.answers, scores)
	res.SessionID = s.id
	res.TestID = s.exam.TestID
	res.TestName = s.exam.Name
	res.TerminationReason = reason
	res.ViolationCount = s.tracker.Count()
	res.CompletedAt = s.now()
	s.result = &res

	observability.TerminationsTotal.WithLabelValues(string(cause)).Inc()
	s.log.Info().
		Str("cause", string(cause)).
		Str("reason", reason).
		Int("score", res.Score).
		Int("max_score", res.MaxScore).
		Int("violations", res.ViolationCount).
		Msg("Session ended")

	s.renderLocked()
	go s.finish(s.result)
	return true
}

// finish persists the result, tells the learner, then navigates after the fixed delay.
func (s *Session) finish(res *model.SubmissionResult) {
	if s.results != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		if err := s.results.Persist(ctx, res, s.student); err != nil {
			s.log.Warn().Err(err).Msg("Result persistence failed, kept in local cache")
		}
		cancel()
	}

	s.notifier.Toast(Toast{
		Level:          ToastSuccess,
		Category:       CategoryInfo,
		Message:        "Test Completed. " + res.TerminationReason,
		ViolationCount: res.ViolationCount,
		ViolationLimit: ViolationThreshold,
	})

	if s.navigateDelay > 0 {
		t := time.NewTimer(s.navigateDelay)
		<-t.C
	}
	s.notifier.Navigate(ExitRoute)
	s.closeDone()
}

func (s *Session) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// ─── Accessors ──────────────────────────────────────────────────────

func (s *Session) ID() string { return s.id }

func (s *Session) Student() model.Student { return s.student }

// Done is closed after navigation away from an ended session, or on load failure.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Result returns the compiled result, or nil before the session has ended.
func (s *Session) Result() *model.SubmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) ViolationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Count()
}

// Answer returns the stored answer for id.
func (s *Session) Answer(id string) (model.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[id]
	return a, ok
}

// Answers returns a copy of the answer map.
func (s *Session) Answers() map[string]model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Answer, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func (s *Session) Marked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marked[id]
}

func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// View returns the current display snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) renderLocked() {
	s.notifier.Render(s.viewLocked())
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:      s.id,
		State:          s.state,
		CurrentIndex:   s.current,
		ViolationCount: s.tracker.Count(),
		ViolationLimit: s.tracker.Threshold(),
		Violations:     s.tracker.Events(),
		Reason:         s.reason,
		Result:         s.result,
	}

	grace := 0
	if s.warning {
		grace = s.graceTimer.Remaining()
	}
	v.Dialog = dialogFor(dialogInput{
		state:        s.state,
		timeUp:       s.timeUp,
		overrideErr:  s.overrideErr,
		warning:      s.warning,
		warningKind:  s.warningKind,
		graceSeconds: grace,
	})

	if s.exam == nil {
		return v
	}

	v.TestID = s.exam.TestID
	v.TestName = s.exam.Name
	v.TotalSeconds = s.examTimer.Initial()
	v.RemainingSeconds = s.examTimer.Remaining()
	v.CanSubmit = s.state == model.SessionStateInProgress &&
		submitAllowed(v.TotalSeconds-v.RemainingSeconds, v.TotalSeconds)

	v.Palette = make([]PaletteEntry, len(s.exam.Questions))
	for i, q := range s.exam.Questions {
		v.Palette[i] = PaletteEntry{
			Index:      i,
			QuestionID: q.QuestionID(),
			Kind:       q.Kind(),
			Status:     paletteStatus(q, i, s.current, s.answers, s.marked),
		}
	}

	if s.current < len(s.exam.Questions) {
		q := s.exam.Questions[s.current]
		v.Question = questionView(q)
		if a, ok := s.answers[q.QuestionID()]; ok {
			v.Answer = &a
		}
		if q.Kind() == model.QuestionKindCoding {
			v.DryRun = s.dryRuns[q.QuestionID()]
			v.CodeResult = s.codeResults[q.QuestionID()]
		}
	}

	return v
}

type nopNotifier struct{}

func (nopNotifier) Render(View)     {}
func (nopNotifier) Toast(Toast)     {}
func (nopNotifier) Navigate(string) {}
