package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/observability"
	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// ErrSessionActive is returned when the student already has a live session on the test.
var ErrSessionActive = errors.New("a session is already active for this test")

// TestLoader fetches and builds the exam of a test.
type TestLoader interface {
	LoadTest(ctx context.Context, testID string) (*model.Exam, error)
}

// SessionSettings are the per-deployment session parameters.
type SessionSettings struct {
	NavigateDelay       time.Duration
	MaxOverrideAttempts int
	LoadTimeout         time.Duration
}

// SessionService owns every live session of this process.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*proctor.Session
	active   map[string]string // student+test → session id

	loader   TestLoader
	collab   proctor.Collaborator
	results  proctor.ResultSink
	settings SessionSettings
	log      zerolog.Logger

	// baseCtx outlives request contexts; countdown loops run on it.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSessionService creates a new SessionService.
func NewSessionService(loader TestLoader, collab proctor.Collaborator, results proctor.ResultSink, settings SessionSettings, log zerolog.Logger) *SessionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionService{
		sessions: make(map[string]*proctor.Session),
		active:   make(map[string]string),
		loader:   loader,
		collab:   collab,
		results:  results,
		settings: settings,
		log:      log.With().Str("component", "session_service").Logger(),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

func activeKey(testID, email string) string {
	return testID + "\x00" + email
}

// Open registers a session, loads the test and activates the lockdown on env.
// On load failure the session is returned in Ended together with the error.
func (s *SessionService) Open(ctx context.Context, student model.Student, testID string, notifier proctor.Notifier, env proctor.Environment) (*proctor.Session, error) {
	key := activeKey(testID, student.Email)

	s.mu.Lock()
	if _, busy := s.active[key]; busy {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	sess := proctor.NewSession(proctor.Options{
		ID:                  uuid.NewString(),
		Student:             student,
		Collaborator:        s.collab,
		Results:             s.results,
		Notifier:            notifier,
		Logger:              s.log,
		NavigateDelay:       s.settings.NavigateDelay,
		MaxOverrideAttempts: s.settings.MaxOverrideAttempts,
	})
	s.sessions[sess.ID()] = sess
	s.active[key] = sess.ID()
	s.mu.Unlock()

	observability.LiveSessions.Inc()
	s.wg.Add(1)
	go s.reap(sess, key)

	loadCtx := ctx
	if s.settings.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, s.settings.LoadTimeout)
		defer cancel()
	}

	exam, err := s.loader.LoadTest(loadCtx, testID)
	if err != nil {
		sess.Fail(err)
		return sess, err
	}

	if err := sess.Activate(exam, env); err != nil {
		return sess, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.Run(s.baseCtx)
	}()

	return sess, nil
}

// reap unregisters a session once it is done.
func (s *SessionService) reap(sess *proctor.Session, key string) {
	defer s.wg.Done()
	<-sess.Done()

	s.mu.Lock()
	delete(s.sessions, sess.ID())
	if s.active[key] == sess.ID() {
		delete(s.active, key)
	}
	s.mu.Unlock()

	observability.LiveSessions.Dec()
}

// Get returns a live session by id.
func (s *SessionService) Get(id string) (*proctor.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Live returns the registered sessions of one test, ordered by student email.
func (s *SessionService) Live(testID string) []*proctor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make([]*proctor.Session, 0)
	for key, id := range s.active {
		if strings.HasPrefix(key, testID+"\x00") {
			live = append(live, s.sessions[id])
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].Student().Email < live[j].Student().Email
	})
	return live
}

// Count returns the number of registered sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown terminates every live session and waits for their results to be persisted.
func (s *SessionService) Shutdown(ctx context.Context, reason string) error {
	s.mu.Lock()
	live := make([]*proctor.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.Terminate(reason)
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Int("sessions", len(live)).Msg("All sessions closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
