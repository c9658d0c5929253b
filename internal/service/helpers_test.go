package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return server, rdb
}

type stubSubmitter struct {
	mu      sync.Mutex
	err     error
	records []model.TestResultRecord
}

func (s *stubSubmitter) SubmitResult(_ context.Context, rec model.TestResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

type stubArchive struct {
	mu     sync.Mutex
	saved  map[string]repository.ArchivedResult
	synced map[string]time.Time
}

func newStubArchive() *stubArchive {
	return &stubArchive{
		saved:  make(map[string]repository.ArchivedResult),
		synced: make(map[string]time.Time),
	}
}

func (a *stubArchive) Save(_ context.Context, res *model.SubmissionResult, student model.Student) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved[res.SessionID] = repository.ArchivedResult{SubmissionResult: *res, Student: student}
	return nil
}

func (a *stubArchive) MarkSynced(_ context.Context, sessionID string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.synced[sessionID] = at
	return nil
}

func (a *stubArchive) LatestForStudent(_ context.Context, testID, email string) (*repository.ArchivedResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.saved {
		if r.TestID == testID && r.Student.Email == email {
			out := r
			return &out, nil
		}
	}
	return nil, repository.ErrResultNotFound
}

var errPlatformDown = errors.New("platform down")

func sampleResult() *model.SubmissionResult {
	return &model.SubmissionResult{
		SessionID:  "7f0c5f4e-2b1a-4a53-9a43-2f0f3c1f9b10",
		TestID:     "t1",
		TestName:   "Quiz",
		Score:      1,
		MaxScore:   2,
		Percentage: 50,
		Breakdown: []model.QuestionOutcome{
			{QuestionID: "q1", Kind: model.QuestionKindMCQ, Answered: true, Selected: "B", Correct: true},
			{QuestionID: "q2", Kind: model.QuestionKindMCQ},
			{QuestionID: "c1", Kind: model.QuestionKindCoding, Answered: true},
		},
		TerminationReason: "Submitted with supervisor approval",
		CompletedAt:       time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	}
}

var sampleStudent = model.Student{Email: "ada@example.com", Name: "Ada", Department: "CSE", SINNumber: "SIN-1"}
