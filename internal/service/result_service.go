package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/observability"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// ErrResultNotFound is returned when neither the cache nor the archive holds a result.
var ErrResultNotFound = errors.New("result not found")

// ResultSubmitter posts result records to the results collaborator.
type ResultSubmitter interface {
	SubmitResult(ctx context.Context, rec model.TestResultRecord) error
}

// ResultArchive is the durable store behind the local cache.
type ResultArchive interface {
	Save(ctx context.Context, res *model.SubmissionResult, student model.Student) error
	MarkSynced(ctx context.Context, sessionID string, at time.Time) error
	LatestForStudent(ctx context.Context, testID, email string) (*repository.ArchivedResult, error)
}

// QueuedResult is the payload of the retry queue.
type QueuedResult struct {
	Record   model.TestResultRecord `json:"record"`
	Attempts int                    `json:"attempts"`
}

// ResultService persists compiled results: local cache first, then archive, then
// the results collaborator. Collaborator failures are queued for the sync worker.
type ResultService struct {
	rdb       *redis.Client
	submitter ResultSubmitter
	archive   ResultArchive
	ttl       time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewResultService creates a ResultService. archive may be nil.
func NewResultService(rdb *redis.Client, submitter ResultSubmitter, archive ResultArchive, ttl time.Duration, log zerolog.Logger) *ResultService {
	return &ResultService{
		rdb:       rdb,
		submitter: submitter,
		archive:   archive,
		ttl:       ttl,
		log:       log.With().Str("component", "result_service").Logger(),
		now:       time.Now,
	}
}

// BuildRecord maps a compiled result to the results collaborator body.
// Answers is the JSON-encoded map of question id to selected option.
func BuildRecord(res *model.SubmissionResult, student model.Student) model.TestResultRecord {
	answers := make(map[string]string, len(res.Breakdown))
	for _, o := range res.Breakdown {
		if o.Kind == model.QuestionKindMCQ && o.Answered {
			answers[o.QuestionID] = o.Selected
		}
	}
	encoded, _ := json.Marshal(answers)

	completed := res.CompletedAt.UTC()
	return model.TestResultRecord{
		TestID:      res.TestID,
		TestName:    res.TestName,
		UserEmail:   student.Email,
		StudentName: student.Name,
		Department:  student.Department,
		SINNumber:   student.SINNumber,
		TotalScore:  res.Score,
		MaxScore:    res.MaxScore,
		Percentage:  res.Percentage,
		CompletedAt: completed.Format(time.RFC3339),
		Date:        completed.Format(time.DateOnly),
		Answers:     string(encoded),
		SessionID:   res.SessionID,
	}
}

// Persist implements proctor.ResultSink.
func (s *ResultService) Persist(ctx context.Context, res *model.SubmissionResult, student model.Student) error {
	rec := BuildRecord(res, student)
	log := s.log.With().Str("session_id", res.SessionID).Str("test_id", res.TestID).Logger()

	if err := s.cache(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("Result cache write failed")
	}

	if s.archive != nil {
		if err := s.archive.Save(ctx, res, student); err != nil {
			log.Warn().Err(err).Msg("Result archive write failed")
		}
	}

	if err := s.submit(ctx, rec); err != nil {
		if qErr := s.Enqueue(ctx, QueuedResult{Record: rec, Attempts: 1}); qErr != nil {
			observability.ResultPersistTotal.WithLabelValues("lost").Inc()
			log.Error().Err(qErr).Msg("Result could not be queued for retry")
			return fmt.Errorf("submit result: %w (queue: %v)", err, qErr)
		}
		observability.ResultPersistTotal.WithLabelValues("queued").Inc()
		return fmt.Errorf("submit result: %w", err)
	}

	observability.ResultPersistTotal.WithLabelValues("submitted").Inc()
	log.Info().Int("score", rec.TotalScore).Int("max_score", rec.MaxScore).Msg("Result submitted")
	return nil
}

// Sync retries one queued record. Used by the result sync worker.
func (s *ResultService) Sync(ctx context.Context, q QueuedResult) error {
	if err := s.submit(ctx, q.Record); err != nil {
		return err
	}
	observability.ResultPersistTotal.WithLabelValues("synced").Inc()
	return nil
}

// Enqueue appends a record to the retry queue.
func (s *ResultService) Enqueue(ctx context.Context, q QueuedResult) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
}

// Lookup returns the stored result of a student on a test, from the cache or the archive.
func (s *ResultService) Lookup(ctx context.Context, testID, email string) (*model.TestResultRecord, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.TestResultKey(testID, email)).Bytes()
	switch {
	case err == nil:
		var rec model.TestResultRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode cached result: %w", err)
		}
		return &rec, nil
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Msg("Result cache read failed")
	}

	if s.archive == nil {
		return nil, ErrResultNotFound
	}
	archived, err := s.archive.LatestForStudent(ctx, testID, email)
	if errors.Is(err, repository.ErrResultNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := BuildRecord(&archived.SubmissionResult, archived.Student)
	return &rec, nil
}

func (s *ResultService) cache(ctx context.Context, rec model.TestResultRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.TestResultKey(rec.TestID, rec.UserEmail), raw, s.ttl)
	pipe.Set(ctx, config.CacheKey.LastResultKey(rec.TestID), raw, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *ResultService) submit(ctx context.Context, rec model.TestResultRecord) error {
	if err := s.submitter.SubmitResult(ctx, rec); err != nil {
		return err
	}
	if s.archive != nil {
		if err := s.archive.MarkSynced(ctx, rec.SessionID, s.now()); err != nil {
			s.log.Warn().Err(err).Str("session_id", rec.SessionID).Msg("Archive sync mark failed")
		}
	}
	return nil
}
