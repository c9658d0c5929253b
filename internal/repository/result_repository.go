package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ErrResultNotFound is returned when no archived result matches.
var ErrResultNotFound = errors.New("result not found")

// ArchivedResult is one row of the result archive.
type ArchivedResult struct {
	model.SubmissionResult
	Student  model.Student `json:"student"`
	SyncedAt *time.Time    `json:"synced_at,omitempty"`
}

// ResultRepository is the Postgres archive of compiled results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Save upserts a result keyed by session id. Re-saving a session never resets synced_at.
func (r *ResultRepository) Save(ctx context.Context, res *model.SubmissionResult, student model.Student) error {
	sessionID, err := uuid.Parse(res.SessionID)
	if err != nil {
		return fmt.Errorf("parse session id: %w", err)
	}

	breakdown, err := json.Marshal(res.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO test_results (
			session_id, test_id, test_name, student_email, student_name, department, sin_number,
			score, max_score, percentage, coding_score, coding_max_score,
			violation_count, termination_reason, breakdown, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (session_id) DO UPDATE SET
			score = EXCLUDED.score,
			max_score = EXCLUDED.max_score,
			percentage = EXCLUDED.percentage,
			coding_score = EXCLUDED.coding_score,
			coding_max_score = EXCLUDED.coding_max_score,
			violation_count = EXCLUDED.violation_count,
			termination_reason = EXCLUDED.termination_reason,
			breakdown = EXCLUDED.breakdown,
			completed_at = EXCLUDED.completed_at`,
		sessionID, res.TestID, res.TestName, student.Email, student.Name, student.Department, student.SINNumber,
		res.Score, res.MaxScore, res.Percentage, res.CodingScore, res.CodingMaxScore,
		res.ViolationCount, res.TerminationReason, breakdown, res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// MarkSynced records that the results collaborator accepted the session's result.
func (r *ResultRepository) MarkSynced(ctx context.Context, sessionID string, at time.Time) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("parse session id: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE test_results SET synced_at = $1 WHERE session_id = $2`, at, id)
	return err
}

// LatestForStudent returns the most recent archived result of a student on a test.
func (r *ResultRepository) LatestForStudent(ctx context.Context, testID, email string) (*ArchivedResult, error) {
	var (
		out       ArchivedResult
		sessionID uuid.UUID
		breakdown []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, test_id, test_name, student_email, student_name, department, sin_number,
		        score, max_score, percentage, coding_score, coding_max_score,
		        violation_count, termination_reason, breakdown, completed_at, synced_at
		 FROM test_results
		 WHERE test_id = $1 AND student_email = $2
		 ORDER BY completed_at DESC
		 LIMIT 1`, testID, email,
	).Scan(&sessionID, &out.TestID, &out.TestName,
		&out.Student.Email, &out.Student.Name, &out.Student.Department, &out.Student.SINNumber,
		&out.Score, &out.MaxScore, &out.Percentage, &out.CodingScore, &out.CodingMaxScore,
		&out.ViolationCount, &out.TerminationReason, &breakdown, &out.CompletedAt, &out.SyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}

	out.SessionID = sessionID.String()
	if err := json.Unmarshal(breakdown, &out.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	return &out, nil
}
