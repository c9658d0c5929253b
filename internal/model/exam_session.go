package model

import (
	"time"
)

// SessionState enumerates the proctored session lifecycle.
type SessionState string

const (
	SessionStateLoading                    SessionState = "LOADING"
	SessionStateInProgress                 SessionState = "IN_PROGRESS"
	SessionStateAwaitingSupervisorOverride SessionState = "AWAITING_SUPERVISOR_OVERRIDE"
	SessionStateEnded                      SessionState = "ENDED"
)

// Student identifies the learner taking a session. Populated from JWT claims.
type Student struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department"`
	SINNumber  string `json:"sin_number"`
}

// QuestionOutcome is one row of the per-question breakdown.
type QuestionOutcome struct {
	QuestionID    string       `json:"question_id"`
	Kind          QuestionKind `json:"kind"`
	Answered      bool         `json:"answered"`
	Selected      string       `json:"selected,omitempty"`
	CorrectOption string       `json:"correct_option,omitempty"`
	Correct       bool         `json:"correct"`
	Marks         int          `json:"marks"`
	CodeScore     *float64     `json:"code_score,omitempty"`
}

// SubmissionResult is compiled exactly once when a session ends.
// Score and MaxScore count MCQ correctness only; coding scores are kept apart.
type SubmissionResult struct {
	SessionID         string            `json:"session_id"`
	TestID            string            `json:"test_id"`
	TestName          string            `json:"test_name"`
	Score             int               `json:"score"`
	MaxScore          int               `json:"max_score"`
	Percentage        float64           `json:"percentage"`
	CodingScore       float64           `json:"coding_score"`
	CodingMaxScore    float64           `json:"coding_max_score"`
	Breakdown         []QuestionOutcome `json:"breakdown"`
	TerminationReason string            `json:"termination_reason"`
	ViolationCount    int               `json:"violation_count"`
	CompletedAt       time.Time         `json:"completed_at"`
}
