package model

// DryRunRequest is the body of POST /api/coding/dry-run.
type DryRunRequest struct {
	QuestionID string `json:"questionId"`
	Code       string `json:"code"`
	Language   string `json:"language"`
}

// TestSummary counts passed sample cases.
type TestSummary struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// CaseResult is the outcome of one sample case.
type CaseResult struct {
	Passed         bool   `json:"passed"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Error          string `json:"error,omitempty"`
}

// DryRunResponse is the response of POST /api/coding/dry-run.
type DryRunResponse struct {
	Success bool         `json:"success"`
	Summary TestSummary  `json:"summary"`
	Results []CaseResult `json:"results"`
}

// CodeSubmitRequest is the body of POST /api/coding/submit.
type CodeSubmitRequest struct {
	QuestionID string `json:"questionId"`
	Code       string `json:"code"`
	Language   string `json:"language"`
	StudentID  string `json:"studentId"`
	TestID     string `json:"testId"`
}

// SubmitTestResults summarises a scored code submission.
type SubmitTestResults struct {
	Passed     int     `json:"passed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// CodeSubmitResponse is the response of POST /api/coding/submit.
type CodeSubmitResponse struct {
	Success     bool              `json:"success"`
	Score       float64           `json:"score"`
	MaxScore    float64           `json:"maxScore"`
	TestResults SubmitTestResults `json:"testResults"`
	Status      string            `json:"status"`
}

// PasscodeRequest is the body of POST /api/passcode/validate.
type PasscodeRequest struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

// PasscodeResponse is the response of POST /api/passcode/validate.
type PasscodeResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// TestResultRecord is the body of POST /api/student/test-results and the value
// kept in the local fallback cache. Answers is a JSON-encoded string.
type TestResultRecord struct {
	TestID      string  `json:"testId"`
	TestName    string  `json:"testName"`
	UserEmail   string  `json:"userEmail"`
	StudentName string  `json:"studentName"`
	Department  string  `json:"department"`
	SINNumber   string  `json:"sinNumber"`
	TotalScore  int     `json:"totalScore"`
	MaxScore    int     `json:"maxScore"`
	Percentage  float64 `json:"percentage"`
	CompletedAt string  `json:"completedAt"`
	Date        string  `json:"date"`
	Answers     string  `json:"answers"`
	SessionID   string  `json:"sessionId"`
}
