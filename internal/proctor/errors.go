package proctor

import (
	"errors"
)

// Session errors.
var (
	ErrLoadFailure         = errors.New("exam data could not be loaded")
	ErrAlreadyActive       = errors.New("session has already been activated")
	ErrNotInProgress       = errors.New("session is not in progress")
	ErrTooEarly            = errors.New("submission is allowed only after 90% of the exam duration has elapsed")
	ErrNotAwaitingOverride = errors.New("no supervisor override is pending")
	ErrDismissAfterTimeUp  = errors.New("time is up, the submission dialog cannot be dismissed")
	ErrInvalidPasscode     = errors.New("invalid supervisor passcode")
	ErrSessionEnded        = errors.New("session has ended")
	ErrEmptyCode           = errors.New("code must not be empty")
	ErrUnknownQuestion     = errors.New("unknown question")
	ErrNotCodingQuestion   = errors.New("question is not a coding question")
)

// Category groups errors and notices the way they are surfaced to the learner.
type Category string

const (
	CategoryLoadFailure       Category = "LOAD_FAILURE"
	CategoryNetworkTransient  Category = "NETWORK_TRANSIENT"
	CategoryValidation        Category = "VALIDATION_ERROR"
	CategorySecurityViolation Category = "SECURITY_VIOLATION"
	CategoryFatal             Category = "FATAL"
	CategoryInfo              Category = "INFO"
)

// Classify maps an error returned by a Session operation to its Category.
// Unknown errors are collaborator failures and are treated as transient.
func Classify(err error) Category {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLoadFailure):
		return CategoryLoadFailure
	case errors.Is(err, ErrSessionEnded):
		return CategoryFatal
	case errors.Is(err, ErrTooEarly),
		errors.Is(err, ErrEmptyCode),
		errors.Is(err, ErrInvalidPasscode),
		errors.Is(err, ErrNotInProgress),
		errors.Is(err, ErrNotAwaitingOverride),
		errors.Is(err, ErrDismissAfterTimeUp),
		errors.Is(err, ErrUnknownQuestion),
		errors.Is(err, ErrNotCodingQuestion),
		errors.Is(err, ErrAlreadyActive):
		return CategoryValidation
	default:
		return CategoryNetworkTransient
	}
}
