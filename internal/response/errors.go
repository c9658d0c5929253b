package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden          ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly  ErrCode = "STUDENT_ACCESS_ONLY"
	ErrSupervisorOnly     ErrCode = "SUPERVISOR_ACCESS_ONLY"
	ErrNotSessionOwner    ErrCode = "NOT_SESSION_OWNER"
	ErrOriginNotPermitted ErrCode = "ORIGIN_NOT_PERMITTED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrResultNotFound  ErrCode = "RESULT_NOT_FOUND"

	// ─── Session ───────────────────────────────────────────────────────
	ErrTestLoadFailed      ErrCode = "TEST_LOAD_FAILED"
	ErrSessionActive       ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionNotActive    ErrCode = "SESSION_NOT_IN_PROGRESS"
	ErrSessionEnded        ErrCode = "SESSION_ENDED"
	ErrSubmitTooEarly      ErrCode = "SUBMIT_TOO_EARLY"
	ErrNoOverridePending   ErrCode = "NO_OVERRIDE_PENDING"
	ErrOverrideLocked      ErrCode = "OVERRIDE_NOT_DISMISSABLE"
	ErrInvalidPasscode     ErrCode = "INVALID_PASSCODE"
	ErrEmptyCode           ErrCode = "EMPTY_CODE"
	ErrUnknownQuestion     ErrCode = "UNKNOWN_QUESTION"
	ErrNotCodingQuestion   ErrCode = "NOT_CODING_QUESTION"
	ErrPlatformUnavailable ErrCode = "PLATFORM_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrSupervisorOnly:
		return "This resource is restricted to supervisors."
	case ErrNotSessionOwner:
		return "This session belongs to another student."
	case ErrOriginNotPermitted:
		return "Request origin is not permitted."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrSessionNotFound:
		return "Session not found or already closed."
	case ErrResultNotFound:
		return "No stored result for this test."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrTestLoadFailed:
		return "The test could not be loaded."
	case ErrSessionActive:
		return "A session is already open for this test."
	case ErrSessionNotActive:
		return "The session is not in progress."
	case ErrSessionEnded:
		return "The session has ended."
	case ErrSubmitTooEarly:
		return "Submission is allowed only after 90% of the test duration has elapsed."
	case ErrNoOverridePending:
		return "No supervisor override is pending."
	case ErrOverrideLocked:
		return "Time is up. The submission dialog cannot be dismissed."
	case ErrInvalidPasscode:
		return "Invalid supervisor passcode."
	case ErrEmptyCode:
		return "Code must not be empty."
	case ErrUnknownQuestion:
		return "Unknown question."
	case ErrNotCodingQuestion:
		return "The question is not a coding question."
	case ErrPlatformUnavailable:
		return "The exam platform is temporarily unavailable. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
