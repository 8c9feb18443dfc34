package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_ALREADY_REGISTERED"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Practice-specific ─────────────────────────────────────────────
	ErrSessionNotActive  ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionFinished   ErrCode = "SESSION_FINISHED"
	ErrWrongEvent        ErrCode = "EVENT_NOT_APPLICABLE"
	ErrTooFewWords       ErrCode = "BELOW_MINIMUM_WORD_COUNT"
	ErrRecordingState    ErrCode = "INVALID_RECORDING_STATE"
	ErrNoPromptAvailable ErrCode = "NO_PROMPT_AVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."

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
	case ErrConflict:
		return "Resource already exists."

	// ─── Practice-specific ─────────────────────────────────────────────
	case ErrSessionNotActive:
		return "This practice session is not accepting input."
	case ErrSessionFinished:
		return "This practice session has already been scored."
	case ErrWrongEvent:
		return "This event does not apply to the session's exercise type."
	case ErrTooFewWords:
		return "Please write at least 20 words before submitting."
	case ErrRecordingState:
		return "The recording is not in a state that allows this action."
	case ErrNoPromptAvailable:
		return "No exercise prompt is available for this type."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
