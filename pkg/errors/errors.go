package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so callers can test against the predefined kinds.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrInvalidTransition is returned when an action is not permitted from the current state for the actor's role.
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusConflict, "action not allowed in current state")
	// ErrLocked is returned when the submission deadline for the target week has passed.
	ErrLocked = New("SUBMISSION_LOCKED", http.StatusLocked, "submission deadline has passed")
	// ErrProofRequired blocks end-of-day until photographic proof is attached.
	ErrProofRequired = New("PROOF_REQUIRED", http.StatusUnprocessableEntity, "departure proof is required")
	// ErrCheckpointRejected covers expired, forged or misplaced checkpoint scans.
	ErrCheckpointRejected = New("CHECKPOINT_REJECTED", http.StatusUnprocessableEntity, "checkpoint scan rejected")
	// ErrInvariant marks engine-internal invariant violations; never recoverable.
	ErrInvariant = New("INVARIANT_VIOLATION", http.StatusInternalServerError, "internal invariant violated")
	// ErrRateLimited is returned by throttled endpoints.
	ErrRateLimited = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	// ErrCacheMiss signals a missing cache entry.
	ErrCacheMiss = errors.New("cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Details != nil {
		clone.Details = make(map[string]interface{}, len(err.Details))
		for k, v := range err.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}

// WithDetails returns a copy of err carrying the provided details.
func WithDetails(err *Error, message string, details map[string]interface{}) *Error {
	clone := Clone(err, message)
	if clone == nil {
		return nil
	}
	if clone.Details == nil {
		clone.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}

// HasCode reports whether err normalises to the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
