// Package apperror defines the error taxonomy shared by all services.
//
// Services return *AppError values wrapping one of the sentinel errors
// below; callers branch with errors.Is and read the human message from
// the AppError itself. HTTP handlers map sentinels to status codes, UI
// surfaces show Message inline.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication failed")
	ErrForbidden  = errors.New("forbidden")
	ErrResource   = errors.New("insufficient resource")
	ErrUpstream   = errors.New("upstream unavailable")
)

type AppError struct {
	Err     error  // sentinel this error wraps
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, key),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, key),
	}
}

// AuthFailed covers bad credentials. Never retried automatically.
func AuthFailed(message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
	}
}

// Suspended is the auth failure for a banned account still inside its
// ban window. Deadline and reason are embedded in the user-facing message.
func Suspended(until time.Time, reason string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: fmt.Sprintf("account suspended until %s. Reason: %s", until.Format(time.RFC1123), reason),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Insufficient covers ledger debits that would overdraw the balance.
// The attempted action leaves all state unchanged.
func Insufficient(resource string, wanted, have int) *AppError {
	return &AppError{
		Err:     ErrResource,
		Message: fmt.Sprintf("insufficient %s: need %d, have %d", resource, wanted, have),
	}
}

// Upstream wraps a final, retries-exhausted failure of an external feed.
func Upstream(source string, err error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s unavailable: %v", source, err),
	}
}
