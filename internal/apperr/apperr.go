// Package apperr defines the error taxonomy shared across the core (spec
// §7) and the single place that taxonomy is translated into an HTTP status,
// so handlers never call http.Error directly.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the closed set of error categories the core produces.
type Kind string

const (
	Validation          Kind = "validation"
	Unauthorized        Kind = "unauthorized"
	Forbidden           Kind = "forbidden"
	RateLimited         Kind = "rate_limited"
	NotFound            Kind = "not_found"
	PolicyStateError    Kind = "policy_state_error"
	InsufficientCapital Kind = "insufficient_capital"
	Transient           Kind = "transient"
	Internal            Kind = "internal"
)

// Error wraps a Kind with a message and an optional hint, cause, and
// retry-after hint (used only for RateLimited).
type Error struct {
	Kind           Kind
	Message        string
	Hint           string
	RetryAfterSecs int
	Cause          error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// HTTPStatus maps a Kind to the HTTP status code it produces, per spec §7.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case RateLimited:
		return http.StatusTooManyRequests
	case NotFound:
		return http.StatusNotFound
	case PolicyStateError:
		return http.StatusConflict
	case InsufficientCapital:
		// Never surfaced to an HTTP caller directly (spec §7: logged,
		// payout skipped); kept here so a future admin endpoint has a
		// sane default.
		return http.StatusConflict
	case Transient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err, defaulting to Internal when err is not
// one of ours.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	return &Error{Kind: Internal, Message: "internal server error", Cause: err}
}
