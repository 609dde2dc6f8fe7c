// Package dErrors provides coded domain errors so services can signal
// outcomes without importing HTTP concerns. Transport layers translate
// codes to status codes at the boundary.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are stable strings so they can be
// returned in JSON envelopes and asserted in tests.
type Code string

const (
	// CodeInvalidInput covers malformed or incomplete client input. Never
	// recorded as a verification attempt.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound signals a missing record.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized signals a missing or invalid credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeVerificationFailed signals an identity-proofing failure.
	CodeVerificationFailed Code = "verification_failed"
	// CodeLockedOut signals the identifier is inside a lockout window.
	CodeLockedOut Code = "locked_out"
	// CodeConflict signals a uniqueness or state conflict.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation signals a broken domain invariant at
	// construction time.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal covers infrastructure failures surfaced to callers as a
	// generic error.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given domain code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the domain code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to an HTTP status code.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeVerificationFailed:
		return http.StatusForbidden
	case CodeLockedOut:
		return http.StatusTooManyRequests
	case CodeConflict:
		return http.StatusConflict
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
