// Package domainerrors defines the coded error type used between services
// and the transport layer.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// those facts into coded domain errors with a caller-facing message; the
// HTTP layer maps codes to status codes in exactly one place. No layer
// invents transport codes of its own.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeNotFound means the referenced entity (or entity version) does not
	// resolve to a non-archived row.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict means a uniqueness invariant would be violated.
	CodeConflict Code = "CONFLICT"
	// CodeBadRequest means the request shape is unusable (bad JSON, bad
	// query parameter).
	CodeBadRequest Code = "BAD_REQUEST"
	// CodeInvalidInput means a caller-supplied value failed validation.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeUnauthorized means the caller's identity could not be established.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeUnavailable means the underlying store failed or timed out. Never
	// retried internally; propagated unchanged.
	CodeUnavailable Code = "UNAVAILABLE"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "INTERNAL"
)

// DomainError carries a code, a caller-facing message, and an optional
// wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. If err is nil,
// Wrap returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message from err. Non-domain errors
// yield a generic message so internals never leak to clients.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
