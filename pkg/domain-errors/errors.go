// Package domainerrors provides coded errors for the service layer.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate those into coded domain errors
// which the HTTP layer maps onto status codes. Codes are stable and safe to
// expose to API clients; messages are human-oriented and may change.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the class of a domain error.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that read like
// errors.Is.
func Is(err error, code Code) bool { return HasCode(err, code) }

// ToHTTPStatus maps a code to the HTTP status the shared error writer sends.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
