// Package errors provides the error kinds surfaced by the recommender.
//
// Services return typed errors; handlers map them to HTTP statuses:
//
//	var appErr *errors.Error
//	if errors.As(err, &appErr) {
//	    http.Error(w, appErr.Message, appErr.HTTPStatus())
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is = errors.Is
	As = errors.As
)

// Code is a machine-readable error kind.
type Code string

const (
	CodeValidation  Code = "VALIDATION"
	CodeNotFound    Code = "NOT_FOUND"
	CodePersistence Code = "PERSISTENCE"
	CodeInternal    Code = "INTERNAL"
)

// HTTPStatus returns the status code a handler should answer with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error with a kind, a message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the status code for this error's kind.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Sentinels for errors.Is checks.
var (
	ErrValidation  = &Error{Code: CodeValidation}
	ErrNotFound    = &Error{Code: CodeNotFound}
	ErrPersistence = &Error{Code: CodePersistence}
)

// Validation reports a missing or malformed input field.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails reports a validation failure with per-field messages.
func ValidationWithDetails(msg string, details map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFound reports an unknown product or category.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Persistence wraps a backing-store read or write failure. It is never used
// for an empty dataset.
func Persistence(msg string, cause error) *Error {
	return &Error{Code: CodePersistence, Message: msg, cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}

// CodeOf returns the Code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
