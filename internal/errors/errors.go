// Package errors provides the structured error type shared by the engine, the
// HTTP server and the CLI.
//
// Every failure that crosses a package boundary carries a Code so callers can
// classify it without string matching:
//
//	plan, err := engine.Pack(ctx, sheet, parts, opts)
//	if errors.Is(err, errors.ErrCodeInvalidDimensions) {
//	    // reject the request, the message is safe to show to the user
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// ErrCodeInvalidDimensions marks a sheet or part with a non-positive,
	// missing or non-finite width or height.
	ErrCodeInvalidDimensions Code = "INVALID_DIMENSIONS"
	// ErrCodeInvalidInput marks malformed input that is not a dimension problem.
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	// ErrCodeResourceExceeded marks a run aborted by the free-rectangle or
	// time budget.
	ErrCodeResourceExceeded Code = "RESOURCE_EXCEEDED"
	// ErrCodeCanceled marks a run stopped because its context was canceled.
	ErrCodeCanceled Code = "CANCELED"
	// ErrCodeUnsupported marks an unknown format, strategy or backend name.
	ErrCodeUnsupported Code = "UNSUPPORTED"
	// ErrCodeInternal marks unexpected failures.
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix or cause, suitable
// for showing to an end user. Other errors are returned as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// As is errors.As from the standard library, re-exported so callers that
// import this package under the name errors keep access to it.
func As(err error, target any) bool {
	return errors.As(err, target)
}
