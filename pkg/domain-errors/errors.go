// Package domainerrors provides coded errors shared across modules.
// Services wrap infrastructure failures into coded errors so transport
// layers can translate them into HTTP responses without inspecting
// implementation details.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport-level translation.
type Code string

const (
	// CodeConfiguration marks startup-time configuration problems.
	// These are fatal and must never surface during request handling.
	CodeConfiguration Code = "configuration_error"

	// CodeInternal marks unexpected internal failures. Transport layers
	// return a generic message and log the full detail.
	CodeInternal Code = "internal_error"

	// CodeUnavailable marks a temporarily unavailable dependency.
	CodeUnavailable Code = "unavailable"

	// CodeInvalidInput marks malformed caller-supplied data.
	CodeInvalidInput Code = "invalid_input"
)

// Error is a coded error with an operator-facing message.
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

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
