// Package errors provides structured error types for workgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API, and the engine
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The graph engine surfaces a small closed set of failures:
//   - CYCLE_DETECTED: a blocking edge insertion was rejected, nothing changed
//   - NOT_FOUND: a referenced item or epic does not exist
//   - NOT_AN_EPIC: wave scheduling was requested on a non-grouping item
//   - INVALID_*: input validation failures
//   - STORAGE_ERROR / INTERNAL_ERROR: unexpected backend or internal failures
//
// Structural warnings produced by wave analysis are not errors and never
// travel through this package.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "item %s not found", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing item
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "load edges")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Graph engine errors
	ErrCodeCycleDetected Code = "CYCLE_DETECTED"
	ErrCodeNotAnEpic     Code = "NOT_AN_EPIC"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidKind   Code = "INVALID_KIND"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Backend and internal errors
	ErrCodeStorage     Code = "STORAGE_ERROR"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// CycleError is returned when inserting a blocking edge would close a cycle.
// It carries the rejected edge so callers can report it precisely.
type CycleError struct {
	From string
	To   string
	Kind string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: adding %s -> %s (%s) would create a dependency cycle",
		ErrCodeCycleDetected, e.From, e.To, e.Kind)
}

// Code returns the error code for this error type.
func (e *CycleError) Code() Code {
	return ErrCodeCycleDetected
}

// Unwrap exposes the coded form so Is(err, ErrCodeCycleDetected) matches.
func (e *CycleError) Unwrap() error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("adding %s -> %s (%s) would create a dependency cycle", e.From, e.To, e.Kind),
	}
}

// NotFound is shorthand for a NOT_FOUND error about an item.
func NotFound(id string) *Error {
	return New(ErrCodeNotFound, "item %s not found", id)
}

// AsCycle returns the *CycleError in err's chain, if any.
func AsCycle(err error) (*CycleError, bool) {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
