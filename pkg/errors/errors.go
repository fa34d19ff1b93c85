// Package errors provides structured error types for the loom graph model.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes split into three families with different handling policies:
//   - Structural (SCHEMA_ERROR, MISSING_DEFINITION, RECURSION): fatal,
//     the whole operation aborts and the error surfaces unchanged.
//   - Data quality (DANGLING_LINK): non-fatal, the offending entity is
//     dropped with a warning so a broken document stays openable.
//   - Policy (MUTATION_DENIED, TYPE_MISMATCH): expected during editing,
//     cheap and synchronous, no state change.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeTypeMismatch, "cannot connect %s to %s", a, b)
//	if errors.Is(err, errors.ErrCodeTypeMismatch) {
//	    // Handle refused connection
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSchema, origErr, "parse document")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural errors - fatal for the whole operation
	ErrCodeSchema            Code = "SCHEMA_ERROR"
	ErrCodeMissingDefinition Code = "MISSING_DEFINITION"
	ErrCodeRecursion         Code = "RECURSION"
	ErrCodeDefinitionInUse   Code = "DEFINITION_IN_USE"
	ErrCodeInvalidDocument   Code = "INVALID_DOCUMENT"

	// Data quality errors - degrade gracefully
	ErrCodeDanglingLink Code = "DANGLING_LINK"

	// Policy errors - expected during editing
	ErrCodeMutationDenied Code = "MUTATION_DENIED"
	ErrCodeTypeMismatch   Code = "TYPE_MISMATCH"

	// Tooling errors
	ErrCodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	ErrCodeInternal          Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)

	// Path holds the instance path at which a traversal error occurred.
	// Only set for RECURSION errors, where it names the offending chain.
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s (at %s): %v", e.Code, e.Message, e.Path, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Path)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
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

// At creates a new Error carrying the instance path where it occurred.
func At(code Code, path string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
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
