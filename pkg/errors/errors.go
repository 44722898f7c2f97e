// Package errors provides structured error types for stacksolve.
//
// This package defines error codes and types that enable:
//   - Machine-readable error codes for programmatic handling
//   - A clear split between recorded resolution outcomes and fatal defects
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Metadata the provider could not find
//   - UNSATISFIABLE, VERSION_CONFLICT: Resolution outcomes recorded on edges
//   - ARTIFACT_RESOLVE: Isolated per-artifact failures
//   - CONTRACT_VIOLATION, INTERNAL_*: Implementation defects, always fatal
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidModule, "invalid module notation: %s", s)
//	if errors.Is(err, errors.ErrCodeInvalidModule) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMetadata, origErr, "fetch metadata for %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidModule     Code = "INVALID_MODULE"
	ErrCodeInvalidConstraint Code = "INVALID_CONSTRAINT"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"
	ErrCodeInvalidPath       Code = "INVALID_PATH"

	// Metadata errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeModuleNotFound Code = "MODULE_NOT_FOUND"
	ErrCodeMetadata       Code = "METADATA_ERROR"

	// Resolution outcomes
	ErrCodeUnsatisfiable   Code = "UNSATISFIABLE"
	ErrCodeVersionConflict Code = "VERSION_CONFLICT"
	ErrCodeArtifactResolve Code = "ARTIFACT_RESOLVE"

	// Environment errors
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"
	ErrCodeCanceled Code = "CANCELED"

	// Defects
	ErrCodeContractViolation Code = "CONTRACT_VIOLATION"
	ErrCodeNotConverged      Code = "NOT_CONVERGED"
	ErrCodeInternal          Code = "INTERNAL_ERROR"
	ErrCodeUnsupported       Code = "UNSUPPORTED"
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

// Coded is implemented by domain error types that carry their own code
// without being an *Error (for example conflict.ConflictError).
type Coded interface {
	error
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for the outermost coded error.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// The first *Error or Coded value in the chain wins.
// Returns empty string if no coded error is found.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case Coded:
			return e.Code()
		}
		err = errors.Unwrap(err)
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

// IsFatal reports whether err describes an implementation defect rather
// than a resolution outcome. Fatal errors must never be recorded as a
// failed edge or artifact.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeContractViolation, ErrCodeInternal, ErrCodeNotConverged:
		return true
	}
	return false
}
