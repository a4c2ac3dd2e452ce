package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode.
type ErrorCode string

const (
	// ConfigurationError indicates a malformed rule configuration. It aborts a run before any rule executes.
	ConfigurationError ErrorCode = "CONFIGURATION_ERROR"
	// GraphAccessError indicates an unresolved or inconsistent symbol or edge reference.
	GraphAccessError ErrorCode = "GRAPH_ACCESS_ERROR"
	// RuleEvaluationError indicates a predicate or condition met an unexpected symbol shape.
	RuleEvaluationError ErrorCode = "RULE_EVALUATION_ERROR"
	// StorageError indicates the snapshot store failed.
	StorageError ErrorCode = "STORAGE_ERROR"
	// ImportError indicates the source importer failed.
	ImportError ErrorCode = "IMPORT_ERROR"
)

// ArchError carries a stable code, a message and an optional cause.
type ArchError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Subject string    `json:"subject,omitempty"`
	cause   error
}

// New creates an ArchError without a cause.
func New(code ErrorCode, message string) *ArchError {
	return &ArchError{Code: code, Message: message}
}

// Newf creates an ArchError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *ArchError {
	return &ArchError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an ArchError around cause.
func Wrap(code ErrorCode, message string, cause error) *ArchError {
	return &ArchError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *ArchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ArchError) Unwrap() error {
	return e.cause
}

// WithSubject records the symbol or rule the error is about.
func (e *ArchError) WithSubject(subject string) *ArchError {
	e.Subject = subject
	return e
}

// CodeOf returns the code of the first ArchError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var ae *ArchError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCode reports whether err's chain contains an ArchError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Configf is shorthand for a ConfigurationError.
func Configf(format string, args ...interface{}) *ArchError {
	return Newf(ConfigurationError, format, args...)
}
