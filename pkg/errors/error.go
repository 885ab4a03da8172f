// Package errors provides unified, coded error handling for smsprobe.
package errors

import (
	"fmt"
	"time"
)

// Code represents an error code for categorization.
type Code string

// ProbeError represents a unified error with code, message, and context.
type ProbeError struct {
	Code      Code                   `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error by code.
func (e *ProbeError) Is(target error) bool {
	if probeErr, ok := target.(*ProbeError); ok {
		return e.Code == probeErr.Code
	}
	return false
}

// WithContext adds context information to the error.
func (e *ProbeError) WithContext(key string, value interface{}) *ProbeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error.
func (e *ProbeError) WithDetails(details string) *ProbeError {
	e.Details = details
	return e
}

// WithCause sets the underlying cause error.
func (e *ProbeError) WithCause(cause error) *ProbeError {
	e.Cause = cause
	return e
}

// New creates a new ProbeError.
func New(code Code, message string) *ProbeError {
	return &ProbeError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a new ProbeError with a formatted message.
func Newf(code Code, format string, args ...interface{}) *ProbeError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a ProbeError.
func Wrap(cause error, code Code, message string) *ProbeError {
	return &ProbeError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(cause error, code Code, format string, args ...interface{}) *ProbeError {
	return Wrap(cause, code, fmt.Sprintf(format, args...))
}

// CodeOf extracts the error code from an error, or empty if it is not a ProbeError.
func CodeOf(err error) Code {
	if probeErr, ok := err.(*ProbeError); ok {
		return probeErr.Code
	}
	return ""
}
