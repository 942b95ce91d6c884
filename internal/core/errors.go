package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig indicates invalid tenant SMTP configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotConnected indicates there is no verified connection to send on.
	ErrNotConnected = errors.New("not connected")
)

// ValidationError represents a validation error with specific field information.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string

	// Message is the validation error message.
	Message string

	// Value is the invalid value (optional).
	Value interface{}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is implements error matching for errors.Is.
func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidConfig {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// ValidationErrors collects every field violation found in one pass.
type ValidationErrors []*ValidationError

// Error joins all field messages.
func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Field + " " + e.Message
	}
	return "SMTP config invalid: " + strings.Join(msgs, ", ")
}

// Unwrap exposes the individual field errors to errors.Is and errors.As.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Fields returns the names of the fields that failed validation.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, len(v))
	for i, e := range v {
		fields[i] = e.Field
	}
	return fields
}

// ConnectionError reports a failure to build or verify a transport connection.
// The emailer holds no connection after such a failure.
type ConnectionError struct {
	// Host is the server that was dialed.
	Host string

	// Stage is where the failure happened (e.g. "dial", "verify").
	Stage string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("unable to connect to SMTP server %s (%s): %v", e.Host, e.Stage, e.Cause)
	}
	return fmt.Sprintf("unable to connect to SMTP server (%s): %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// DeliveryError reports a send-time failure. It is carried inside a
// DeliveryResult rather than returned.
type DeliveryError struct {
	// Cause is the error raised by the transport.
	Cause error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return "email send failed: " + e.Cause.Error()
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorWithValue creates a new validation error with a value.
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewConnectionError creates a new connection error.
func NewConnectionError(host, stage string, cause error) *ConnectionError {
	return &ConnectionError{
		Host:  host,
		Stage: stage,
		Cause: cause,
	}
}
