package smtpmail

import (
	"errors"
	"fmt"

	"github.com/lattiq/smtpmail/internal/core"
)

// Predefined sentinel errors for common cases.
var (
	// ErrInvalidConfiguration indicates invalid configuration.
	// Both tenant validation errors and Config.Validate errors match it.
	ErrInvalidConfiguration = core.ErrInvalidConfig

	// ErrNotConnected indicates the emailer has no verified connection
	// and its connect policy does not allow opening one on demand.
	ErrNotConnected = core.ErrNotConnected

	// ErrTemplateNotFound indicates a requested template was not found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplatesDisabled indicates a template was requested without a template engine.
	ErrTemplatesDisabled = errors.New("template engine not enabled")
)

// TemplateError represents an error in template processing.
type TemplateError struct {
	// Template is the name of the template that caused the error.
	Template string

	// Operation is the operation that failed (e.g., "parse", "render").
	Operation string

	// Message is the error message.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error in %s during %s: %s", e.Template, e.Operation, e.Message)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// NewTemplateError creates a new template error.
func NewTemplateError(template, operation, message string, cause error) *TemplateError {
	return &TemplateError{
		Template:  template,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
