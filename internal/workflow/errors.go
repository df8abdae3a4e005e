package workflow

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the workflow engine
var (
	// ErrNoProcessor indicates a task reached processing with no handler
	// registered for its type. Classed as a validation failure: it is
	// never retried.
	ErrNoProcessor = errors.New("no processor registered for task type")

	// ErrUnknownStepType indicates a step definition names a task type
	// the registry does not recognize.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrMissingContextKey indicates a required context key was absent
	// and no default was supplied.
	ErrMissingContextKey = errors.New("required context key missing")

	// ErrStepTimeout indicates a step's task did not reach a terminal
	// status within twice its estimated duration.
	ErrStepTimeout = errors.New("step timed out")

	// ErrPackageNotFound indicates a package template does not exist or
	// has been deactivated. Nothing is cached when loading fails.
	ErrPackageNotFound = errors.New("workflow package not found or inactive")

	// ErrTaskTerminal indicates an operation targeted a task that has
	// already reached an absorbing state.
	ErrTaskTerminal = errors.New("task already in terminal state")

	// ErrStepNotReviewable indicates a review resolution targeted a step
	// record that is not a pending human-review step.
	ErrStepNotReviewable = errors.New("step record is not awaiting review")
)

// ValidationError wraps a package or step definition problem. These are
// raised synchronously, before any state is persisted, and are never
// retried.
type ValidationError struct {
	// Field is the definition element that failed (e.g., "step_type")
	Field string
	// Message is a human-readable description of the problem
	Message string
	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid workflow definition (%s): %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("invalid workflow definition (%s): %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
