package api

import (
	"errors"
	"net/http"

	"github.com/parcelflow/parcelflow-api/internal/store"
	"github.com/parcelflow/parcelflow-api/internal/workflow"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErr *workflow.ValidationError

	switch {
	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, workflow.ErrPackageNotFound):
		return http.StatusNotFound

	// Definition/validation errors
	case errors.As(err, &validationErr),
		errors.Is(err, workflow.ErrUnknownStepType),
		errors.Is(err, workflow.ErrMissingContextKey):
		return http.StatusUnprocessableEntity

	// State conflicts
	case errors.Is(err, workflow.ErrTaskTerminal),
		errors.Is(err, workflow.ErrStepNotReviewable):
		return http.StatusConflict

	// Duplicates
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for the error.
// Validation errors carry their own description; everything else is
// generic.
func GetSafeErrorMessage(err error) string {
	var validationErr *workflow.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, workflow.ErrPackageNotFound):
		return "resource not found"
	case errors.Is(err, workflow.ErrTaskTerminal):
		return "task has already finished"
	case errors.Is(err, workflow.ErrStepNotReviewable):
		return "step is not awaiting review"
	case errors.Is(err, store.ErrDuplicate):
		return "resource already exists"
	default:
		return "internal server error"
	}
}
