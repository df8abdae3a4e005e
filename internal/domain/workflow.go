package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for workflow packages and steps
var (
	ErrEmptyStepName       = errors.New("step name cannot be empty")
	ErrEmptyStepType       = errors.New("step type cannot be empty")
	ErrInvalidStepDuration = errors.New("step estimated duration must be positive")
	ErrEmptyPackageName    = errors.New("package name cannot be empty")
	ErrPackageWithoutSteps = errors.New("package must contain at least one step")
)

// WorkflowStep describes one stage of a workflow package. Steps are
// immutable once they are part of a loaded package: the executor reads
// them but never writes back.
//
// DependsOn is declarative metadata only. Steps always execute in the
// order they appear in the package; the field is carried for template
// authors but does not influence scheduling.
type WorkflowStep struct {
	Name              string         `json:"step_name"`
	Type              string         `json:"step_type"`
	Description       string         `json:"description"`
	EstimatedDuration time.Duration  `json:"estimated_duration"`
	Inputs            []string       `json:"inputs"`
	Outputs           []string       `json:"outputs"`
	DependsOn         []string       `json:"depends_on,omitempty"`
	Config            map[string]any `json:"configuration,omitempty"`
}

// Validate checks if the WorkflowStep has valid data.
func (s *WorkflowStep) Validate() error {
	if s.Name == "" {
		return ErrEmptyStepName
	}

	if s.Type == "" {
		return ErrEmptyStepType
	}

	if s.EstimatedDuration <= 0 {
		return ErrInvalidStepDuration
	}

	return nil
}

// WorkflowPackage is a named, ordered sequence of steps representing a
// higher-level operation, such as onboarding a new listing. Packages
// come either from a persisted template or from the built-in predefined
// set.
type WorkflowPackage struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Steps          []WorkflowStep `json:"steps"`
	EstimatedTotal time.Duration  `json:"estimated_total"`
}

// NewWorkflowPackage assembles a package from the given steps,
// validating each step and computing the total estimated duration as
// the sum of the step durations.
func NewWorkflowPackage(id uuid.UUID, name, description, category string, steps []WorkflowStep) (*WorkflowPackage, error) {
	if name == "" {
		return nil, ErrEmptyPackageName
	}

	if len(steps) == 0 {
		return nil, ErrPackageWithoutSteps
	}

	var total time.Duration
	for i := range steps {
		if err := steps[i].Validate(); err != nil {
			return nil, err
		}
		total += steps[i].EstimatedDuration
	}

	return &WorkflowPackage{
		ID:             id,
		Name:           name,
		Description:    description,
		Category:       category,
		Steps:          steps,
		EstimatedTotal: total,
	}, nil
}
