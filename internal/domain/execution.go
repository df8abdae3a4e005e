package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the state of one package run
type ExecutionStatus string

// Possible execution status values
const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// StepStatus represents the state of one step record within an execution
type StepStatus string

// Possible step status values. While the step's underlying task is in
// flight the record mirrors the task's status.
const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// Common validation errors for executions
var (
	ErrEmptyExecutionID      = errors.New("execution ID cannot be empty")
	ErrEmptyExecutionOwnerID = errors.New("execution owner ID cannot be empty")
	ErrEmptyExecutionPackage = errors.New("execution package name cannot be empty")
)

// PackageExecution is one run instance of a workflow package. The
// Context field holds a snapshot of the accumulated execution context,
// persisted after every step so that partial results survive a
// mid-package failure.
type PackageExecution struct {
	ID           uuid.UUID       `json:"id"`
	PackageID    uuid.UUID       `json:"package_id"`
	PackageName  string          `json:"package_name"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	Status       ExecutionStatus `json:"status"`
	Progress     int             `json:"progress"`
	Context      map[string]any  `json:"context"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewPackageExecution creates a running execution for the given package
// with an initial context snapshot.
func NewPackageExecution(pkg *WorkflowPackage, ownerID uuid.UUID, contextSnapshot map[string]any) (*PackageExecution, error) {
	exec := &PackageExecution{
		ID:          uuid.New(),
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		OwnerID:     ownerID,
		Status:      ExecutionStatusRunning,
		Progress:    0,
		Context:     contextSnapshot,
		CreatedAt:   time.Now().UTC(),
	}

	if err := exec.Validate(); err != nil {
		return nil, err
	}

	return exec, nil
}

// Validate checks if the PackageExecution has valid data.
func (e *PackageExecution) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyExecutionID
	}

	if e.OwnerID == uuid.Nil {
		return ErrEmptyExecutionOwnerID
	}

	if e.PackageName == "" {
		return ErrEmptyExecutionPackage
	}

	return nil
}

// IsTerminal reports whether the execution has finished, successfully
// or not.
func (e *PackageExecution) IsTerminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// StepRecord tracks one step of one execution. Records are created
// lazily as the executor reaches each step, so an aborted execution
// only has records for the steps it actually attempted.
type StepRecord struct {
	ID           uuid.UUID      `json:"id"`
	ExecutionID  uuid.UUID      `json:"execution_id"`
	Name         string         `json:"step_name"`
	Type         string         `json:"step_type"`
	Status       StepStatus     `json:"status"`
	Progress     int            `json:"progress"`
	Input        map[string]any `json:"input,omitempty"`
	Output       map[string]any `json:"output,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewStepRecord creates a pending step record for the given execution.
func NewStepRecord(executionID uuid.UUID, step *WorkflowStep, input map[string]any) *StepRecord {
	return &StepRecord{
		ID:          uuid.New(),
		ExecutionID: executionID,
		Name:        step.Name,
		Type:        step.Type,
		Status:      StepStatusPending,
		Progress:    0,
		Input:       input,
		CreatedAt:   time.Now().UTC(),
	}
}
