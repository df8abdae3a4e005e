package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a background task
type TaskStatus string

// Possible task status values
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusRetrying   TaskStatus = "retrying"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Well-known task type identifiers. Processors for these types are
// registered by the application at startup.
const (
	TaskTypeContentGeneration = "content_generation"
	TaskTypeCMAGeneration     = "cma_generation"
	TaskTypeLeadScoring       = "lead_scoring"
	TaskTypeHumanReview       = "human_review"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTaskType     = errors.New("task type cannot be empty")
	ErrEmptyTaskOwnerID  = errors.New("task owner ID cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrInvalidMaxRetries = errors.New("max retries cannot be negative")
)

// Task represents a single unit of asynchronous work. It is owned
// exclusively by the orchestrator: callers observe it through status
// queries and never mutate it directly. Records are retained forever;
// there is no delete path.
type Task struct {
	ID             uuid.UUID      `json:"id"`
	Type           string         `json:"type"`
	OwnerID        uuid.UUID      `json:"owner_id"`
	Input          map[string]any `json:"input"`
	Config         map[string]any `json:"configuration,omitempty"`
	Status         TaskStatus     `json:"status"`
	Priority       int            `json:"priority"`
	Progress       int            `json:"progress"`
	Retries        int            `json:"retries"`
	MaxRetries     int            `json:"max_retries"`
	TimeoutSeconds int            `json:"timeout_seconds"`
	Output         map[string]any `json:"output,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// NewTask creates a queued Task with a fresh UUID and creation timestamp.
// Returns an error if validation fails.
func NewTask(taskType string, ownerID uuid.UUID, input map[string]any, priority, maxRetries, timeoutSeconds int) (*Task, error) {
	task := &Task{
		ID:             uuid.New(),
		Type:           taskType,
		OwnerID:        ownerID,
		Input:          input,
		Status:         TaskStatusQueued,
		Priority:       priority,
		Progress:       0,
		Retries:        0,
		MaxRetries:     maxRetries,
		TimeoutSeconds: timeoutSeconds,
		CreatedAt:      time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Type == "" {
		return ErrEmptyTaskType
	}

	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwnerID
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	return nil
}

// IsTerminal reports whether the task has reached an absorbing state.
// Completed, failed and cancelled tasks never transition again.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusQueued, TaskStatusProcessing, TaskStatusRetrying,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}
