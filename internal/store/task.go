package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
)

// TaskStore defines the interface for persisting tasks.
// The orchestrator is the only writer; every mutation goes through one
// of its status-transition operations. Task records are never deleted.
type TaskStore interface {
	// Save persists a new task record
	Save(ctx context.Context, task *domain.Task) error

	// Update persists the task's mutable fields (status, progress,
	// retries, output, error message, timestamps)
	Update(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
