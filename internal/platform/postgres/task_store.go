package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/platform/logger"
	"github.com/parcelflow/parcelflow-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

// Save persists a new task record
func (s *PostgresTaskStore) Save(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	input, err := json.Marshal(task.Input)
	if err != nil {
		return fmt.Errorf("failed to encode task input: %w", err)
	}

	config, err := json.Marshal(task.Config)
	if err != nil {
		return fmt.Errorf("failed to encode task configuration: %w", err)
	}

	query := `
		INSERT INTO tasks (id, type, owner_id, input, configuration, status, priority,
			progress, retries, max_retries, timeout_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Type,
		task.OwnerID,
		input,
		config,
		task.Status,
		task.Priority,
		task.Progress,
		task.Retries,
		task.MaxRetries,
		task.TimeoutSeconds,
		task.CreatedAt,
	)

	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err)
		return MapError(err)
	}

	return nil
}

// Update persists the task's mutable fields
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	output, err := json.Marshal(task.Output)
	if err != nil {
		return fmt.Errorf("failed to encode task output: %w", err)
	}

	query := `
		UPDATE tasks
		SET status = $1, progress = $2, retries = $3, output = $4,
			error_message = $5, started_at = $6, completed_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Status,
		task.Progress,
		task.Retries,
		output,
		task.ErrorMessage,
		task.StartedAt,
		task.CompletedAt,
		task.ID,
	)

	if err != nil {
		log.Error("failed to update task",
			"task_id", task.ID,
			"status", task.Status,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// GetByID retrieves a task by its unique ID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, type, owner_id, input, configuration, status, priority, progress,
			retries, max_retries, timeout_seconds, output, error_message,
			created_at, started_at, completed_at
		FROM tasks
		WHERE id = $1
	`

	var task domain.Task
	var input, config, output []byte
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.Type,
		&task.OwnerID,
		&input,
		&config,
		&task.Status,
		&task.Priority,
		&task.Progress,
		&task.Retries,
		&task.MaxRetries,
		&task.TimeoutSeconds,
		&output,
		&errorMessage,
		&task.CreatedAt,
		&task.StartedAt,
		&task.CompletedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", "task_id", id, "error", err)
		return nil, MapError(err)
	}

	task.ErrorMessage = errorMessage.String

	if len(input) > 0 {
		if err := json.Unmarshal(input, &task.Input); err != nil {
			return nil, fmt.Errorf("failed to decode task input: %w", err)
		}
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &task.Config); err != nil {
			return nil, fmt.Errorf("failed to decode task configuration: %w", err)
		}
	}
	if len(output) > 0 {
		if err := json.Unmarshal(output, &task.Output); err != nil {
			return nil, fmt.Errorf("failed to decode task output: %w", err)
		}
	}

	return &task, nil
}

// WithTx returns a new TaskStore instance that uses the provided transaction
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx}
}
