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

// PostgresPackageStore implements the store.PackageStore interface using PostgreSQL
type PostgresPackageStore struct {
	db store.DBTX
}

// NewPostgresPackageStore creates a new PostgresPackageStore
func NewPostgresPackageStore(db store.DBTX) *PostgresPackageStore {
	return &PostgresPackageStore{
		db: db,
	}
}

// GetTemplate retrieves an active package template by its ID
func (s *PostgresPackageStore) GetTemplate(ctx context.Context, id uuid.UUID) (*store.PackageTemplate, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, name, description, category, steps, is_active, is_template,
			usage_count, organization_id, created_by, created_at
		FROM workflow_packages
		WHERE id = $1 AND is_active = TRUE
	`

	var tmpl store.PackageTemplate
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&tmpl.ID,
		&tmpl.Name,
		&tmpl.Description,
		&tmpl.Category,
		&tmpl.StepsJSON,
		&tmpl.IsActive,
		&tmpl.IsTemplate,
		&tmpl.UsageCount,
		&tmpl.OrganizationID,
		&tmpl.CreatedBy,
		&tmpl.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrPackageNotFound
		}
		log.Error("failed to get package template", "package_id", id, "error", err)
		return nil, MapError(err)
	}

	return &tmpl, nil
}

// ListTemplates returns active templates matching the filter, ordered by
// usage count descending, then name ascending. Visibility covers shared
// templates and packages the owner created.
func (s *PostgresPackageStore) ListTemplates(ctx context.Context, filter store.TemplateFilter) ([]*store.PackageTemplate, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, name, description, category, steps, is_active, is_template,
			usage_count, organization_id, created_by, created_at
		FROM workflow_packages
		WHERE is_active = TRUE
	`
	args := []any{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	if filter.OwnerID != uuid.Nil {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND (is_template = TRUE OR created_by = $%d)", len(args))
	}

	query += " ORDER BY usage_count DESC, name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list package templates", "error", err)
		return nil, MapError(err)
	}
	defer rows.Close()

	var templates []*store.PackageTemplate
	for rows.Next() {
		var tmpl store.PackageTemplate
		if err := rows.Scan(
			&tmpl.ID,
			&tmpl.Name,
			&tmpl.Description,
			&tmpl.Category,
			&tmpl.StepsJSON,
			&tmpl.IsActive,
			&tmpl.IsTemplate,
			&tmpl.UsageCount,
			&tmpl.OrganizationID,
			&tmpl.CreatedBy,
			&tmpl.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan package template row: %w", err)
		}
		templates = append(templates, &tmpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating package template rows: %w", err)
	}

	return templates, nil
}

// CreateTemplate persists a new package template
func (s *PostgresPackageStore) CreateTemplate(ctx context.Context, tmpl *store.PackageTemplate) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO workflow_packages (id, name, description, category, steps,
			is_active, is_template, usage_count, organization_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		tmpl.ID,
		tmpl.Name,
		tmpl.Description,
		tmpl.Category,
		tmpl.StepsJSON,
		tmpl.IsActive,
		tmpl.IsTemplate,
		tmpl.UsageCount,
		tmpl.OrganizationID,
		tmpl.CreatedBy,
		tmpl.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create package template",
			"package_id", tmpl.ID,
			"name", tmpl.Name,
			"error", err)
		return MapError(err)
	}

	return nil
}

// IncrementUsage bumps the template's usage counter
func (s *PostgresPackageStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE workflow_packages SET usage_count = usage_count + 1 WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrPackageNotFound
	}

	return nil
}

// SaveExecution persists a new package execution record
func (s *PostgresPackageStore) SaveExecution(ctx context.Context, exec *domain.PackageExecution) error {
	log := logger.FromContext(ctx)

	contextJSON, err := json.Marshal(exec.Context)
	if err != nil {
		return fmt.Errorf("failed to encode execution context: %w", err)
	}

	query := `
		INSERT INTO package_executions (id, package_id, package_name, owner_id,
			status, progress, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.db.ExecContext(ctx, query,
		exec.ID,
		exec.PackageID,
		exec.PackageName,
		exec.OwnerID,
		exec.Status,
		exec.Progress,
		contextJSON,
		exec.CreatedAt,
	)

	if err != nil {
		log.Error("failed to save package execution",
			"execution_id", exec.ID,
			"package_name", exec.PackageName,
			"error", err)
		return MapError(err)
	}

	return nil
}

// UpdateExecution persists the execution's mutable fields
func (s *PostgresPackageStore) UpdateExecution(ctx context.Context, exec *domain.PackageExecution) error {
	log := logger.FromContext(ctx)

	contextJSON, err := json.Marshal(exec.Context)
	if err != nil {
		return fmt.Errorf("failed to encode execution context: %w", err)
	}

	query := `
		UPDATE package_executions
		SET status = $1, progress = $2, context = $3, error_message = $4, completed_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		exec.Status,
		exec.Progress,
		contextJSON,
		exec.ErrorMessage,
		exec.CompletedAt,
		exec.ID,
	)

	if err != nil {
		log.Error("failed to update package execution",
			"execution_id", exec.ID,
			"status", exec.Status,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrExecutionNotFound
	}

	return nil
}

// GetExecution retrieves a package execution by its ID
func (s *PostgresPackageStore) GetExecution(ctx context.Context, id uuid.UUID) (*domain.PackageExecution, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, package_id, package_name, owner_id, status, progress,
			context, error_message, created_at, completed_at
		FROM package_executions
		WHERE id = $1
	`

	var exec domain.PackageExecution
	var contextJSON []byte
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&exec.ID,
		&exec.PackageID,
		&exec.PackageName,
		&exec.OwnerID,
		&exec.Status,
		&exec.Progress,
		&contextJSON,
		&errorMessage,
		&exec.CreatedAt,
		&exec.CompletedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrExecutionNotFound
		}
		log.Error("failed to get package execution", "execution_id", id, "error", err)
		return nil, MapError(err)
	}

	exec.ErrorMessage = errorMessage.String

	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &exec.Context); err != nil {
			return nil, fmt.Errorf("failed to decode execution context: %w", err)
		}
	}

	return &exec, nil
}

// SaveStepRecord persists a new step record
func (s *PostgresPackageStore) SaveStepRecord(ctx context.Context, record *domain.StepRecord) error {
	log := logger.FromContext(ctx)

	input, err := json.Marshal(record.Input)
	if err != nil {
		return fmt.Errorf("failed to encode step input: %w", err)
	}

	output, err := json.Marshal(record.Output)
	if err != nil {
		return fmt.Errorf("failed to encode step output: %w", err)
	}

	query := `
		INSERT INTO package_step_records (id, execution_id, step_name, step_type,
			status, progress, input, output, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.ExecutionID,
		record.Name,
		record.Type,
		record.Status,
		record.Progress,
		input,
		output,
		record.CreatedAt,
	)

	if err != nil {
		log.Error("failed to save step record",
			"execution_id", record.ExecutionID,
			"step_name", record.Name,
			"error", err)
		return MapError(err)
	}

	return nil
}

// UpdateStepRecord persists the step record's mutable fields
func (s *PostgresPackageStore) UpdateStepRecord(ctx context.Context, record *domain.StepRecord) error {
	log := logger.FromContext(ctx)

	output, err := json.Marshal(record.Output)
	if err != nil {
		return fmt.Errorf("failed to encode step output: %w", err)
	}

	query := `
		UPDATE package_step_records
		SET status = $1, progress = $2, output = $3, error_message = $4, completed_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		record.Status,
		record.Progress,
		output,
		record.ErrorMessage,
		record.CompletedAt,
		record.ID,
	)

	if err != nil {
		log.Error("failed to update step record",
			"step_record_id", record.ID,
			"status", record.Status,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return store.ErrStepRecordNotFound
	}

	return nil
}

// ListStepRecords returns all step records for an execution in the
// order the steps were started
func (s *PostgresPackageStore) ListStepRecords(ctx context.Context, executionID uuid.UUID) ([]*domain.StepRecord, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, execution_id, step_name, step_type, status, progress,
			input, output, error_message, created_at, completed_at
		FROM package_step_records
		WHERE execution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, executionID)
	if err != nil {
		log.Error("failed to list step records", "execution_id", executionID, "error", err)
		return nil, MapError(err)
	}
	defer rows.Close()

	var records []*domain.StepRecord
	for rows.Next() {
		var record domain.StepRecord
		var input, output []byte
		var errorMessage sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.ExecutionID,
			&record.Name,
			&record.Type,
			&record.Status,
			&record.Progress,
			&input,
			&output,
			&errorMessage,
			&record.CreatedAt,
			&record.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan step record row: %w", err)
		}

		record.ErrorMessage = errorMessage.String

		if len(input) > 0 {
			if err := json.Unmarshal(input, &record.Input); err != nil {
				return nil, fmt.Errorf("failed to decode step input: %w", err)
			}
		}
		if len(output) > 0 {
			if err := json.Unmarshal(output, &record.Output); err != nil {
				return nil, fmt.Errorf("failed to decode step output: %w", err)
			}
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step record rows: %w", err)
	}

	return records, nil
}

// WithTx returns a new PackageStore instance that uses the provided transaction
func (s *PostgresPackageStore) WithTx(tx *sql.Tx) store.PackageStore {
	return &PostgresPackageStore{db: tx}
}
