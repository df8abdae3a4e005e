package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
)

// PackageTemplate is the persisted form of a workflow package. Step
// definitions are stored as a JSON document and parsed into
// domain.WorkflowStep values when the package is loaded.
type PackageTemplate struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	StepsJSON      json.RawMessage `json:"steps"`
	IsActive       bool            `json:"is_active"`
	IsTemplate     bool            `json:"is_template"`
	UsageCount     int             `json:"usage_count"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TemplateFilter narrows ListTemplates results. Zero values mean "no
// filter" for that dimension.
type TemplateFilter struct {
	Category string
	OwnerID  uuid.UUID
}

// PackageStore defines the interface for persisting workflow package
// templates, package executions, and their per-step records.
type PackageStore interface {
	// GetTemplate retrieves an active package template by its ID.
	// Returns ErrPackageNotFound if the template does not exist or is inactive.
	GetTemplate(ctx context.Context, id uuid.UUID) (*PackageTemplate, error)

	// ListTemplates returns active templates matching the filter,
	// ordered by usage count descending, then name ascending.
	// Visibility: shared templates plus packages created by the owner.
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]*PackageTemplate, error)

	// CreateTemplate persists a new package template
	CreateTemplate(ctx context.Context, tmpl *PackageTemplate) error

	// IncrementUsage bumps the template's usage counter.
	// Callers treat a failure here as best-effort: it is logged, not fatal.
	IncrementUsage(ctx context.Context, id uuid.UUID) error

	// SaveExecution persists a new package execution record
	SaveExecution(ctx context.Context, exec *domain.PackageExecution) error

	// UpdateExecution persists the execution's mutable fields
	// (status, progress, context snapshot, error message, timestamps)
	UpdateExecution(ctx context.Context, exec *domain.PackageExecution) error

	// GetExecution retrieves a package execution by its ID.
	// Returns ErrExecutionNotFound if the execution does not exist.
	GetExecution(ctx context.Context, id uuid.UUID) (*domain.PackageExecution, error)

	// SaveStepRecord persists a new step record
	SaveStepRecord(ctx context.Context, record *domain.StepRecord) error

	// UpdateStepRecord persists the step record's mutable fields
	UpdateStepRecord(ctx context.Context, record *domain.StepRecord) error

	// ListStepRecords returns all step records for an execution in the
	// order the steps were started.
	ListStepRecords(ctx context.Context, executionID uuid.UUID) ([]*domain.StepRecord, error)

	// WithTx returns a new PackageStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PackageStore
}
