package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/store"
)

// StepSpec is the wire form of a workflow step, as stored in a package
// template's steps document and as accepted when creating custom
// packages. EstimatedDuration is in seconds.
type StepSpec struct {
	StepName          string         `json:"step_name"          validate:"required"`
	StepType          string         `json:"step_type"          validate:"required"`
	Description       string         `json:"description"        validate:"required"`
	EstimatedDuration int            `json:"estimated_duration" validate:"required,gt=0"`
	Inputs            []string       `json:"inputs"             validate:"required"`
	Outputs           []string       `json:"outputs"            validate:"required"`
	DependsOn         []string       `json:"depends_on,omitempty"`
	Configuration     map[string]any `json:"configuration,omitempty"`
}

// PackageSummary is the list view of an available package template.
type PackageSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	StepCount      int       `json:"step_count"`
	EstimatedTotal string    `json:"estimated_total"`
	UsageCount     int       `json:"usage_count"`
}

// ExecutionStatusTree is the full status view of one package run: the
// execution record plus every step record in start order.
type ExecutionStatusTree struct {
	Execution *domain.PackageExecution `json:"execution"`
	Steps     []*domain.StepRecord     `json:"steps"`
}

// PackageExecutor is the slice of the executor the manager delegates to.
type PackageExecutor interface {
	ExecutePackage(ctx context.Context, pkg *domain.WorkflowPackage, ownerID uuid.UUID, execCtx *Context) (uuid.UUID, error)
}

// Known defaults filled in for recognized-but-missing first-step
// inputs. List-typed inputs default to an empty list.
var knownInputDefaults = map[string]any{
	"market_conditions": "stable",
}

var listTypedInputs = map[string]bool{
	"comparable_properties": true,
	"property_photos":       true,
	"recent_sales":          true,
	"leads":                 true,
	"target_leads":          true,
}

// Manager loads workflow package templates, validates and enriches
// initial execution contexts, and delegates runs to the executor. A
// per-process read-through cache sits over the template store; it is
// not a source of truth and multi-instance deployments must tolerate
// misses.
type Manager struct {
	store    store.PackageStore
	executor PackageExecutor
	registry *Registry
	logger   *slog.Logger
	validate *validator.Validate

	mu    sync.Mutex
	cache map[uuid.UUID]*domain.WorkflowPackage
}

// NewManager creates a new package Manager.
func NewManager(pkgStore store.PackageStore, executor PackageExecutor, registry *Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:    pkgStore,
		executor: executor,
		registry: registry,
		logger:   logger.With("component", "package_manager"),
		validate: validator.New(),
		cache:    make(map[uuid.UUID]*domain.WorkflowPackage),
	}
}

// GetAvailablePackages lists active templates, optionally filtered by
// category and owner visibility, ordered by usage count descending then
// name ascending. Ordering is done by the store.
func (m *Manager) GetAvailablePackages(ctx context.Context, category string, ownerID uuid.UUID) ([]*PackageSummary, error) {
	templates, err := m.store.ListTemplates(ctx, store.TemplateFilter{
		Category: category,
		OwnerID:  ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list package templates: %w", err)
	}

	summaries := make([]*PackageSummary, 0, len(templates))
	for _, tmpl := range templates {
		var specs []StepSpec
		stepCount := 0
		total := 0
		if err := json.Unmarshal(tmpl.StepsJSON, &specs); err == nil {
			stepCount = len(specs)
			for _, s := range specs {
				total += s.EstimatedDuration
			}
		} else {
			m.logger.Warn("skipping unparseable steps document in listing",
				"package_id", tmpl.ID, "error", err)
		}

		summaries = append(summaries, &PackageSummary{
			ID:             tmpl.ID,
			Name:           tmpl.Name,
			Description:    tmpl.Description,
			Category:       tmpl.Category,
			StepCount:      stepCount,
			EstimatedTotal: (time.Duration(total) * time.Second).String(),
			UsageCount:     tmpl.UsageCount,
		})
	}

	return summaries, nil
}

// LoadPackage returns the workflow package for the given template ID,
// consulting the in-memory cache first. On a miss the template record
// is read, its step specifications parsed and resolved against the
// processor registry, and the result cached. Nothing is cached when
// loading fails.
func (m *Manager) LoadPackage(ctx context.Context, id uuid.UUID) (*domain.WorkflowPackage, error) {
	m.mu.Lock()
	if pkg, ok := m.cache[id]; ok {
		m.mu.Unlock()
		return pkg, nil
	}
	m.mu.Unlock()

	tmpl, err := m.store.GetTemplate(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, id)
		}
		return nil, fmt.Errorf("failed to load package template: %w", err)
	}

	pkg, err := m.buildPackage(tmpl)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[id] = pkg
	m.mu.Unlock()

	m.logger.Debug("package loaded and cached", "package_id", id, "name", pkg.Name)
	return pkg, nil
}

// buildPackage parses and validates a template's step specifications
// into a WorkflowPackage.
func (m *Manager) buildPackage(tmpl *store.PackageTemplate) (*domain.WorkflowPackage, error) {
	var specs []StepSpec
	if err := json.Unmarshal(tmpl.StepsJSON, &specs); err != nil {
		return nil, NewValidationError("steps", "steps document is not valid JSON", err)
	}

	steps, err := m.specsToSteps(specs)
	if err != nil {
		return nil, err
	}

	pkg, err := domain.NewWorkflowPackage(tmpl.ID, tmpl.Name, tmpl.Description, tmpl.Category, steps)
	if err != nil {
		return nil, NewValidationError("package", "package definition invalid", err)
	}

	return pkg, nil
}

// specsToSteps validates each spec and converts it to a domain step.
// Every step's type must resolve to a registered task type, except the
// human-review stage which is handled by the executor itself.
func (m *Manager) specsToSteps(specs []StepSpec) ([]domain.WorkflowStep, error) {
	if len(specs) == 0 {
		return nil, NewValidationError("steps", "package must contain at least one step", nil)
	}

	steps := make([]domain.WorkflowStep, 0, len(specs))
	for i, spec := range specs {
		if err := m.validate.Struct(spec); err != nil {
			return nil, NewValidationError(
				fmt.Sprintf("steps[%d]", i),
				"step specification is missing required fields",
				err,
			)
		}

		if spec.StepType != domain.TaskTypeHumanReview && !m.registry.Has(spec.StepType) {
			return nil, NewValidationError(
				fmt.Sprintf("steps[%d].step_type", i),
				fmt.Sprintf("%q does not resolve to a known task type", spec.StepType),
				ErrUnknownStepType,
			)
		}

		steps = append(steps, domain.WorkflowStep{
			Name:              spec.StepName,
			Type:              spec.StepType,
			Description:       spec.Description,
			EstimatedDuration: time.Duration(spec.EstimatedDuration) * time.Second,
			Inputs:            spec.Inputs,
			Outputs:           spec.Outputs,
			DependsOn:         spec.DependsOn,
			Config:            spec.Configuration,
		})
	}

	return steps, nil
}

// ExecutePackage loads the package, validates and enriches the initial
// context against the first step's declared inputs, best-effort bumps
// the template's usage counter, and delegates to the executor.
func (m *Manager) ExecutePackage(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, initial map[string]any) (uuid.UUID, error) {
	pkg, err := m.LoadPackage(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}

	execCtx := NewContext(initial)
	m.fillFirstStepDefaults(pkg, execCtx)

	// Usage counting must never block a run
	if err := m.store.IncrementUsage(ctx, id); err != nil {
		m.logger.Warn("failed to increment package usage counter",
			"package_id", id, "error", err)
	}

	return m.executor.ExecutePackage(ctx, pkg, ownerID, execCtx)
}

// fillFirstStepDefaults fills known defaults for the first step's
// declared inputs and warns about inputs that remain genuinely missing.
func (m *Manager) fillFirstStepDefaults(pkg *domain.WorkflowPackage, execCtx *Context) {
	first := &pkg.Steps[0]
	for _, input := range first.Inputs {
		if _, ok := execCtx.Get(input); ok {
			continue
		}

		if def, known := knownInputDefaults[input]; known {
			execCtx.Set(input, def)
			m.logger.Debug("filled default for missing input",
				"package_name", pkg.Name, "input", input, "default", def)
			continue
		}

		if listTypedInputs[input] {
			execCtx.Set(input, []any{})
			m.logger.Debug("filled empty list for missing input",
				"package_name", pkg.Name, "input", input)
			continue
		}

		m.logger.Warn("first step input missing from initial context",
			"package_name", pkg.Name,
			"step_name", first.Name,
			"input", input)
	}
}

// GetExecutionStatus joins the execution record with its ordered step
// records into a full status tree.
func (m *Manager) GetExecutionStatus(ctx context.Context, executionID uuid.UUID) (*ExecutionStatusTree, error) {
	exec, err := m.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	steps, err := m.store.ListStepRecords(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list step records: %w", err)
	}

	return &ExecutionStatusTree{
		Execution: exec,
		Steps:     steps,
	}, nil
}

// CreateCustomPackage validates every step, computes the total
// estimated duration, and persists a new non-template package scoped to
// the owner's organization. Validation failures happen before any
// persistence.
func (m *Manager) CreateCustomPackage(ctx context.Context, ownerID, organizationID uuid.UUID, name, description, category string, specs []StepSpec) (uuid.UUID, error) {
	if name == "" {
		return uuid.Nil, NewValidationError("name", "package name cannot be empty", nil)
	}

	// Validate before persisting anything
	if _, err := m.specsToSteps(specs); err != nil {
		return uuid.Nil, err
	}

	stepsJSON, err := json.Marshal(specs)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode steps: %w", err)
	}

	tmpl := &store.PackageTemplate{
		ID:             uuid.New(),
		Name:           name,
		Description:    description,
		Category:       category,
		StepsJSON:      stepsJSON,
		IsActive:       true,
		IsTemplate:     false,
		OrganizationID: organizationID,
		CreatedBy:      ownerID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := m.store.CreateTemplate(ctx, tmpl); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create package template: %w", err)
	}

	m.logger.Info("custom package created",
		"package_id", tmpl.ID,
		"name", name,
		"owner_id", ownerID,
		"step_count", len(specs))

	return tmpl.ID, nil
}
