package workflow

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/store"
)

// MockTaskStore implements store.TaskStore in memory for testing.
// The Fn fields allow individual operations to be overridden.
type MockTaskStore struct {
	mutex    sync.RWMutex
	tasks    map[uuid.UUID]domain.Task
	SaveFn   func(ctx context.Context, task *domain.Task) error
	UpdateFn func(ctx context.Context, task *domain.Task) error
	GetFn    func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// NewMockTaskStore creates a new MockTaskStore with default implementations
func NewMockTaskStore() *MockTaskStore {
	s := &MockTaskStore{
		tasks: make(map[uuid.UUID]domain.Task),
	}

	s.SaveFn = func(ctx context.Context, task *domain.Task) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		s.tasks[task.ID] = *task
		return nil
	}

	s.UpdateFn = func(ctx context.Context, task *domain.Task) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		if _, exists := s.tasks[task.ID]; !exists {
			return store.ErrTaskNotFound
		}
		s.tasks[task.ID] = *task
		return nil
	}

	s.GetFn = func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()
		task, exists := s.tasks[id]
		if !exists {
			return nil, store.ErrTaskNotFound
		}
		copied := task
		return &copied, nil
	}

	return s
}

// Save persists a task to the mock store
func (s *MockTaskStore) Save(ctx context.Context, task *domain.Task) error {
	return s.SaveFn(ctx, task)
}

// Update persists the task's mutable fields
func (s *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	return s.UpdateFn(ctx, task)
}

// GetByID retrieves a task by ID
func (s *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.GetFn(ctx, id)
}

// WithTx implements store.TaskStore.WithTx for the mock store
func (s *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return s
}

// MockPackageStore implements store.PackageStore in memory for testing.
type MockPackageStore struct {
	mutex       sync.RWMutex
	templates   map[uuid.UUID]store.PackageTemplate
	executions  map[uuid.UUID]domain.PackageExecution
	stepRecords map[uuid.UUID][]domain.StepRecord // keyed by execution ID, in save order

	GetTemplateFn    func(ctx context.Context, id uuid.UUID) (*store.PackageTemplate, error)
	CreateTemplateFn func(ctx context.Context, tmpl *store.PackageTemplate) error
	IncrementUsageFn func(ctx context.Context, id uuid.UUID) error
}

// NewMockPackageStore creates a new MockPackageStore with default implementations
func NewMockPackageStore() *MockPackageStore {
	s := &MockPackageStore{
		templates:   make(map[uuid.UUID]store.PackageTemplate),
		executions:  make(map[uuid.UUID]domain.PackageExecution),
		stepRecords: make(map[uuid.UUID][]domain.StepRecord),
	}

	s.GetTemplateFn = func(ctx context.Context, id uuid.UUID) (*store.PackageTemplate, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()
		tmpl, exists := s.templates[id]
		if !exists || !tmpl.IsActive {
			return nil, store.ErrPackageNotFound
		}
		copied := tmpl
		return &copied, nil
	}

	s.CreateTemplateFn = func(ctx context.Context, tmpl *store.PackageTemplate) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		s.templates[tmpl.ID] = *tmpl
		return nil
	}

	s.IncrementUsageFn = func(ctx context.Context, id uuid.UUID) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		tmpl, exists := s.templates[id]
		if !exists {
			return store.ErrPackageNotFound
		}
		tmpl.UsageCount++
		s.templates[id] = tmpl
		return nil
	}

	return s
}

// AddTemplate seeds a template directly, bypassing validation.
func (s *MockPackageStore) AddTemplate(tmpl *store.PackageTemplate) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.templates[tmpl.ID] = *tmpl
}

// GetTemplate retrieves an active template by ID
func (s *MockPackageStore) GetTemplate(ctx context.Context, id uuid.UUID) (*store.PackageTemplate, error) {
	return s.GetTemplateFn(ctx, id)
}

// ListTemplates returns active templates ordered by usage count
// descending, then name ascending.
func (s *MockPackageStore) ListTemplates(ctx context.Context, filter store.TemplateFilter) ([]*store.PackageTemplate, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []*store.PackageTemplate
	for _, tmpl := range s.templates {
		if !tmpl.IsActive {
			continue
		}
		if filter.Category != "" && tmpl.Category != filter.Category {
			continue
		}
		if filter.OwnerID != uuid.Nil && !tmpl.IsTemplate && tmpl.CreatedBy != filter.OwnerID {
			continue
		}
		copied := tmpl
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UsageCount != result[j].UsageCount {
			return result[i].UsageCount > result[j].UsageCount
		}
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// CreateTemplate persists a new template
func (s *MockPackageStore) CreateTemplate(ctx context.Context, tmpl *store.PackageTemplate) error {
	return s.CreateTemplateFn(ctx, tmpl)
}

// IncrementUsage bumps the template's usage counter
func (s *MockPackageStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return s.IncrementUsageFn(ctx, id)
}

// SaveExecution persists a new execution record
func (s *MockPackageStore) SaveExecution(ctx context.Context, exec *domain.PackageExecution) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.executions[exec.ID] = *exec
	return nil
}

// UpdateExecution persists the execution's mutable fields
func (s *MockPackageStore) UpdateExecution(ctx context.Context, exec *domain.PackageExecution) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, exists := s.executions[exec.ID]; !exists {
		return store.ErrExecutionNotFound
	}
	s.executions[exec.ID] = *exec
	return nil
}

// GetExecution retrieves an execution by ID
func (s *MockPackageStore) GetExecution(ctx context.Context, id uuid.UUID) (*domain.PackageExecution, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	exec, exists := s.executions[id]
	if !exists {
		return nil, store.ErrExecutionNotFound
	}
	copied := exec
	return &copied, nil
}

// SaveStepRecord persists a new step record
func (s *MockPackageStore) SaveStepRecord(ctx context.Context, record *domain.StepRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stepRecords[record.ExecutionID] = append(s.stepRecords[record.ExecutionID], *record)
	return nil
}

// UpdateStepRecord persists the step record's mutable fields
func (s *MockPackageStore) UpdateStepRecord(ctx context.Context, record *domain.StepRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	records := s.stepRecords[record.ExecutionID]
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = *record
			return nil
		}
	}
	return store.ErrStepRecordNotFound
}

// ListStepRecords returns the execution's step records in save order
func (s *MockPackageStore) ListStepRecords(ctx context.Context, executionID uuid.UUID) ([]*domain.StepRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := s.stepRecords[executionID]
	result := make([]*domain.StepRecord, 0, len(records))
	for i := range records {
		copied := records[i]
		result = append(result, &copied)
	}
	return result, nil
}

// WithTx implements store.PackageStore.WithTx for the mock store
func (s *MockPackageStore) WithTx(tx *sql.Tx) store.PackageStore {
	return s
}
