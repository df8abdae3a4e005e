package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records the execution request instead of running it.
type fakeExecutor struct {
	lastPkg    *domain.WorkflowPackage
	lastCtx    *Context
	executions int32
	err        error
}

func (f *fakeExecutor) ExecutePackage(ctx context.Context, pkg *domain.WorkflowPackage, ownerID uuid.UUID, execCtx *Context) (uuid.UUID, error) {
	atomic.AddInt32(&f.executions, 1)
	f.lastPkg = pkg
	f.lastCtx = execCtx
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return uuid.New(), nil
}

func registryWithDefaults(t *testing.T) *Registry {
	t.Helper()

	registry := NewRegistry()
	require.NoError(t, RegisterDefaultProcessors(registry, &stubGenerator{}, testLogger()))
	return registry
}

func mustStepsJSON(t *testing.T, specs []StepSpec) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(specs)
	require.NoError(t, err)
	return raw
}

func validSpecs() []StepSpec {
	return []StepSpec{
		{
			StepName:          "generate_cma",
			StepType:          domain.TaskTypeCMAGeneration,
			Description:       "Run the CMA",
			EstimatedDuration: 300,
			Inputs:            []string{"property_details", "market_conditions", "comparable_properties"},
			Outputs:           []string{"cma_report", "suggested_price"},
		},
		{
			StepName:          "generate_content",
			StepType:          domain.TaskTypeContentGeneration,
			Description:       "Write the listing",
			EstimatedDuration: 600,
			Inputs:            []string{"cma_report"},
			Outputs:           []string{"listing_description"},
			DependsOn:         []string{"generate_cma"},
		},
	}
}

func seedTemplate(t *testing.T, pkgStore *MockPackageStore, specs []StepSpec) *store.PackageTemplate {
	t.Helper()

	tmpl := &store.PackageTemplate{
		ID:         uuid.New(),
		Name:       "seeded_package",
		Category:   "listing",
		StepsJSON:  mustStepsJSON(t, specs),
		IsActive:   true,
		IsTemplate: true,
		CreatedAt:  time.Now().UTC(),
	}
	pkgStore.AddTemplate(tmpl)
	return tmpl
}

func TestManagerLoadPackage(t *testing.T) {
	t.Parallel()

	t.Run("loads and caches", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		tmpl := seedTemplate(t, pkgStore, validSpecs())

		var storeCalls int32
		inner := pkgStore.GetTemplateFn
		pkgStore.GetTemplateFn = func(ctx context.Context, id uuid.UUID) (*store.PackageTemplate, error) {
			atomic.AddInt32(&storeCalls, 1)
			return inner(ctx, id)
		}

		m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

		pkg, err := m.LoadPackage(context.Background(), tmpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "seeded_package", pkg.Name)
		assert.Len(t, pkg.Steps, 2)
		assert.Equal(t, 900*time.Second, pkg.EstimatedTotal)

		_, err = m.LoadPackage(context.Background(), tmpl.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&storeCalls), "second load must hit the cache")
	})

	t.Run("unknown package", func(t *testing.T) {
		t.Parallel()

		m := NewManager(NewMockPackageStore(), &fakeExecutor{}, registryWithDefaults(t), testLogger())

		_, err := m.LoadPackage(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrPackageNotFound)
	})

	t.Run("nothing cached on failure", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		var storeCalls int32
		pkgStore.GetTemplateFn = func(ctx context.Context, id uuid.UUID) (*store.PackageTemplate, error) {
			atomic.AddInt32(&storeCalls, 1)
			return nil, store.ErrPackageNotFound
		}

		m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

		id := uuid.New()
		_, err := m.LoadPackage(context.Background(), id)
		require.Error(t, err)
		_, err = m.LoadPackage(context.Background(), id)
		require.Error(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&storeCalls))
	})

	t.Run("rejects unknown step type", func(t *testing.T) {
		t.Parallel()

		specs := validSpecs()
		specs[1].StepType = "time_travel"

		pkgStore := NewMockPackageStore()
		tmpl := seedTemplate(t, pkgStore, specs)

		m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

		_, err := m.LoadPackage(context.Background(), tmpl.ID)
		assert.ErrorIs(t, err, ErrUnknownStepType)

		var valErr *ValidationError
		assert.ErrorAs(t, err, &valErr)
	})

	t.Run("human review step needs no processor", func(t *testing.T) {
		t.Parallel()

		specs := validSpecs()
		specs = append(specs, StepSpec{
			StepName:          "agent_review",
			StepType:          domain.TaskTypeHumanReview,
			Description:       "Agent signs off",
			EstimatedDuration: 1800,
			Inputs:            []string{"listing_description"},
			Outputs:           []string{"review_approved"},
		})

		pkgStore := NewMockPackageStore()
		tmpl := seedTemplate(t, pkgStore, specs)

		m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

		pkg, err := m.LoadPackage(context.Background(), tmpl.ID)
		require.NoError(t, err)
		assert.Len(t, pkg.Steps, 3)
	})

	t.Run("rejects malformed steps document", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		tmpl := &store.PackageTemplate{
			ID:        uuid.New(),
			Name:      "broken",
			StepsJSON: json.RawMessage(`{"not": "a list"}`),
			IsActive:  true,
		}
		pkgStore.AddTemplate(tmpl)

		m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

		_, err := m.LoadPackage(context.Background(), tmpl.ID)
		var valErr *ValidationError
		assert.ErrorAs(t, err, &valErr)
	})
}

func TestManagerExecutePackage(t *testing.T) {
	t.Parallel()

	t.Run("fills first step defaults", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		tmpl := seedTemplate(t, pkgStore, validSpecs())

		exec := &fakeExecutor{}
		m := NewManager(pkgStore, exec, registryWithDefaults(t), testLogger())

		_, err := m.ExecutePackage(context.Background(), tmpl.ID, uuid.New(), map[string]any{
			"property_details": map[string]any{"address": "12 Oak St"},
		})
		require.NoError(t, err)
		require.NotNil(t, exec.lastCtx)

		conditions, ok := exec.lastCtx.Get("market_conditions")
		require.True(t, ok)
		assert.Equal(t, "stable", conditions)

		comparables, ok := exec.lastCtx.Get("comparable_properties")
		require.True(t, ok)
		assert.Equal(t, []any{}, comparables)
	})

	t.Run("supplied values are not overwritten", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		tmpl := seedTemplate(t, pkgStore, validSpecs())

		exec := &fakeExecutor{}
		m := NewManager(pkgStore, exec, registryWithDefaults(t), testLogger())

		_, err := m.ExecutePackage(context.Background(), tmpl.ID, uuid.New(), map[string]any{
			"market_conditions": "hot",
		})
		require.NoError(t, err)

		conditions, _ := exec.lastCtx.Get("market_conditions")
		assert.Equal(t, "hot", conditions)
	})

	t.Run("usage counting is best effort", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		tmpl := seedTemplate(t, pkgStore, validSpecs())
		pkgStore.IncrementUsageFn = func(ctx context.Context, id uuid.UUID) error {
			return errors.New("counter table offline")
		}

		exec := &fakeExecutor{}
		m := NewManager(pkgStore, exec, registryWithDefaults(t), testLogger())

		_, err := m.ExecutePackage(context.Background(), tmpl.ID, uuid.New(), nil)
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&exec.executions))
	})

	t.Run("unknown package does not reach the executor", func(t *testing.T) {
		t.Parallel()

		exec := &fakeExecutor{}
		m := NewManager(NewMockPackageStore(), exec, registryWithDefaults(t), testLogger())

		_, err := m.ExecutePackage(context.Background(), uuid.New(), uuid.New(), nil)
		assert.ErrorIs(t, err, ErrPackageNotFound)
		assert.Equal(t, int32(0), atomic.LoadInt32(&exec.executions))
	})
}

func TestManagerGetAvailablePackages(t *testing.T) {
	t.Parallel()

	pkgStore := NewMockPackageStore()
	pkgStore.AddTemplate(&store.PackageTemplate{
		ID:         uuid.New(),
		Name:       "alpha",
		Category:   "listing",
		StepsJSON:  mustStepsJSON(t, validSpecs()),
		IsActive:   true,
		IsTemplate: true,
		UsageCount: 1,
	})
	pkgStore.AddTemplate(&store.PackageTemplate{
		ID:         uuid.New(),
		Name:       "beta",
		Category:   "listing",
		StepsJSON:  mustStepsJSON(t, validSpecs()),
		IsActive:   true,
		IsTemplate: true,
		UsageCount: 7,
	})
	pkgStore.AddTemplate(&store.PackageTemplate{
		ID:         uuid.New(),
		Name:       "inactive",
		Category:   "listing",
		StepsJSON:  mustStepsJSON(t, validSpecs()),
		IsActive:   false,
		IsTemplate: true,
	})

	m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

	summaries, err := m.GetAvailablePackages(context.Background(), "listing", uuid.Nil)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Most used first.
	assert.Equal(t, "beta", summaries[0].Name)
	assert.Equal(t, 7, summaries[0].UsageCount)
	assert.Equal(t, "alpha", summaries[1].Name)

	assert.Equal(t, 2, summaries[0].StepCount)
	assert.Equal(t, (900 * time.Second).String(), summaries[0].EstimatedTotal)
}

func TestManagerCreateCustomPackage(t *testing.T) {
	t.Parallel()

	t.Run("persists a valid package", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

		ownerID := uuid.New()
		orgID := uuid.New()

		id, err := m.CreateCustomPackage(context.Background(), ownerID, orgID,
			"sphere_farming", "Quarterly outreach to the sphere", "leads", validSpecs())
		require.NoError(t, err)

		tmpl, err := pkgStore.GetTemplate(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "sphere_farming", tmpl.Name)
		assert.True(t, tmpl.IsActive)
		assert.False(t, tmpl.IsTemplate, "custom packages are not shared templates")
		assert.Equal(t, ownerID, tmpl.CreatedBy)
		assert.Equal(t, orgID, tmpl.OrganizationID)
	})

	t.Run("validates before persisting", func(t *testing.T) {
		t.Parallel()

		pkgStore := NewMockPackageStore()
		var created int32
		pkgStore.CreateTemplateFn = func(ctx context.Context, tmpl *store.PackageTemplate) error {
			atomic.AddInt32(&created, 1)
			return nil
		}

		m := NewManager(pkgStore, &fakeExecutor{}, registryWithDefaults(t), testLogger())

		specs := validSpecs()
		specs[0].StepType = "nonsense"

		_, err := m.CreateCustomPackage(context.Background(), uuid.New(), uuid.New(),
			"bad_package", "", "listing", specs)
		assert.ErrorIs(t, err, ErrUnknownStepType)
		assert.Equal(t, int32(0), atomic.LoadInt32(&created))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		t.Parallel()

		m := NewManager(NewMockPackageStore(), &fakeExecutor{}, registryWithDefaults(t), testLogger())

		_, err := m.CreateCustomPackage(context.Background(), uuid.New(), uuid.New(),
			"", "", "listing", validSpecs())

		var valErr *ValidationError
		assert.ErrorAs(t, err, &valErr)
	})

	t.Run("rejects empty step list", func(t *testing.T) {
		t.Parallel()

		m := NewManager(NewMockPackageStore(), &fakeExecutor{}, registryWithDefaults(t), testLogger())

		_, err := m.CreateCustomPackage(context.Background(), uuid.New(), uuid.New(),
			"empty", "", "listing", nil)

		var valErr *ValidationError
		assert.ErrorAs(t, err, &valErr)
	})
}

func TestManagerGetExecutionStatus(t *testing.T) {
	t.Parallel()

	pkgStore := NewMockPackageStore()

	pkg := testPackage(t, domain.WorkflowStep{
		Name: "one", Type: "step", EstimatedDuration: time.Second,
	})
	exec, err := domain.NewPackageExecution(pkg, uuid.New(), map[string]any{"seed": true})
	require.NoError(t, err)
	require.NoError(t, pkgStore.SaveExecution(context.Background(), exec))

	record := domain.NewStepRecord(exec.ID, &pkg.Steps[0], nil)
	require.NoError(t, pkgStore.SaveStepRecord(context.Background(), record))

	m := NewManager(pkgStore, &fakeExecutor{}, NewRegistry(), testLogger())

	tree, err := m.GetExecutionStatus(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, exec.ID, tree.Execution.ID)
	require.Len(t, tree.Steps, 1)
	assert.Equal(t, "one", tree.Steps[0].Name)

	_, err = m.GetExecutionStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrExecutionNotFound)
}
