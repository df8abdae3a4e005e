package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStep(name string) WorkflowStep {
	return WorkflowStep{
		Name:              name,
		Type:              TaskTypeContentGeneration,
		EstimatedDuration: 5 * time.Minute,
	}
}

func TestNewWorkflowPackage(t *testing.T) {
	t.Parallel()

	t.Run("sums step durations", func(t *testing.T) {
		t.Parallel()

		pkg, err := NewWorkflowPackage(uuid.New(), "pkg", "desc", "listing", []WorkflowStep{
			validStep("a"),
			validStep("b"),
		})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, pkg.EstimatedTotal)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		t.Parallel()

		_, err := NewWorkflowPackage(uuid.New(), "", "", "", []WorkflowStep{validStep("a")})
		assert.ErrorIs(t, err, ErrEmptyPackageName)
	})

	t.Run("rejects empty step list", func(t *testing.T) {
		t.Parallel()

		_, err := NewWorkflowPackage(uuid.New(), "pkg", "", "", nil)
		assert.ErrorIs(t, err, ErrPackageWithoutSteps)
	})

	t.Run("rejects invalid step", func(t *testing.T) {
		t.Parallel()

		bad := validStep("a")
		bad.EstimatedDuration = 0

		_, err := NewWorkflowPackage(uuid.New(), "pkg", "", "", []WorkflowStep{bad})
		assert.ErrorIs(t, err, ErrInvalidStepDuration)
	})
}

func TestWorkflowStepValidate(t *testing.T) {
	t.Parallel()

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()

		step := validStep("")
		assert.ErrorIs(t, step.Validate(), ErrEmptyStepName)
	})

	t.Run("missing type", func(t *testing.T) {
		t.Parallel()

		step := validStep("a")
		step.Type = ""
		assert.ErrorIs(t, step.Validate(), ErrEmptyStepType)
	})
}

func TestNewPackageExecution(t *testing.T) {
	t.Parallel()

	pkg, err := NewWorkflowPackage(uuid.New(), "pkg", "", "listing", []WorkflowStep{validStep("a")})
	require.NoError(t, err)

	t.Run("starts running at zero progress", func(t *testing.T) {
		t.Parallel()

		exec, err := NewPackageExecution(pkg, uuid.New(), map[string]any{"seed": 1})
		require.NoError(t, err)

		assert.Equal(t, ExecutionStatusRunning, exec.Status)
		assert.Equal(t, 0, exec.Progress)
		assert.Equal(t, pkg.ID, exec.PackageID)
		assert.Equal(t, pkg.Name, exec.PackageName)
		assert.False(t, exec.IsTerminal())
	})

	t.Run("rejects nil owner", func(t *testing.T) {
		t.Parallel()

		_, err := NewPackageExecution(pkg, uuid.Nil, nil)
		assert.ErrorIs(t, err, ErrEmptyExecutionOwnerID)
	})
}

func TestNewStepRecord(t *testing.T) {
	t.Parallel()

	step := validStep("generate_content")
	executionID := uuid.New()

	record := NewStepRecord(executionID, &step, map[string]any{"in": true})

	assert.Equal(t, executionID, record.ExecutionID)
	assert.Equal(t, "generate_content", record.Name)
	assert.Equal(t, StepStatusPending, record.Status)
	assert.Equal(t, 0, record.Progress)
	assert.Equal(t, map[string]any{"in": true}, record.Input)
}
