package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	t.Run("creates a queued task", func(t *testing.T) {
		t.Parallel()

		ownerID := uuid.New()
		task, err := NewTask(TaskTypeCMAGeneration, ownerID, map[string]any{"k": "v"}, 5, 3, 120)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, TaskStatusQueued, task.Status)
		assert.Equal(t, ownerID, task.OwnerID)
		assert.Equal(t, 5, task.Priority)
		assert.Equal(t, 0, task.Progress)
		assert.Equal(t, 0, task.Retries)
		assert.Equal(t, 3, task.MaxRetries)
		assert.Equal(t, 120, task.TimeoutSeconds)
		assert.False(t, task.CreatedAt.IsZero())
		assert.Nil(t, task.StartedAt)
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("rejects empty type", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask("", uuid.New(), nil, 0, 0, 0)
		assert.ErrorIs(t, err, ErrEmptyTaskType)
	})

	t.Run("rejects nil owner", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask(TaskTypeLeadScoring, uuid.Nil, nil, 0, 0, 0)
		assert.ErrorIs(t, err, ErrEmptyTaskOwnerID)
	})

	t.Run("rejects negative retry budget", func(t *testing.T) {
		t.Parallel()

		_, err := NewTask(TaskTypeLeadScoring, uuid.New(), nil, 0, -1, 0)
		assert.ErrorIs(t, err, ErrInvalidMaxRetries)
	})
}

func TestTaskIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskStatusQueued, false},
		{TaskStatusProcessing, false},
		{TaskStatusRetrying, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
		{TaskStatusCancelled, true},
	}

	for _, tc := range tests {
		task := Task{Status: tc.status}
		assert.Equal(t, tc.terminal, task.IsTerminal(), "status=%s", tc.status)
	}
}

func TestTaskValidateStatus(t *testing.T) {
	t.Parallel()

	task, err := NewTask(TaskTypeContentGeneration, uuid.New(), nil, 0, 3, 0)
	require.NoError(t, err)

	task.Status = "limbo"
	assert.ErrorIs(t, task.Validate(), ErrInvalidTaskStatus)
}
