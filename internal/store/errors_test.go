package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(ErrNotFound))
	assert.True(t, IsNotFoundError(ErrTaskNotFound))
	assert.True(t, IsNotFoundError(ErrPackageNotFound))
	assert.True(t, IsNotFoundError(ErrExecutionNotFound))
	assert.True(t, IsNotFoundError(ErrStepRecordNotFound))

	assert.False(t, IsNotFoundError(ErrDuplicate))
	assert.False(t, IsNotFoundError(errors.New("something else")))
	assert.False(t, IsNotFoundError(nil))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	inner := ErrUpdateFailed
	err := NewStoreError("task", "update", "row vanished", inner)

	assert.Contains(t, err.Error(), "update operation on task failed")
	assert.Contains(t, err.Error(), "row vanished")
	assert.ErrorIs(t, err, ErrUpdateFailed)

	bare := NewStoreError("package_execution", "create", "no context", nil)
	assert.Contains(t, bare.Error(), "create operation on package_execution failed")
	assert.Nil(t, errors.Unwrap(bare))
}
