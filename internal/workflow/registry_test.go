package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopProcessor(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("register and resolve", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		require.NoError(t, r.Register("content_generation", noopProcessor))

		assert.True(t, r.Has("content_generation"))
		_, ok := r.Get("content_generation")
		assert.True(t, ok)
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		require.NoError(t, r.Register("lead_scoring", noopProcessor))
		assert.Error(t, r.Register("lead_scoring", noopProcessor))
	})

	t.Run("unknown type does not resolve", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		assert.False(t, r.Has("nope"))
		_, ok := r.Get("nope")
		assert.False(t, ok)
	})
}
