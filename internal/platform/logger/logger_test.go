package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/parcelflow/parcelflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "WARN", "bogus"}
	for _, level := range levels {
		logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: level})
		require.NoError(t, err, "level=%s", level)
		assert.NotNil(t, logger)
	}
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		stored := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := WithLogger(context.Background(), stored)

		assert.Same(t, stored, FromContext(ctx))
	})

	t.Run("falls back to the default", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("tolerates nil context", func(t *testing.T) {
		assert.NotNil(t, FromContext(nil)) //nolint:staticcheck
	})
}
