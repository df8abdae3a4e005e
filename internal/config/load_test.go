package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PARCELFLOW_DATABASE_URL", "postgres://localhost:5432/parcelflow")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 3, cfg.Workflow.DefaultMaxRetries)
	assert.Equal(t, 2, cfg.Workflow.PollIntervalSeconds)
	assert.Equal(t, 30, cfg.Workflow.BackoffCapSeconds)
	assert.Empty(t, cfg.LLM.GeminiAPIKey)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PARCELFLOW_DATABASE_URL", "postgres://localhost:5432/parcelflow")
	t.Setenv("PARCELFLOW_SERVER_PORT", "9090")
	t.Setenv("PARCELFLOW_SERVER_LOG_LEVEL", "debug")
	t.Setenv("PARCELFLOW_WORKFLOW_DEFAULT_MAX_RETRIES", "5")
	t.Setenv("PARCELFLOW_LLM_GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5, cfg.Workflow.DefaultMaxRetries)
	assert.Equal(t, "test-key", cfg.LLM.GeminiAPIKey)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		// No PARCELFLOW_DATABASE_URL in the environment.
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("PARCELFLOW_DATABASE_URL", "postgres://localhost:5432/parcelflow")
		t.Setenv("PARCELFLOW_SERVER_LOG_LEVEL", "verbose")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv("PARCELFLOW_DATABASE_URL", "postgres://localhost:5432/parcelflow")
		t.Setenv("PARCELFLOW_SERVER_PORT", "0")

		_, err := Load()
		assert.Error(t, err)
	})
}
