package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Workflow WorkflowConfig `mapstructure:"workflow" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// WorkflowConfig tunes the task orchestrator and package executor.
type WorkflowConfig struct {
	// DefaultMaxRetries is the retry budget applied to tasks submitted
	// without an explicit budget.
	DefaultMaxRetries int `mapstructure:"default_max_retries" validate:"gte=0"`

	// PollIntervalSeconds is how often the package executor checks a
	// step's task status.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"gt=0"`

	// BackoffCapSeconds bounds the exponential retry backoff.
	BackoffCapSeconds int `mapstructure:"backoff_cap_seconds" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings. These are
// only required when the Gemini-backed content processors are enabled.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}
