package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep a bare environment bootable for local development
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("workflow.default_max_retries", 3)
	v.SetDefault("workflow.poll_interval_seconds", 2)
	v.SetDefault("workflow.backoff_cap_seconds", 30)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")

	// Keys without defaults must still be registered so AutomaticEnv
	// picks them up during Unmarshal
	v.SetDefault("database.url", "")
	v.SetDefault("llm.gemini_api_key", "")

	// Optional config file in the working directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; environment variables may cover everything
	}

	// Environment variables with PARCELFLOW_ prefix override file values,
	// e.g. PARCELFLOW_DATABASE_URL maps to database.url
	v.SetEnvPrefix("PARCELFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
