package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional taskboard.yaml file and from
// environment variables with the TASKBOARD_ prefix. Environment variables
// take precedence over values from the config file, and both override the
// built-in defaults. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults double as the key registry: viper only unmarshals keys it
	// has seen through a default, a config file, or an explicit binding.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dir", "data/tasks")
	v.SetDefault("store.database_url", "")
	v.SetDefault("board.worker_count", 2)
	v.SetDefault("board.default_timeout_seconds", 300)
	v.SetDefault("board.default_max_retries", 1)
	v.SetDefault("board.sweep_interval", "5s")
	v.SetDefault("board.grace_period", "5s")
	v.SetDefault("board.retention_age", "24h")
	v.SetDefault("board.cleanup_interval", "10m")

	v.SetConfigName("taskboard")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.taskboard")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything has a default or an
		// environment override.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
