package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Store  StoreConfig  `mapstructure:"store"  validate:"required"`
	Board  BoardConfig  `mapstructure:"board"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StoreConfig selects and configures the task-record persistence backend.
type StoreConfig struct {
	// Driver selects the persistence backend: "file" keeps one JSON record
	// per task on disk, "postgres" uses a tasks table.
	Driver string `mapstructure:"driver" validate:"required,oneof=file postgres"`

	// Dir is the directory holding task record files (file driver).
	Dir string `mapstructure:"dir" validate:"required_if=Driver file"`

	// DatabaseURL is the connection string (postgres driver).
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
}

// BoardConfig contains the scheduling knobs of the task engine.
type BoardConfig struct {
	// WorkerCount is the number of concurrent task workers.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// DefaultTimeoutSeconds is the per-task deadline budget applied when a
	// submission does not specify one.
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds" validate:"required,gt=0"`

	// DefaultMaxRetries is applied when a submission does not specify a
	// retry budget.
	DefaultMaxRetries int `mapstructure:"default_max_retries" validate:"gte=0"`

	// SweepInterval is how often the timeout monitor scans in-progress
	// records for missed deadlines.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`

	// GracePeriod is how long after signalling cancellation the monitor
	// waits before force-marking an overdue task timed_out.
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`

	// RetentionAge is how long terminal records are kept before the
	// retention janitor evicts them. Zero disables eviction.
	RetentionAge time.Duration `mapstructure:"retention_age" validate:"gte=0"`

	// CleanupInterval is how often the retention janitor runs.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"required,gt=0"`
}
