// Package config defines the typed configuration structures shared across
// the application. Values are populated by the infrastructure config loader.
package config

import "fmt"

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// InternalToken guards the worker callback endpoints. Empty disables
	// the check, intended for local development only.
	InternalToken string `mapstructure:"internal_token"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Driver selects the SQL backend: "mysql" (default) or "sqlite".
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// QueueConfig configures the task dispatch queue.
type QueueConfig struct {
	// Name of the Redis list used for job handoff.
	Name string `mapstructure:"name"`
	// MaxDispatchAttempts bounds transient dispatch retries before a job
	// is failed with dispatch_exhausted.
	MaxDispatchAttempts int `mapstructure:"max_dispatch_attempts"`
	// DispatchBackoffSeconds is the base backoff between outbox retries.
	DispatchBackoffSeconds int `mapstructure:"dispatch_backoff_seconds"`
}

// QuotaConfig configures the quota engine.
type QuotaConfig struct {
	// Timezone used for month-key boundaries (usage resets on month
	// rollover in this timezone).
	Timezone string `mapstructure:"timezone"`
	// LimitsFile optionally points at a YAML file overriding the
	// built-in per-plan limit table.
	LimitsFile string `mapstructure:"limits_file"`
	// MaxJobAttempts bounds worker-side retryable failures per job.
	MaxJobAttempts int `mapstructure:"max_job_attempts"`
	// IdempotencyRetentionHours is how long idempotency records are kept.
	IdempotencyRetentionHours int `mapstructure:"idempotency_retention_hours"`
}

// LifecycleConfig configures the audio asset lifecycle sweeps.
type LifecycleConfig struct {
	// RetentionDays is the default deleteAfter window for new assets.
	RetentionDays int `mapstructure:"retention_days"`
	// StaleRunningMinutes after which a running job with no callback is
	// failed by the staleness sweep.
	StaleRunningMinutes int `mapstructure:"stale_running_minutes"`
}
