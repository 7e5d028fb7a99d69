package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"classnotex/internal/domain/quota"
	sharedConfig "classnotex/internal/shared/config"
)

type Config struct {
	Server    sharedConfig.ServerConfig    `mapstructure:"server"`
	Database  sharedConfig.DatabaseConfig  `mapstructure:"database"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger"`
	Redis     sharedConfig.RedisConfig     `mapstructure:"redis"`
	Queue     sharedConfig.QueueConfig     `mapstructure:"queue"`
	Quota     sharedConfig.QuotaConfig     `mapstructure:"quota"`
	Lifecycle sharedConfig.LifecycleConfig `mapstructure:"lifecycle"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables
func Load(env string) (*Config, error) {
	// Load single config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	// Set environment variable prefix and replacer
	viper.SetEnvPrefix("CNX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Allow env parameter to override server mode if provided
	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// LoadLimitTable builds the effective quota limit table: the built-in
// defaults, overlaid with the optional YAML file named in quota.limits_file.
func LoadLimitTable(cfg *sharedConfig.QuotaConfig) (quota.LimitTable, error) {
	table := quota.DefaultLimitTable()
	if cfg.LimitsFile == "" {
		return table, nil
	}

	data, err := os.ReadFile(cfg.LimitsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file %s: %w", cfg.LimitsFile, err)
	}
	overrides, err := quota.ParseLimitTable(data)
	if err != nil {
		return nil, err
	}
	return quota.MergeLimitTable(table, overrides), nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.driver", "mysql")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "classnotex_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Queue defaults
	viper.SetDefault("queue.name", "classnotex:tasks")
	viper.SetDefault("queue.max_dispatch_attempts", 5)
	viper.SetDefault("queue.dispatch_backoff_seconds", 30)

	// Quota defaults
	viper.SetDefault("quota.timezone", "Asia/Tokyo")
	viper.SetDefault("quota.limits_file", "")
	viper.SetDefault("quota.max_job_attempts", 3)
	viper.SetDefault("quota.idempotency_retention_hours", 24)

	// Lifecycle defaults
	viper.SetDefault("lifecycle.retention_days", 30)
	viper.SetDefault("lifecycle.stale_running_minutes", 60)
}
