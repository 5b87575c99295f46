// Package config loads engine configuration from file, environment and
// defaults, and validates the result before anything starts.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// CleanupConfig controls the built-in execution-history retention job.
type CleanupConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Retention time.Duration `mapstructure:"retention" validate:"min=1h"`
	BatchSize int           `mapstructure:"batch_size" validate:"gte=1,lte=10000"`
}

// Config holds all configuration for the scheduler process.
// The mapstructure tags are used by Viper to unmarshal the data; the
// validate tags are checked before the process is allowed to start.
type Config struct {
	// LockBackend selects the advisory-lock implementation.
	LockBackend string `mapstructure:"lock_backend" validate:"oneof=postgres etcd memory"`

	// DatabaseURL is the PostgreSQL connection string. Required for the
	// postgres lock backend; when set under other backends it still
	// carries the execution history.
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=LockBackend postgres"`

	EtcdEndpoints []string      `mapstructure:"etcd_endpoints" validate:"required_if=LockBackend etcd"`
	EtcdTimeout   time.Duration `mapstructure:"etcd_timeout" validate:"gt=0"`

	// HTTPListenAddr serves the prometheus /metrics endpoint.
	HTTPListenAddr string `mapstructure:"http_listen_addr" validate:"required"`

	// TickInterval is how often the control loop wakes. Must be no
	// coarser than the one-second schedule granularity.
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"min=10ms,max=1s"`

	// ShutdownGrace bounds how long shutdown waits for in-flight
	// executions.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" validate:"gt=0"`

	Cleanup CleanupConfig `mapstructure:"cleanup"`
}

// Load reads configuration from configs/config.yaml (or the working
// directory) and the environment, applies defaults, and validates the
// tagged invariants. A failure here is a configuration error: the caller
// must not start the scheduler.
func Load() (*Config, error) {
	viper.SetDefault("lock_backend", "postgres")
	viper.SetDefault("etcd_timeout", "5s")
	viper.SetDefault("http_listen_addr", ":8080")
	viper.SetDefault("tick_interval", "1s")
	viper.SetDefault("shutdown_grace", "30s")
	viper.SetDefault("cleanup.enabled", true)
	viper.SetDefault("cleanup.retention", "168h")
	viper.SetDefault("cleanup.batch_size", 500)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		// No config file: defaults and env vars carry the load.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}
