// Package config loads application configuration from file and environment
// and owns the global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/identity-cli/internal/resolver"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig       `yaml:"store" mapstructure:"store"`
	Overrides OverridesConfig   `yaml:"overrides" mapstructure:"overrides"`
	Lookup    LookupConfig      `yaml:"lookup" mapstructure:"lookup"`
	Resolve   resolver.Strategy `yaml:"resolve" mapstructure:"resolve"`
	Queue     QueueConfig       `yaml:"queue" mapstructure:"queue"`
	Server    ServerConfig      `yaml:"server" mapstructure:"server"`
	Log       LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend shared by the mapping cache
// and the backfill queue.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// OverridesConfig lists override files in priority order.
type OverridesConfig struct {
	Files []string `yaml:"files" mapstructure:"files"`
}

// LookupConfig configures the external lookup provider.
type LookupConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Key         string  `yaml:"key" mapstructure:"key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
}

// QueueConfig configures the backfill drain process.
type QueueConfig struct {
	DrainBatchSize int `yaml:"drain_batch_size" mapstructure:"drain_batch_size"`
	DrainWorkers   int `yaml:"drain_workers" mapstructure:"drain_workers"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("IDENTITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "identity.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("lookup.timeout_secs", 10)
	v.SetDefault("lookup.rate_per_sec", 5)
	v.SetDefault("lookup.burst", 5)
	v.SetDefault("queue.drain_batch_size", 100)
	v.SetDefault("queue.drain_workers", 4)
	v.SetDefault("resolve.plan_code_column", "plan_code")
	v.SetDefault("resolve.customer_name_column", "customer_name")
	v.SetDefault("resolve.existing_id_column", "existing_company_id")
	v.SetDefault("resolve.output_column", "company_id")
	v.SetDefault("resolve.lookup_budget", 100)
	v.SetDefault("resolve.enable_fallback_ids", true)
	v.SetDefault("resolve.enable_backflow", true)
	v.SetDefault("resolve.enable_async_queue", true)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
