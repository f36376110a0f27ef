// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/codr1/orgthemes/internal/themes"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// EngineConfig mirrors themes.Options. Unset booleans default to true.
type EngineConfig struct {
	EnableCaching               *bool         `yaml:"enable_caching"`
	CacheTimeout                time.Duration `yaml:"cache_timeout"`
	CacheSize                   int           `yaml:"cache_size"`
	EnableValidation            *bool         `yaml:"enable_validation"`
	EnableAccessibilityCheck    *bool         `yaml:"enable_accessibility_check"`
	EnablePerformanceMonitoring *bool         `yaml:"enable_performance_monitoring"`
	OperationTimeout            time.Duration `yaml:"operation_timeout"`
}

type SchedulerConfig struct {
	// CacheSweepInterval is how often expired cache entries are dropped. Zero disables the sweep.
	CacheSweepInterval time.Duration `yaml:"cache_sweep_interval"`
	// ApplyLogRetention is how long apply log records are kept. Zero keeps them forever.
	ApplyLogRetention time.Duration `yaml:"apply_log_retention"`
	ApplyLogPruneCron string        `yaml:"apply_log_prune_cron"`
}

type ServerConfig struct {
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RequestTimeout bounds store and engine work inside a single request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RateLimitConfig limits theme applies per organization. Zero values disable a limit.
type RateLimitConfig struct {
	ApplyCooldown   time.Duration `yaml:"apply_cooldown"`
	ApplyMaxPerHour int           `yaml:"apply_max_per_hour"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		LogLevel    string `yaml:"log_level"`
	} `yaml:"app"`

	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Engine    EngineConfig    `yaml:"engine"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

const (
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultRequestTimeout    = 5 * time.Second
	DefaultApplyLogPruneCron = "0 3 * * *"
)

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if filename := os.Getenv("DATABASE_FILENAME"); filename != "" {
		cfg.Database.Filename = filename
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.App.LogLevel = level
	}

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Scheduler.ApplyLogRetention > 0 && cfg.Scheduler.ApplyLogPruneCron == "" {
		cfg.Scheduler.ApplyLogPruneCron = DefaultApplyLogPruneCron
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Engine.CacheTimeout < 0 {
		return fmt.Errorf("engine cache_timeout must not be negative")
	}
	if c.Engine.CacheSize < 0 {
		return fmt.Errorf("engine cache_size must not be negative")
	}
	if c.Engine.OperationTimeout < 0 {
		return fmt.Errorf("engine operation_timeout must not be negative")
	}
	if c.Server.ShutdownTimeout < 0 || c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.RateLimit.ApplyCooldown < 0 || c.RateLimit.ApplyMaxPerHour < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if c.Scheduler.CacheSweepInterval < 0 {
		return fmt.Errorf("scheduler cache_sweep_interval must not be negative")
	}
	if c.Scheduler.ApplyLogRetention < 0 {
		return fmt.Errorf("scheduler apply_log_retention must not be negative")
	}
	return nil
}

// Options converts the engine section into themes.Options. Zero values take the
// engine defaults.
func (e EngineConfig) Options() *themes.Options {
	opts := themes.DefaultOptions()
	opts.EnableCaching = boolOr(e.EnableCaching, opts.EnableCaching)
	opts.EnableValidation = boolOr(e.EnableValidation, opts.EnableValidation)
	opts.EnableAccessibilityCheck = boolOr(e.EnableAccessibilityCheck, opts.EnableAccessibilityCheck)
	opts.EnablePerformanceMonitoring = boolOr(e.EnablePerformanceMonitoring, opts.EnablePerformanceMonitoring)
	if e.CacheTimeout > 0 {
		opts.CacheTimeout = e.CacheTimeout
	}
	if e.CacheSize > 0 {
		opts.CacheSize = e.CacheSize
	}
	opts.OperationTimeout = e.OperationTimeout
	return opts
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
