// Package config loads tabengine settings from a YAML file, an optional
// .env file and TABENGINE_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/session"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "tabengine.yaml"

// Environment variables overriding file values.
const (
	EnvDB          = "TABENGINE_DB"
	EnvLogLevel    = "TABENGINE_LOG_LEVEL"
	EnvLogFormat   = "TABENGINE_LOG_FORMAT"
	EnvMetricsAddr = "TABENGINE_METRICS_ADDR"
)

// Config is the complete runtime configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Billing  BillingConfig  `yaml:"billing"`
	Tables   TablesConfig   `yaml:"tables"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type BillingConfig struct {
	SnapshotInterval time.Duration    `yaml:"snapshot_interval"`
	MinuteRounding   string           `yaml:"minute_rounding"`
	DefaultRates     map[string]int64 `yaml:"default_rates"`
}

type TablesConfig struct {
	DefaultCount int `yaml:"default_count"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "tabengine.db", BusyTimeoutMS: 5000},
		Log:      LogConfig{Level: "INFO", Format: "CONSOLE"},
		Billing: BillingConfig{
			SnapshotInterval: 5 * time.Second,
			MinuteRounding:   string(session.RoundCeil),
			DefaultRates:     map[string]int64{"P2": 5000, "P4": 8000},
		},
		Tables: TablesConfig{DefaultCount: domain.DefaultTableCount},
	}
}

type loadOptions struct {
	envFile  string
	explicit bool
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithEnvFile sets the .env file to read. Empty disables it.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// Explicit marks the config path as user supplied, making a missing file
// an error.
func Explicit() LoadOption {
	return func(o *loadOptions) {
		o.explicit = true
	}
}

// Load reads the configuration. A missing file at the default location
// is not an error; defaults apply.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !o.explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvDB); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		c.Metrics.Addr = v
	}
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return domain.NewValidationError("database.path", "database path is required")
	}
	if c.Database.BusyTimeoutMS < 0 {
		return domain.NewValidationError("database.busy_timeout_ms", "must not be negative, got %d", c.Database.BusyTimeoutMS)
	}
	if c.Billing.SnapshotInterval <= 0 {
		return domain.NewValidationError("billing.snapshot_interval", "must be positive, got %s", c.Billing.SnapshotInterval)
	}
	if _, err := session.ParseRounding(c.Billing.MinuteRounding); err != nil {
		return err
	}
	for mode, cents := range c.Billing.DefaultRates {
		if _, err := domain.ParseMode(mode); err != nil {
			return err
		}
		if cents < 0 {
			return domain.NewValidationError("billing.default_rates", "rate for %s must not be negative, got %d", mode, cents)
		}
	}
	if c.Tables.DefaultCount <= 0 {
		return domain.NewValidationError("tables.default_count", "must be positive, got %d", c.Tables.DefaultCount)
	}
	return nil
}

// Rounding returns the parsed minute rounding.
func (c *Config) Rounding() session.Rounding {
	r, err := session.ParseRounding(c.Billing.MinuteRounding)
	if err != nil {
		return session.RoundCeil
	}
	return r
}

// Rates returns the default rates keyed by mode. Unknown modes are skipped.
func (c *Config) Rates() map[domain.Mode]int64 {
	out := make(map[domain.Mode]int64, len(c.Billing.DefaultRates))
	for name, cents := range c.Billing.DefaultRates {
		m, err := domain.ParseMode(name)
		if err != nil {
			continue
		}
		out[m] = cents
	}
	return out
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

// BusyTimeout returns the busy timeout as a duration.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Database.BusyTimeoutMS) * time.Millisecond
}
