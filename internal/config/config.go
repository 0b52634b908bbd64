package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config holds everything cmd/api needs to start.
type Config struct {
	Addr            string        `yaml:"addr"`
	ServiceName     string        `yaml:"service_name"`
	LogLevel        string        `yaml:"log_level"`
	LogDevelopment  bool          `yaml:"log_development"`
	TracingEnabled  bool          `yaml:"tracing_enabled"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
	OTLPLogsEnabled bool          `yaml:"otlp_logs_enabled"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	SessionShards   int           `yaml:"session_shards"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		ServiceName:     "go-chi-calculator",
		LogLevel:        "info",
		TracingEnabled:  true,
		MetricsEnabled:  true,
		SessionTTL:      30 * time.Minute,
		SweepInterval:   time.Minute,
		SessionShards:   16,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty or the file does not exist), then the
// environment.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(fs, path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.loadEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) loadEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("CALC_ADDR", &c.Addr)
	str("OTEL_SERVICE_NAME", &c.ServiceName)
	str("CALC_LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("CALC_SESSION_SHARDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CALC_SESSION_SHARDS: %w", err)
		}
		c.SessionShards = n
	}

	return errors.Join(
		boolean("CALC_LOG_DEVELOPMENT", &c.LogDevelopment),
		boolean("CALC_TRACING_ENABLED", &c.TracingEnabled),
		boolean("CALC_METRICS_ENABLED", &c.MetricsEnabled),
		boolean("CALC_OTLP_LOGS_ENABLED", &c.OTLPLogsEnabled),
		duration("CALC_SESSION_TTL", &c.SessionTTL),
		duration("CALC_SWEEP_INTERVAL", &c.SweepInterval),
		duration("CALC_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout),
	)
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.SessionShards <= 0 {
		errs = append(errs, fmt.Errorf("session_shards must be positive, got %d", c.SessionShards))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("session_ttl must not be negative, got %s", c.SessionTTL))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
