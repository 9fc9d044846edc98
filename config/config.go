// Package config loads the engine's runtime configuration from a YAML file,
// with sane defaults when no file is given.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable the engine consumes. Nothing in the engine
// packages hard-codes these values; they are injected at wiring time.
type Config struct {
	// ExpectedMinutesPerDay is the overtime threshold (default 480 = 8h).
	ExpectedMinutesPerDay int64 `yaml:"expected_minutes_per_day"`

	// DefaultTimezone is the organization-wide IANA zone used when a request
	// supplies none.
	DefaultTimezone string `yaml:"default_timezone"`

	// Signature holds the monthly signature eligibility policy.
	Signature SignatureConfig `yaml:"signature"`

	// HTTP server settings.
	Port int `yaml:"port"`

	// Database is the SQLite path; ":memory:" for an in-memory database.
	Database string `yaml:"database"`
}

type SignatureConfig struct {
	// PastMonthsOnly restricts signing to months that are already over.
	PastMonthsOnly bool `yaml:"past_months_only"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ExpectedMinutesPerDay: 480,
		DefaultTimezone:       "UTC",
		Signature:             SignatureConfig{PastMonthsOnly: true},
		Port:                  8080,
		Database:              "attendance.db",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.ExpectedMinutesPerDay <= 0 || c.ExpectedMinutesPerDay > 24*60 {
		return fmt.Errorf("expected_minutes_per_day out of range: %d", c.ExpectedMinutesPerDay)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("default_timezone %q: %w", c.DefaultTimezone, err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}
