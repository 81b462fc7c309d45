// Package config loads client and development-backend settings from an
// optional YAML file followed by environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvBackendURL   = "DIARY_BACKEND_URL"
	EnvDBPath       = "DIARY_DB_PATH"
	EnvPollInterval = "DIARY_POLL_INTERVAL"
	EnvMaxPolls     = "DIARY_MAX_POLLS"
	EnvListenAddr   = "DIARY_LISTEN_ADDR"
	EnvLogLevel     = "LOG_LEVEL"
)

type Config struct {
	BackendURL   string        `yaml:"backend_url"`
	DBPath       string        `yaml:"db_path"`       // session token database
	PollInterval time.Duration `yaml:"poll_interval"` // e.g. "3s"
	MaxPolls     int           `yaml:"max_polls"`     // 0 polls until the request finishes
	ListenAddr   string        `yaml:"listen_addr"`   // development backend only
	LogLevel     string        `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BackendURL:   "http://localhost:5050",
		DBPath:       defaultDBPath(),
		PollInterval: 3 * time.Second,
		ListenAddr:   ":5050",
		LogLevel:     "info",
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "data", "session.db")
	}
	return filepath.Join(dir, "diabetic-diary", "session.db")
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (c *Config) applyEnv() error {
	c.BackendURL = getEnv(EnvBackendURL, c.BackendURL)
	c.DBPath = getEnv(EnvDBPath, c.DBPath)
	c.ListenAddr = getEnv(EnvListenAddr, c.ListenAddr)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)

	if v := os.Getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvPollInterval, err)
		}
		c.PollInterval = d
	}
	if v := os.Getenv(EnvMaxPolls); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvMaxPolls, err)
		}
		c.MaxPolls = n
	}
	return nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("backend_url is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend_url %q must be an absolute URL", c.BackendURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("max_polls must not be negative, got %d", c.MaxPolls)
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	return nil
}
