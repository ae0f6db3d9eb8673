// Package config loads client settings from a YAML file with env overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL     = "http://localhost:8080"
	DefaultPollIntervalMS = 2000
	DefaultTitle          = "Untitled Video"
	DefaultLogLevel       = "info"

	AuthModeDisabled = "disabled"
	AuthModeBearer   = "bearer"
)

// Config holds all client settings.
type Config struct {
	APIBaseURL     string `yaml:"api_base_url"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	DefaultTitle   string `yaml:"default_title"`
	AuthMode       string `yaml:"auth_mode"`
	AuthToken      string `yaml:"auth_token"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
}

// DefaultConfigPath is ~/.config/clipforge/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".clipforge.yaml")
	}
	return filepath.Join(home, ".config", "clipforge", "config.yaml")
}

func defaults() Config {
	return Config{
		APIBaseURL:     DefaultAPIBaseURL,
		PollIntervalMS: DefaultPollIntervalMS,
		DefaultTitle:   DefaultTitle,
		AuthMode:       AuthModeDisabled,
		LogFile:        defaultLogFile(),
		LogLevel:       DefaultLogLevel,
	}
}

func defaultLogFile() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "clipforge.log")
	}
	return filepath.Join(cacheDir, "clipforge", "clipforge.log")
}

// Load reads the config file at path (or the default path when empty),
// applies env overrides, and normalizes. A missing file is not an error.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath()
	}

	cfg := defaults()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults apply
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return normalize(cfg), nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLIPFORGE_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("CLIPFORGE_AUTH_MODE"); v != "" {
		cfg.AuthMode = v
	}
	if v := os.Getenv("CLIPFORGE_AUTH_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("CLIPFORGE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("CLIPFORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLIPFORGE_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PollIntervalMS = n
		}
	}
}

func normalize(cfg Config) Config {
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = DefaultPollIntervalMS
	}
	if strings.TrimSpace(cfg.DefaultTitle) == "" {
		cfg.DefaultTitle = DefaultTitle
	}
	switch strings.ToLower(strings.TrimSpace(cfg.AuthMode)) {
	case AuthModeBearer:
		cfg.AuthMode = AuthModeBearer
	default:
		cfg.AuthMode = AuthModeDisabled
	}
	if strings.TrimSpace(cfg.LogFile) == "" {
		cfg.LogFile = defaultLogFile()
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg
}

// PollInterval returns the polling period as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Level parses the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
