// Package config handles loading and managing application configuration
// from YAML files, an optional .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	Port               int      `yaml:"port"`
	LogLevel           string   `yaml:"log_level"`
	GenerateDelay      Duration `yaml:"generate_delay"`
	SessionTTL         Duration `yaml:"session_ttl"`
	DefaultSize        int      `yaml:"default_size"`
	DefaultLogoPercent int      `yaml:"default_logo_percent"`
	OutputDir          string   `yaml:"output_dir"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "500ms", "30s", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Port:               8580,
		LogLevel:           "info",
		GenerateDelay:      Duration{500 * time.Millisecond},
		SessionTTL:         Duration{30 * time.Minute},
		DefaultSize:        256,
		DefaultLogoPercent: 30,
		OutputDir:          ".",
	}
}

// EnvFile is the dotenv file read by Load, relative to the working directory.
const EnvFile = ".env"

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. Variables from EnvFile are added to
// the environment, then QRSTUDIO_* variables override file or default values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist — proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// godotenv never overwrites variables that are already set.
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", EnvFile, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies QRSTUDIO_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRSTUDIO_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRSTUDIO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRSTUDIO_GENERATE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GenerateDelay = Duration{d}
		}
	}
	if v := os.Getenv("QRSTUDIO_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = Duration{d}
		}
	}
	if v := os.Getenv("QRSTUDIO_DEFAULT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultSize = n
		}
	}
	if v := os.Getenv("QRSTUDIO_DEFAULT_LOGO_PERCENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultLogoPercent = n
		}
	}
	if v := os.Getenv("QRSTUDIO_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
}

// EnsureOutputDir creates OutputDir if it does not already exist.
func (c *Config) EnsureOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", c.OutputDir, err)
	}
	return nil
}
