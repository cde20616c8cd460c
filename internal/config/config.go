// Package config manages the YAML configuration and data directory layout
// for worklens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the configuration directory under the user's home.
	DirName = ".worklens"
	// DBFilename is the SQLite database file inside the data directory.
	DBFilename = "worklens.db"
	// ConfigFilename is the YAML settings file inside the data directory.
	ConfigFilename = "config.yaml"

	// APIKeyEnv overrides the enrichment API key from the config file.
	APIKeyEnv = "WORKLENS_API_KEY"
)

// Screenshots controls the optional screenshot capture capability.
type Screenshots struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Enrichment configures the external description/classification service.
type Enrichment struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout for enrichment calls.
func (e Enrichment) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Config is the top-level YAML structure.
type Config struct {
	IntervalSeconds int         `yaml:"interval_seconds"`
	MinWindowArea   int         `yaml:"min_window_area"`
	DataDir         string      `yaml:"data_dir"`
	HelperPath      string      `yaml:"helper_path"`
	Browsers        []string    `yaml:"browsers"`
	Screenshots     Screenshots `yaml:"screenshots"`
	Enrichment      Enrichment  `yaml:"enrichment"`
}

// Interval returns the capture tick interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// DBPath returns the path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFilename)
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, DirName)
	return &Config{
		IntervalSeconds: 60,
		MinWindowArea:   100,
		DataDir:         dataDir,
		HelperPath:      "worklens-helper",
		Browsers: []string{
			"com.apple.Safari",
			"com.google.Chrome",
		},
		Screenshots: Screenshots{
			Enabled: false,
			Dir:     filepath.Join(dataDir, "screenshots"),
		},
		Enrichment: Enrichment{
			BaseURL:        "https://api.anthropic.com",
			Model:          "claude-3-7-sonnet-latest",
			TimeoutSeconds: 30,
		},
	}
}

// SettingsPath returns the path of the YAML settings file.
func SettingsPath() string {
	return filepath.Join(Default().DataDir, ConfigFilename)
}

// Load reads the settings file, falling back to defaults for anything unset.
// A missing file is not an error. The WORKLENS_API_KEY environment variable,
// when set, takes precedence over the file's api_key.
func Load() (*Config, error) {
	return LoadPath(SettingsPath())
}

// LoadPath reads a settings file from an explicit location.
func LoadPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Enrichment.APIKey = key
	}
	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = Default().IntervalSeconds
	}
	if cfg.Enrichment.TimeoutSeconds <= 0 {
		cfg.Enrichment.TimeoutSeconds = Default().Enrichment.TimeoutSeconds
	}
	return cfg, nil
}

// EnsureDirs creates the data directory (and screenshots directory when the
// capability is enabled). Called once at startup; failure is fatal.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if c.Screenshots.Enabled {
		if err := os.MkdirAll(c.Screenshots.Dir, 0o755); err != nil {
			return fmt.Errorf("create screenshots directory: %w", err)
		}
	}
	return nil
}
