// Package config loads application configuration from a TOML file plus
// environment variables for secrets.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/subosito/gotenv"
)

// Supported LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Storage  StorageConfig  `toml:"storage"`
	Ingest   IngestConfig   `toml:"ingest"`
	Analysis AnalysisConfig `toml:"analysis"`
	Articles ArticlesConfig `toml:"articles"`
	Schedule ScheduleConfig `toml:"schedule"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

type IngestConfig struct {
	JunkipediaChannels []string `toml:"junkipedia_channels"`
	XQuery             string   `toml:"x_query"`
	MaxPagesPerSource  int      `toml:"max_pages_per_source"`
}

type AnalysisConfig struct {
	LLMProvider string `toml:"llm_provider"`
	Model       string `toml:"model"`
	BatchLimit  int    `toml:"batch_limit"`
	PaceSeconds int    `toml:"pace_seconds"`
	MaxImages   int    `toml:"max_images"`
}

type ArticlesConfig struct {
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
	MaxChars            int `toml:"max_chars"`
}

type ScheduleConfig struct {
	IntervalHours int    `toml:"interval_hours"`
	Timezone      string `toml:"timezone"`
}

// Secrets are read from the environment, never from the config file.
type Secrets struct {
	LLMAPIKey     string
	JunkipediaKey string
	XBearerToken  string
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DBPath: "pledgewatch.db",
		},
		Ingest: IngestConfig{
			MaxPagesPerSource: 5,
		},
		Analysis: AnalysisConfig{
			LLMProvider: ProviderAnthropic,
			Model:       "claude-sonnet-4-20250514",
			BatchLimit:  25,
			PaceSeconds: 2,
			MaxImages:   4,
		},
		Articles: ArticlesConfig{
			FetchTimeoutSeconds: 15,
			MaxChars:            15000,
		},
		Schedule: ScheduleConfig{
			IntervalHours: 4,
			Timezone:      "America/New_York",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "pledgewatch"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from the given path, falling back to defaults when the
// file does not exist. An empty path means the platform config location.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// LoadSecrets reads credentials from the environment, loading an optional
// .env file first. The LLM key is the one matching the configured provider;
// a key for some other provider is never substituted.
func LoadSecrets(provider string) *Secrets {
	if err := gotenv.Load(); err != nil {
		slog.Debug("no .env file found, using OS environment")
	}

	s := &Secrets{
		JunkipediaKey: os.Getenv("JUNKIPEDIA_API_KEY"),
		XBearerToken:  os.Getenv("X_BEARER_TOKEN"),
	}

	switch provider {
	case ProviderAnthropic:
		s.LLMAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		s.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	return s
}

// Validate checks that required credentials exist for the configured
// provider. Called once at startup, before any run begins.
func (c *Config) Validate(s *Secrets) error {
	switch c.Analysis.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM provider: %s", c.Analysis.LLMProvider)
	}
	if s.LLMAPIKey == "" {
		return fmt.Errorf("missing API key for LLM provider %s", c.Analysis.LLMProvider)
	}
	if c.Analysis.BatchLimit <= 0 {
		return fmt.Errorf("analysis batch_limit must be positive, got %d", c.Analysis.BatchLimit)
	}
	return nil
}
