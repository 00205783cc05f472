// Package config loads the analyst configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the complete runtime configuration.
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`

	DatabaseURL string `yaml:"database_url"`
	// MaxRows is the largest result a query may return; larger results fail.
	MaxRows int `yaml:"max_rows"`

	Sandbox Sandbox `yaml:"sandbox"`

	// MaxTurns caps model decisions per question; 0 means unlimited.
	MaxTurns int `yaml:"max_turns"`
	// ArtifactDir, if set, receives rendered images.
	ArtifactDir string `yaml:"artifact_dir"`
	// Instruction overrides the system instruction template.
	Instruction string `yaml:"instruction"`

	Log Log `yaml:"log"`
}

// Sandbox configures the remote code-execution service.
type Sandbox struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	DataDir string `yaml:"data_dir"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Provider:    ProviderOpenAI,
		Temperature: 0,
		MaxTokens:   4096,
		MaxRows:     10000,
		Sandbox:     Sandbox{DataDir: "/home/user/data"},
		MaxTurns:    10,
		Log:         Log{Level: "info", Format: "text"},
	}
}

// Load reads path (if non-empty) over the defaults and then applies
// ANALYST_* environment overrides.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables resolved by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("ANALYST_PROVIDER", &c.Provider)
	str("ANALYST_MODEL", &c.Model)
	str("ANALYST_DATABASE_URL", &c.DatabaseURL)
	str("ANALYST_SANDBOX_URL", &c.Sandbox.URL)
	str("ANALYST_SANDBOX_TOKEN", &c.Sandbox.Token)
	str("ANALYST_ARTIFACT_DIR", &c.ArtifactDir)
	str("ANALYST_LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("ANALYST_MAX_TURNS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANALYST_MAX_TURNS: %w", err)
		}
		c.MaxTurns = n
	}

	return nil
}

// Validate reports every missing or invalid value. needsSandbox is false for
// commands that only touch the database.
func (c Config) Validate(needsSandbox bool) error {
	var errs []error

	switch strings.ToLower(c.Provider) {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("provider %q is not one of %s, %s", c.Provider, ProviderOpenAI, ProviderAnthropic))
	}

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}

	if needsSandbox && c.Sandbox.URL == "" {
		errs = append(errs, errors.New("sandbox.url is required"))
	}

	if c.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("max_turns must be >= 0, got %d", c.MaxTurns))
	}

	if c.MaxRows < 0 {
		errs = append(errs, fmt.Errorf("max_rows must be >= 0, got %d", c.MaxRows))
	}

	return errors.Join(errs...)
}
