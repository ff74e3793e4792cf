// Package config provides configuration loading and management for archlint.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/archlint/override"
)

// Config represents the complete archlint configuration
type Config struct {
	Registry    RegistryConfig    `yaml:"registry"`
	Overrides   override.Policy   `yaml:"overrides"`
	Validation  ValidationConfig  `yaml:"validation"`
	Coverage    CoverageConfig    `yaml:"coverage"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// RegistryConfig locates the architecture registry document
type RegistryConfig struct {
	// Path is the registry file path, relative to the repo root
	Path string `yaml:"path"`
}

// ValidationConfig configures the validation run
type ValidationConfig struct {
	// Strict fails the run on unsuppressed warnings, not just errors
	Strict bool `yaml:"strict"`

	// Workers bounds concurrent per-file validation
	Workers int `yaml:"workers"`
}

// CoverageConfig bounds the coverage analyzer
type CoverageConfig struct {
	// MaxFiles caps how many files one glob may expand to
	MaxFiles int `yaml:"max_files"`

	// Workers bounds concurrent file reads
	Workers int `yaml:"workers"`
}

// DiagnosticsConfig configures editor-diagnostics publishing
type DiagnosticsConfig struct {
	// NATSURL is the NATS server to publish results to (empty = disabled)
	NATSURL string `yaml:"nats_url"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Path: "architecture.yaml",
		},
		Overrides: override.DefaultPolicy(),
		Validation: ValidationConfig{
			Strict:  false,
			Workers: 16,
		},
		Coverage: CoverageConfig{
			MaxFiles: 10000,
			Workers:  16,
		},
		Diagnostics: DiagnosticsConfig{
			NATSURL: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Registry.Path == "" {
		return fmt.Errorf("registry.path is required")
	}
	if c.Validation.Workers < 0 {
		return fmt.Errorf("validation.workers must not be negative")
	}
	if c.Overrides.MaxExpiryDays < 0 {
		return fmt.Errorf("overrides.max_expiry_days must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Registry.Path != "" {
		c.Registry.Path = other.Registry.Path
	}

	if len(other.Overrides.RequiredFields) > 0 {
		c.Overrides.RequiredFields = other.Overrides.RequiredFields
	}
	if other.Overrides.MaxExpiryDays != 0 {
		c.Overrides.MaxExpiryDays = other.Overrides.MaxExpiryDays
	}
	// Loaded configs start from defaults, so boolean fields copy directly.
	c.Overrides.WarnNoExpiry = other.Overrides.WarnNoExpiry
	c.Overrides.FailOnExpired = other.Overrides.FailOnExpired

	c.Validation.Strict = other.Validation.Strict
	if other.Validation.Workers != 0 {
		c.Validation.Workers = other.Validation.Workers
	}

	if other.Coverage.MaxFiles != 0 {
		c.Coverage.MaxFiles = other.Coverage.MaxFiles
	}
	if other.Coverage.Workers != 0 {
		c.Coverage.Workers = other.Coverage.Workers
	}

	if other.Diagnostics.NATSURL != "" {
		c.Diagnostics.NATSURL = other.Diagnostics.NATSURL
	}
}
