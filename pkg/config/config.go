// Package config provides configuration loading and management for vectfit.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Fitting parameters
	Fitting struct {
		// NumCores specifies how many CPU cores to use for the
		// per-channel least-squares solves
		NumCores int `yaml:"numCores"`

		// Iterations is the number of pole relocation passes to run
		Iterations int `yaml:"iterations"`

		// NPolys is the number of polynomial terms appended to the
		// rational model, range [0, 11]
		NPolys int `yaml:"nPolys"`

		// SkipPole disables pole relocation; the initial poles are
		// used unchanged
		SkipPole bool `yaml:"skipPole"`
	} `yaml:"fitting"`

	// Output parameters
	Output struct {
		// ResultFile is where the fit result document is written
		ResultFile string `yaml:"resultFile"`

		// IncludeFit controls whether the reconstructed curves are
		// embedded in the result document
		IncludeFit bool `yaml:"includeFit"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default fitting parameters
	cfg.Fitting.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Fitting.Iterations = 3
	cfg.Fitting.NPolys = 0
	cfg.Fitting.SkipPole = false

	// Set default output parameters
	cfg.Output.ResultFile = "result.yaml"
	cfg.Output.IncludeFit = true
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
