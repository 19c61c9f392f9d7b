// Package config loads subtyper configuration from YAML with environment
// overrides for API keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"subtyper/internal/perception"
	"subtyper/internal/types"
)

// Config holds all subtyper configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Completion backend
	LLM LLMConfig `yaml:"llm"`

	// Batch pipeline settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, anthropic, gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`

	// MaxRetries of 0 disables retry, giving one attempt per completion.
	MaxRetries int `yaml:"max_retries"`
}

// PipelineConfig configures the batch annotation run.
type PipelineConfig struct {
	Mode        string `yaml:"mode"` // basic, scored_interpreted, scored_raw
	MarkersPath string `yaml:"markers_path"`
	ScoresPath  string `yaml:"scores_path"`
	OutputDir   string `yaml:"output_dir"`
	IndexPath   string `yaml:"index_path"`
	Workers     int    `yaml:"workers"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "subtyper",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			Temperature: 0.3,
			Timeout:     "120s",
			MaxRetries:  3,
		},

		Pipeline: PipelineConfig{
			Mode:        "basic",
			MarkersPath: "data/top_genes_by_cluster.json",
			ScoresPath:  "data/cluster_scores.csv",
			OutputDir:   "outputs/hypotheses",
			IndexPath:   "data/subtyper.db",
			Workers:     1,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. API keys are
// checked lowest priority first, so OPENAI_API_KEY wins over the others.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}

	if path := os.Getenv("SUBTYPER_DB"); path != "" {
		c.Pipeline.IndexPath = path
	}
	if dir := os.Getenv("SUBTYPER_OUTPUT_DIR"); dir != "" {
		c.Pipeline.OutputDir = dir
	}
}

// GetLLMTimeout returns the completion timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// ValidProviders lists all supported completion providers.
var ValidProviders = []string{"openai", "anthropic", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set OPENAI_API_KEY, ANTHROPIC_API_KEY, or GEMINI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if _, err := types.ParseMode(c.Pipeline.Mode); err != nil {
		return err
	}

	if c.Pipeline.MarkersPath == "" {
		return fmt.Errorf("markers path not configured")
	}

	return nil
}

// ProviderConfig converts the LLM section into the client factory's form.
func (c *Config) ProviderConfig() *perception.ProviderConfig {
	return &perception.ProviderConfig{
		Provider:    perception.Provider(c.LLM.Provider),
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		Temperature: c.LLM.Temperature,
		Timeout:     c.GetLLMTimeout(),
		MaxRetries:  c.LLM.MaxRetries,
	}
}
