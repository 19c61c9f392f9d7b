package perception

import (
	"fmt"
	"os"
	"time"
)

// Provider identifies a completion backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// ProviderConfig holds the resolved provider selection and credentials.
// Built once per run, immutable thereafter.
type ProviderConfig struct {
	Provider    Provider
	APIKey      string
	Model       string // Optional model override
	BaseURL     string // Optional endpoint override (HTTP providers only)
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int // 0 disables retry: one attempt per completion
}

// DetectProvider resolves the backend from environment variables.
// Priority: OPENAI_API_KEY > ANTHROPIC_API_KEY > GEMINI_API_KEY.
func DetectProvider() (*ProviderConfig, error) {
	providers := []struct {
		envVar   string
		provider Provider
	}{
		{"OPENAI_API_KEY", ProviderOpenAI},
		{"ANTHROPIC_API_KEY", ProviderAnthropic},
		{"GEMINI_API_KEY", ProviderGemini},
	}

	for _, p := range providers {
		if key := os.Getenv(p.envVar); key != "" {
			return &ProviderConfig{
				Provider:   p.provider,
				APIKey:     key,
				MaxRetries: 3,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: set one of OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY", ErrAPIKeyMissing)
}

// NewClientFromEnv creates a client from environment variables.
func NewClientFromEnv() (LLMClient, error) {
	cfg, err := DetectProvider()
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(cfg)
}

// NewClientFromConfig creates an LLM client from a provider config.
func NewClientFromConfig(cfg *ProviderConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		oc := DefaultOpenAIConfig(cfg.APIKey)
		applyOverrides(&oc.Model, &oc.BaseURL, &oc.Temperature, &oc.Timeout, &oc.MaxRetries, cfg)
		return NewOpenAIClientWithConfig(oc), nil

	case ProviderAnthropic:
		ac := DefaultAnthropicConfig(cfg.APIKey)
		applyOverrides(&ac.Model, &ac.BaseURL, &ac.Temperature, &ac.Timeout, &ac.MaxRetries, cfg)
		return NewAnthropicClientWithConfig(ac), nil

	case ProviderGemini:
		gc := DefaultGeminiConfig(cfg.APIKey)
		if cfg.Model != "" {
			gc.Model = cfg.Model
		}
		if cfg.Temperature > 0 {
			gc.Temperature = cfg.Temperature
		}
		if cfg.Timeout > 0 {
			gc.Timeout = cfg.Timeout
		}
		return NewGeminiClientWithConfig(gc)

	default:
		return nil, fmt.Errorf("unknown provider: %s (valid: openai, anthropic, gemini)", cfg.Provider)
	}
}

// applyOverrides copies the non-zero overrides from cfg onto an HTTP
// provider's default config fields.
func applyOverrides(model, baseURL *string, temperature *float64, timeout *time.Duration, maxRetries *int, cfg *ProviderConfig) {
	if cfg.Model != "" {
		*model = cfg.Model
	}
	if cfg.BaseURL != "" {
		*baseURL = cfg.BaseURL
	}
	if cfg.Temperature > 0 {
		*temperature = cfg.Temperature
	}
	if cfg.Timeout > 0 {
		*timeout = cfg.Timeout
	}
	if cfg.MaxRetries >= 0 {
		*maxRetries = cfg.MaxRetries
	}
}
