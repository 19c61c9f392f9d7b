package perception

import (
	"errors"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func TestDetectProviderPriority(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-oai")

	cfg, err := DetectProvider()
	if err != nil {
		t.Fatalf("DetectProvider: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("provider = %s, want openai (highest priority)", cfg.Provider)
	}
	if cfg.APIKey != "sk-oai" {
		t.Errorf("api key = %q, want sk-oai", cfg.APIKey)
	}
}

func TestDetectProviderMissingKey(t *testing.T) {
	clearProviderEnv(t)

	_, err := DetectProvider()
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("err = %v, want ErrAPIKeyMissing", err)
	}
}

func TestNewClientFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		wantErr  bool
	}{
		{name: "openai", provider: ProviderOpenAI},
		{name: "default_is_openai", provider: ""},
		{name: "anthropic", provider: ProviderAnthropic},
		{name: "unknown", provider: "cohere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClientFromConfig(&ProviderConfig{
				Provider: tt.provider,
				APIKey:   "test-key",
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClientFromConfig: %v", err)
			}
			if client == nil {
				t.Fatal("nil client")
			}
		})
	}
}

func TestNewClientFromConfigNoKey(t *testing.T) {
	_, err := NewClientFromConfig(&ProviderConfig{Provider: ProviderOpenAI})
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("err = %v, want ErrAPIKeyMissing", err)
	}
}

func TestNewClientFromConfigOverrides(t *testing.T) {
	client, err := NewClientFromConfig(&ProviderConfig{
		Provider: ProviderOpenAI,
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("NewClientFromConfig: %v", err)
	}
	oc, ok := client.(*OpenAIClient)
	if !ok {
		t.Fatalf("client type = %T, want *OpenAIClient", client)
	}
	if oc.GetModel() != "gpt-4o-mini" {
		t.Errorf("model = %q, want override", oc.GetModel())
	}
}
