package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcfg "github.com/bookableu/core/internal/config"
)

func TestSelectProviderSkipsDisabled(t *testing.T) {
	cfg := appcfg.LLMConfig{
		Providers: []appcfg.LLMProvider{
			{ID: "openai", Type: "openai", Enabled: false, DefaultModel: "gpt-4o-mini"},
			{ID: "anthropic", Type: "anthropic", Enabled: true, DefaultModel: "claude-sonnet-4-20250514"},
		},
	}

	provider := selectProvider(cfg, "")
	require.NotNil(t, provider)
	assert.Equal(t, "anthropic", provider.ID)
	assert.Equal(t, "claude-sonnet-4-20250514", provider.DefaultModel)
}

func TestSelectProviderOverrideModel(t *testing.T) {
	cfg := appcfg.LLMConfig{
		Providers: []appcfg.LLMProvider{
			{ID: "openai", Type: "openai", Enabled: true, DefaultModel: "gpt-4o-mini"},
		},
	}

	provider := selectProvider(cfg, "gpt-4o")
	require.NotNil(t, provider)
	assert.Equal(t, "gpt-4o", provider.DefaultModel)

	// the override must not leak into the config
	assert.Equal(t, "gpt-4o-mini", cfg.Providers[0].DefaultModel)
}

func TestSelectProviderNoneEnabled(t *testing.T) {
	cfg := appcfg.LLMConfig{
		Providers: []appcfg.LLMProvider{
			{ID: "openai", Type: "openai", Enabled: false},
		},
	}
	assert.Nil(t, selectProvider(cfg, ""))
}

func TestApplyDefaults(t *testing.T) {
	svc := NewService(appcfg.LLMConfig{
		Temperature:     0.3,
		MaxTokens:       500,
		TopP:            0.9,
		PresencePenalty: 0.1,
	})
	provider := &appcfg.LLMProvider{DefaultModel: "gpt-4o-mini"}

	req := Request{Prompt: "hello"}
	svc.applyDefaults(&req, provider)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Equal(t, 500, req.MaxTokens)
	assert.InDelta(t, 0.9, req.TopP, 1e-9)
	assert.InDelta(t, 0.1, req.PresencePenalty, 1e-9)

	req = Request{Model: "gpt-4o", Temperature: 0.7, MaxTokens: 200, TopP: 0.5, PresencePenalty: 0.2}
	svc.applyDefaults(&req, provider)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	assert.Equal(t, 200, req.MaxTokens)
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                              "",
		"https://api.openai.com":        "https://api.openai.com/v1",
		"https://api.openai.com/":       "https://api.openai.com/v1",
		"https://api.openai.com/v1":     "https://api.openai.com/v1",
		"https://api.openai.com/v1/":    "https://api.openai.com/v1",
		"https://proxy.local/openai":    "https://proxy.local/openai/v1",
		"https://proxy.local/openai/v1": "https://proxy.local/openai/v1",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeOpenAIBaseURL(in), "input %q", in)
	}
}
