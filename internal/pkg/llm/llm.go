package llm

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"

	appcfg "github.com/bookableu/core/internal/config"
)

// Request is a single-shot completion call. Sampling fields override the
// configured defaults when non-zero.
type Request struct {
	Model           string
	System          string
	Prompt          string
	Temperature     float64
	MaxTokens       int
	TopP            float64
	PresencePenalty float64
}

// Completer generates text from a prompt. Implementations are opaque to
// callers; failures surface as-is.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Service routes completion requests to the first enabled configured provider.
type Service struct {
	cfg appcfg.LLMConfig
}

func NewService(cfg appcfg.LLMConfig) *Service {
	return &Service{cfg: cfg}
}

// Complete resolves a provider and executes the request against it.
func (s *Service) Complete(ctx context.Context, req Request) (string, error) {
	provider := selectProvider(s.cfg, req.Model)
	if provider == nil {
		return "", errors.New("no enabled llm provider")
	}

	s.applyDefaults(&req, provider)

	if isAnthropicProviderType(provider.Type) {
		return completeAnthropic(ctx, provider, req)
	}
	return completeOpenAI(ctx, provider, req)
}

func (s *Service) applyDefaults(req *Request, provider *appcfg.LLMProvider) {
	if req.Model == "" {
		req.Model = provider.DefaultModel
	}
	if req.Temperature == 0 {
		req.Temperature = s.cfg.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = s.cfg.MaxTokens
	}
	if req.TopP == 0 {
		req.TopP = s.cfg.TopP
	}
	if req.PresencePenalty == 0 {
		req.PresencePenalty = s.cfg.PresencePenalty
	}
}

// selectProvider picks the first enabled provider. When overrideModel is set
// it becomes the provider's model for this call.
func selectProvider(cfg appcfg.LLMConfig, overrideModel string) *appcfg.LLMProvider {
	overrideModel = strings.TrimSpace(overrideModel)
	for _, provider := range cfg.Providers {
		if !provider.Enabled {
			continue
		}
		selected := provider
		if overrideModel != "" {
			selected.DefaultModel = overrideModel
		}
		return &selected
	}
	return nil
}

func isAnthropicProviderType(raw string) bool {
	t := strings.ToLower(strings.TrimSpace(raw))
	return t == "anthropic"
}

func completeOpenAI(ctx context.Context, provider *appcfg.LLMProvider, req Request) (string, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return "", errors.New("llm provider api key is empty")
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(provider.Endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	client := openaiclient.NewClient(opts...)

	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaiclient.SystemMessage(req.System))
	}
	messages = append(messages, openaiclient.UserMessage(req.Prompt))

	resp, err := client.Chat.Completions.New(ctx, openaiclient.ChatCompletionNewParams{
		Model:           openaiclient.ChatModel(req.Model),
		Messages:        messages,
		Temperature:     openaiclient.Float(req.Temperature),
		MaxTokens:       openaiclient.Int(int64(req.MaxTokens)),
		TopP:            openaiclient.Float(req.TopP),
		PresencePenalty: openaiclient.Float(req.PresencePenalty),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from llm")
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from llm")
	}
	return text, nil
}

func completeAnthropic(ctx context.Context, provider *appcfg.LLMProvider, req Request) (string, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return "", errors.New("llm provider api key is empty")
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(provider.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	client := anthropicclient.NewClient(opts...)

	params := anthropicclient.MessageNewParams{
		Model:     anthropicclient.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropicclient.MessageParam{
			anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropicclient.Float(req.Temperature),
		TopP:        anthropicclient.Float(req.TopP),
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropicclient.TextBlockParam{{Text: req.System}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var full strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		full.WriteString(block.Text)
	}
	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from llm")
	}
	return text, nil
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
