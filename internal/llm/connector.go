package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/cohere"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider represents an AI provider type
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderCohere Provider = "cohere"
	ProviderOllama Provider = "ollama"
)

// ConnectorOptions selects and configures the chat model.
type ConnectorOptions struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// ParseProvider maps a config value onto a Provider. "anthropic" and
// "googleai" are accepted as aliases.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "openai":
		return ProviderOpenAI, nil
	case "gemini", "googleai":
		return ProviderGemini, nil
	case "claude", "anthropic":
		return ProviderClaude, nil
	case "cohere":
		return ProviderCohere, nil
	case "ollama":
		return ProviderOllama, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", s)
	}
}

// NewModel creates the langchaingo model for the configured provider.
func NewModel(ctx context.Context, options ConnectorOptions) (llms.Model, error) {
	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.Model).
		Msg("Creating chat model")

	var model llms.Model
	var err error

	switch options.Provider {
	case ProviderOpenAI, "":
		model, err = createOpenAIModel(options)
	case ProviderGemini:
		model, err = createGeminiModel(ctx, options)
	case ProviderClaude:
		model, err = createAnthropicModel(options)
	case ProviderCohere:
		model, err = createCohereModel(options)
	case ProviderOllama:
		model, err = createOllamaModel(options)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", options.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", options.Provider, err)
	}
	return model, nil
}

// The SDK-level constructors read their own API key environment variables
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...) when no token option is passed, so
// empty values are left out rather than overriding them.

func createOpenAIModel(options ConnectorOptions) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(options.Model),
	}
	if options.APIKey != "" {
		opts = append(opts, openai.WithToken(options.APIKey))
	}
	if options.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(options.BaseURL))
	}
	return openai.New(opts...)
}

func createGeminiModel(ctx context.Context, options ConnectorOptions) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(options.Model),
	}
	if options.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(options.APIKey))
	}
	return googleai.New(ctx, opts...)
}

func createAnthropicModel(options ConnectorOptions) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(options.Model),
	}
	if options.APIKey != "" {
		opts = append(opts, anthropic.WithToken(options.APIKey))
	}
	if options.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(options.BaseURL))
	}
	return anthropic.New(opts...)
}

func createCohereModel(options ConnectorOptions) (llms.Model, error) {
	opts := []cohere.Option{
		cohere.WithModel(options.Model),
	}
	if options.APIKey != "" {
		opts = append(opts, cohere.WithToken(options.APIKey))
	}
	if options.BaseURL != "" {
		opts = append(opts, cohere.WithBaseURL(options.BaseURL))
	}
	return cohere.New(opts...)
}

func createOllamaModel(options ConnectorOptions) (llms.Model, error) {
	if options.BaseURL == "" {
		options.BaseURL = "http://localhost:11434"
	}
	return ollama.New(
		ollama.WithServerURL(options.BaseURL),
		ollama.WithModel(options.Model),
	)
}
