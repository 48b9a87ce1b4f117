package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	groqBaseURL       = "https://api.groq.com/openai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	defaultTemperature = 0.3
)

type Options struct {
	Provider     string // "groq" or "openrouter"
	APIKey       string
	DefaultModel string
}

// Client talks to one OpenAI-compatible chat provider. The provider is
// chosen from configuration when the process starts, never at call time.
type Client struct {
	logger       *zap.Logger
	model        llms.Model
	provider     string
	defaultModel string
}

func NewClient(logger *zap.Logger, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required for provider %q", opts.Provider)
	}

	var baseURL string
	switch opts.Provider {
	case "groq":
		baseURL = groqBaseURL
	case "openrouter":
		baseURL = openRouterBaseURL
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", opts.Provider)
	}

	model, err := openai.New(
		openai.WithToken(opts.APIKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(opts.DefaultModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	logger.Info("LLM client initialized",
		zap.String("provider", opts.Provider),
		zap.String("default_model", opts.DefaultModel))

	return &Client{
		logger:       logger,
		model:        model,
		provider:     opts.Provider,
		defaultModel: opts.DefaultModel,
	}, nil
}

// Chat sends one prompt and returns the completion text. An empty model
// falls back to the provider default.
func (c *Client) Chat(ctx context.Context, prompt, systemPrompt, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	var messages []llms.MessageContent
	if systemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	c.logger.Debug("LLM request",
		zap.Int("prompt_chars", len(prompt)),
		zap.String("model", model))

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithModel(model),
		llms.WithTemperature(defaultTemperature),
	)
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	result := resp.Choices[0].Content
	c.logger.Debug("LLM response", zap.Int("response_chars", len(result)))
	return result, nil
}
