package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by the simulated client.
var ErrNotConfigured = errors.New("llm provider not configured")

// Client produces a single completion for a system + user prompt.
type Client interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string // optional
	Model   string
}

// New returns an OpenAI-backed client, or the simulated client when no API
// key is configured.
func New(cfg Config, log *zap.Logger) Client {
	if cfg.APIKey == "" {
		return Simulated{}
	}
	return newOpenAIClient(cfg, log)
}

type openaiClient struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

func newOpenAIClient(cfg Config, log *zap.Logger) *openaiClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &openaiClient{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log,
	}
}

func (c *openaiClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(2048),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.log.Debug("llm completion",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// Simulated is used when no provider is configured.
type Simulated struct{}

func (Simulated) Complete(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}
