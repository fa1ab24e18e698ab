package genai

import (
	"context"
	"strings"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient implements Client on the Anthropic messages API. It does
// not implement Embedder; the provider has no embeddings endpoint.
type AnthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int
	temp      float32
	logger    logger.Logger
}

func NewAnthropicClient(cfg config.GenAIConfig, log logger.Logger) *AnthropicClient {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		temp:      float32(cfg.Temperature),
		logger:    log.WithFields(map[string]interface{}{"component": "genai-anthropic"}),
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	temp := c.temp
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
	})
	if err != nil {
		c.logger.Warn("completion failed", map[string]interface{}{"error": err.Error()})
		return "", WrapError(err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return "", WrapError(errEmptyCompletion)
	}
	return strings.TrimSpace(*resp.Content[0].Text), nil
}
