package genai

import (
	"context"
	"strings"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client and Embedder on the OpenAI chat API.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	embedding string
	maxTokens int
	temp      float32
	logger    logger.Logger
}

func NewOpenAIClient(cfg config.GenAIConfig, embeddingModel string, log logger.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		embedding: embeddingModel,
		maxTokens: cfg.MaxTokens,
		temp:      float32(cfg.Temperature),
		logger:    log.WithFields(map[string]interface{}{"component": "genai-openai"}),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temp,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.logger.Warn("completion failed", map[string]interface{}{"error": err.Error()})
		return "", WrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", WrapError(errEmptyCompletion)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embedding),
		Input: texts,
	})
	if err != nil {
		return nil, WrapError(err)
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
