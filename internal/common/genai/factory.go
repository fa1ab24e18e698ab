package genai

import (
	"errors"
	"fmt"

	"event-assistant/internal/common/config"
	"event-assistant/internal/common/logger"
)

var errEmptyCompletion = errors.New("provider returned an empty completion")

// New builds the configured provider. The Embedder is nil when the provider
// has no embeddings support; the vector index degrades in that case.
func New(cfg config.GenAIConfig, embeddingModel string, log logger.Logger) (Client, Embedder, error) {
	switch cfg.Provider {
	case "openai":
		c := NewOpenAIClient(cfg, embeddingModel, log)
		return c, c, nil
	case "anthropic":
		return NewAnthropicClient(cfg, log), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown genai provider %q", cfg.Provider)
	}
}
