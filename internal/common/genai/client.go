// Package genai wraps the hosted prose-generation providers behind one
// interface. Every call is bounded by the configured timeout; callers are
// expected to degrade when a call fails, never to abort the request.
package genai

import (
	"context"
	"errors"
	"time"

	stderrors "event-assistant/internal/common/errors"
)

// Client generates short prose completions.
type Client interface {
	// Complete returns the model's text for the prompt, trimmed.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns texts into dense vectors for the semantic index. Not all
// providers support it; callers must tolerate a nil Embedder.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// CompleteOrFallback runs Complete under a deadline and substitutes the
// fallback text on any failure. The returned bool reports whether the
// fallback was used.
func CompleteOrFallback(ctx context.Context, c Client, prompt, fallback string, timeout time.Duration) (string, bool) {
	if c == nil {
		return fallback, true
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := c.Complete(cctx, prompt)
	if err != nil || text == "" {
		return fallback, true
	}
	return text, false
}

// WrapError maps a provider failure onto the standard error vocabulary so
// retry classification stays uniform across providers.
func WrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return stderrors.NewLLMTimeoutError()
	}
	return stderrors.NewLLMError(err)
}
