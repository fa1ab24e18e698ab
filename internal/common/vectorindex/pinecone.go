// Package vectorindex wraps the optional semantic index. Everything here is
// advisory: any failure logs a warning and the caller proceeds on the
// heuristic path alone.
package vectorindex

import (
	"context"
	"fmt"

	"event-assistant/internal/common/config"
	stderrors "event-assistant/internal/common/errors"
	"event-assistant/internal/common/genai"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/models"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// Match is one semantic neighbour with its similarity score.
type Match struct {
	EventID string
	Score   float64
}

// Index is the semantic-similarity collaborator. Both operations are
// best-effort; callers never fail a request on an Index error.
type Index interface {
	UpsertEvent(ctx context.Context, ev models.Event) error
	Query(ctx context.Context, text string, topK int) ([]Match, error)
}

// PineconeIndex implements Index on a pinecone serverless index, using the
// prose provider's embedder for vectorization.
type PineconeIndex struct {
	conn     *pinecone.IndexConnection
	embedder genai.Embedder
	logger   logger.Logger
}

// NewPineconeIndex dials the configured index. A nil embedder is an error:
// without embeddings the index cannot serve queries.
func NewPineconeIndex(ctx context.Context, cfg config.VectorIndexConfig, embedder genai.Embedder, log logger.Logger) (*PineconeIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("vector index requires an embeddings-capable genai provider")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	idx, err := client.DescribeIndex(ctx, cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("describe index %q: %w", cfg.Index, err)
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("connect to index host %q: %w", idx.Host, err)
	}

	return &PineconeIndex{
		conn:     conn,
		embedder: embedder,
		logger:   log.WithFields(map[string]interface{}{"component": "vector-index"}),
	}, nil
}

func (p *PineconeIndex) UpsertEvent(ctx context.Context, ev models.Event) error {
	vectors, err := p.embedder.Embed(ctx, []string{embeddingText(ev)})
	if err != nil || len(vectors) == 0 {
		return stderrors.NewVectorIndexError(fmt.Errorf("embed event %s: %w", ev.ID, err))
	}

	metadata, err := structpb.NewStruct(map[string]interface{}{
		"eventId":  ev.ID,
		"category": ev.Category,
		"location": ev.Location,
	})
	if err != nil {
		return stderrors.NewVectorIndexError(err)
	}

	_, err = p.conn.UpsertVectors(ctx, []*pinecone.Vector{
		{Id: ev.ID, Values: vectors[0], Metadata: metadata},
	})
	if err != nil {
		return stderrors.NewVectorIndexError(err)
	}
	return nil
}

func (p *PineconeIndex) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	vectors, err := p.embedder.Embed(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		return nil, stderrors.NewVectorIndexError(fmt.Errorf("embed query: %w", err))
	}

	resp, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vectors[0],
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, stderrors.NewVectorIndexError(err)
	}

	var matches []Match
	for _, m := range resp.Matches {
		if m.Vector == nil {
			continue
		}
		id := m.Vector.Id
		if m.Vector.Metadata != nil {
			if v, ok := m.Vector.Metadata.Fields["eventId"]; ok && v.GetStringValue() != "" {
				id = v.GetStringValue()
			}
		}
		matches = append(matches, Match{EventID: id, Score: float64(m.Score)})
	}
	return matches, nil
}

func embeddingText(ev models.Event) string {
	return fmt.Sprintf("%s. %s. Category: %s. Location: %s.",
		ev.Title, ev.Description, ev.Category, ev.Location)
}
