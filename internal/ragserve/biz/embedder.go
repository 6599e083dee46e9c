package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/pkg/llm"
)

// Embedder wraps an embedding provider and L2-normalizes its output so
// cosine similarity reduces to an inner product in the index.
type Embedder struct {
	provider  llm.EmbeddingProvider
	dimension int
}

// NewEmbedder creates an embedder with the configured output dimension.
func NewEmbedder(provider llm.EmbeddingProvider, dimension int) *Embedder {
	return &Embedder{
		provider:  provider,
		dimension: dimension,
	}
}

// Encode embeds a batch of texts, one normalized vector per input in
// input order.
func (e *Embedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed texts: %w", err)
	}

	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), e.dimension)
		}
		textutil.NormalizeL2(v)
	}
	return vectors, nil
}

// EncodeOne embeds a single text, consistent with Encode.
func (e *Embedder) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the configured embedding dimension.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Provider returns the underlying embedding provider.
func (e *Embedder) Provider() llm.EmbeddingProvider {
	return e.provider
}
