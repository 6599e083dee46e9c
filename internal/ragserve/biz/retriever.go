package biz

import (
	"context"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/store"
)

// RetrieverConfig configures similarity retrieval.
type RetrieverConfig struct {
	// Collection is the collection to search.
	Collection string
	// TopK is the default number of chunks to retrieve.
	TopK int
}

// Retriever embeds a query and returns the best-matching chunks in the
// index's ranking order.
type Retriever struct {
	store    store.VectorStore
	embedder *Embedder
	config   *RetrieverConfig
}

// NewRetriever creates a retriever.
func NewRetriever(vectorStore store.VectorStore, embedder *Embedder, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:    vectorStore,
		embedder: embedder,
		config:   config,
	}
}

// Retrieve returns up to topK sources for the query, highest score first.
// topK <= 0 falls back to the configured default. An empty result is a
// defined outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]model.RetrievedSource, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	vector, err := r.embedder.EncodeOne(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.store.Search(ctx, r.config.Collection, vector, topK)
	if err != nil {
		return nil, err
	}

	sources := make([]model.RetrievedSource, len(hits))
	for i, hit := range hits {
		sources[i] = model.RetrievedSource{
			Score:   textutil.RoundScore(float64(hit.Score)),
			Text:    stringField(hit.Fields, store.FieldText, ""),
			Source:  stringField(hit.Fields, store.FieldSource, "unknown"),
			ChunkID: int64Field(hit.Fields, store.FieldChunkID, 0),
		}
	}
	return sources, nil
}

// stringField defaults only when the field is absent; an empty string is
// a stored value and comes back as-is.
func stringField(fields map[string]any, name, fallback string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return fallback
}

func int64Field(fields map[string]any, name string, fallback int64) int64 {
	if v, ok := fields[name].(int64); ok {
		return v
	}
	return fallback
}
