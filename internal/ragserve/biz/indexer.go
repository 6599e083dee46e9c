package biz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/pkg/extract"
	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/store"
)

// IndexerConfig configures document ingestion.
type IndexerConfig struct {
	// Collection is the target collection name.
	Collection string
	// ChunkSize is the chunk window size in runes.
	ChunkSize int
	// ChunkOverlap is the overlap between consecutive windows in runes.
	ChunkOverlap int
}

// Indexer ingests documents: extract, chunk, embed, upsert.
type Indexer struct {
	store    store.VectorStore
	embedder *Embedder
	config   *IndexerConfig
}

// NewIndexer creates an indexer.
func NewIndexer(vectorStore store.VectorStore, embedder *Embedder, config *IndexerConfig) *Indexer {
	return &Indexer{
		store:    vectorStore,
		embedder: embedder,
		config:   config,
	}
}

// IndexDocument ingests one uploaded file. Every chunk gets a fresh point
// id, so re-uploading the same file adds new points rather than replacing
// the old ones.
func (ix *Indexer) IndexDocument(ctx context.Context, filename string, data []byte) (*model.IndexResult, error) {
	text, err := extract.ExtractText(data, filename)
	if err != nil {
		return nil, err
	}

	chunks, err := textutil.SplitIntoChunks(text, ix.config.ChunkSize, ix.config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	vectors, err := ix.embedder.Encode(ctx, chunks)
	if err != nil {
		return nil, err
	}

	documentID := uuid.NewString()
	points := make([]*store.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = &store.Point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: store.Payload{
				Text:       chunk,
				Source:     filename,
				DocumentID: documentID,
				ChunkID:    int64(i),
			},
		}
	}

	if err := ix.store.Upsert(ctx, ix.config.Collection, points); err != nil {
		return nil, err
	}

	logger.Infow("document indexed",
		"filename", filename,
		"document_id", documentID,
		"chunks", len(chunks),
	)

	return &model.IndexResult{
		Message:       fmt.Sprintf("Successfully indexed '%s'", filename),
		ChunksIndexed: len(chunks),
		DocumentID:    documentID,
	}, nil
}
