// Package store defines the vector storage contract the pipeline writes to
// and reads from, plus the Milvus-backed implementation.
package store

import (
	"context"
)

// Payload is the metadata stored alongside each vector.
type Payload struct {
	// Text is the chunk text.
	Text string
	// Source is the originating filename.
	Source string
	// DocumentID identifies the upload the chunk came from.
	DocumentID string
	// ChunkID is the chunk's 0-based index within its document.
	ChunkID int64
}

// Point is one vector with identity and payload, ready for upsert.
type Point struct {
	// ID is a caller-minted unique id. Upserting an existing id replaces
	// that point.
	ID string
	// Vector is the L2-normalized embedding.
	Vector []float32
	// Payload is the chunk metadata.
	Payload Payload
}

// SearchHit is one similarity match.
type SearchHit struct {
	// ID is the point id.
	ID string
	// Score is the raw cosine similarity.
	Score float32
	// Fields holds the stored payload fields by name.
	Fields map[string]any
}

// CollectionConfig describes a collection to ensure.
type CollectionConfig struct {
	// Name is the collection name.
	Name string
	// Description is the collection description.
	Description string
	// Dimension is the vector dimension.
	Dimension int
}

// VectorStore is the vector index contract. Implementations make exactly
// one attempt per call; retry policy belongs to nobody in this pipeline.
type VectorStore interface {
	// EnsureCollection creates the collection when absent. Idempotent.
	EnsureCollection(ctx context.Context, config *CollectionConfig) error

	// Upsert writes points by id, replacing points that share an id.
	Upsert(ctx context.Context, collection string, points []*Point) error

	// Search returns up to topK hits in descending score order. An empty
	// collection yields an empty slice, not an error.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]*SearchHit, error)

	// DropCollection removes the collection and all its points.
	DropCollection(ctx context.Context, collection string) error

	// Count returns the number of points in the collection.
	Count(ctx context.Context, collection string) (int64, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
