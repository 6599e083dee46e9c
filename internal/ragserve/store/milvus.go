package store

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/ragserve/pkg/component/milvus"
)

// Field names stored per point.
const (
	FieldText       = "text"
	FieldSource     = "source"
	FieldDocumentID = "document_id"
	FieldChunkID    = "chunk_id"
)

var outputFields = []string{FieldText, FieldSource, FieldDocumentID, FieldChunkID}

// MilvusStore implements VectorStore on Milvus.
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore creates a Milvus-backed vector store.
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// EnsureCollection creates the collection with the chunk payload schema
// when it does not already exist.
func (s *MilvusStore) EnsureCollection(ctx context.Context, config *CollectionConfig) error {
	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: FieldText, DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: FieldSource, DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: FieldDocumentID, DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: FieldChunkID, DataType: entity.FieldTypeInt64},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// Upsert writes points into Milvus under their caller-minted ids.
func (s *MilvusStore) Upsert(ctx context.Context, collection string, points []*Point) error {
	if len(points) == 0 {
		return nil
	}

	ids := make([]string, len(points))
	embeddings := make([][]float32, len(points))
	metadata := map[string][]any{
		FieldText:       make([]any, len(points)),
		FieldSource:     make([]any, len(points)),
		FieldDocumentID: make([]any, len(points)),
		FieldChunkID:    make([]any, len(points)),
	}

	for i, p := range points {
		ids[i] = p.ID
		embeddings[i] = p.Vector
		metadata[FieldText][i] = p.Payload.Text
		metadata[FieldSource][i] = p.Payload.Source
		metadata[FieldDocumentID][i] = p.Payload.DocumentID
		metadata[FieldChunkID][i] = p.Payload.ChunkID
	}

	data := &milvus.InsertData{
		IDs:        ids,
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	if err := s.client.Upsert(ctx, collection, data); err != nil {
		return fmt.Errorf("failed to upsert into milvus: %w", err)
	}
	return nil
}

// Search runs a cosine similarity search and maps results to hits.
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]*SearchHit, error) {
	results, err := s.client.Search(ctx, collection, vector, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	hits := make([]*SearchHit, len(results))
	for i, r := range results {
		hits[i] = &SearchHit{
			ID:     r.ID,
			Score:  r.Score,
			Fields: r.Metadata,
		}
	}
	return hits, nil
}

// DropCollection removes the collection.
func (s *MilvusStore) DropCollection(ctx context.Context, collection string) error {
	return s.client.DropCollection(ctx, collection)
}

// Count returns the collection's point count.
func (s *MilvusStore) Count(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// Close closes the Milvus connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

var _ VectorStore = (*MilvusStore)(nil)
