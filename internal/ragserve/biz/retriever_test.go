package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/store"
)

func newTestRetriever(vs *fakeVectorStore) *Retriever {
	embedder := NewEmbedder(&fakeEmbedProvider{dim: 4}, 4)
	return NewRetriever(vs, embedder, &RetrieverConfig{
		Collection: "test_collection",
		TopK:       5,
	})
}

func TestRetrieveEmptyCollection(t *testing.T) {
	vs := newFakeVectorStore()
	r := newTestRetriever(vs)

	sources, err := r.Retrieve(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestRetrieveMapsHits(t *testing.T) {
	vs := newFakeVectorStore()
	require.NoError(t, vs.Upsert(context.Background(), "test_collection", []*store.Point{
		{ID: "p1", Vector: []float32{1, 0, 0, 0}, Payload: store.Payload{
			Text: "first chunk", Source: "doc.txt", DocumentID: "d1", ChunkID: 3,
		}},
	}))

	r := newTestRetriever(vs)
	sources, err := r.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	assert.Equal(t, "first chunk", sources[0].Text)
	assert.Equal(t, "doc.txt", sources[0].Source)
	assert.Equal(t, int64(3), sources[0].ChunkID)
}

func TestRetrievePayloadDefaults(t *testing.T) {
	vs := newFakeVectorStore()
	vs.rawHits = []*store.SearchHit{
		{ID: "p1", Score: 0.8, Fields: map[string]any{
			store.FieldText: "chunk text",
		}},
	}

	r := newTestRetriever(vs)
	sources, err := r.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	assert.Equal(t, "unknown", sources[0].Source)
	assert.Equal(t, int64(0), sources[0].ChunkID)
}

func TestRetrievePreservesEmptySource(t *testing.T) {
	vs := newFakeVectorStore()
	vs.rawHits = []*store.SearchHit{
		{ID: "p1", Score: 0.8, Fields: map[string]any{
			store.FieldText:    "chunk text",
			store.FieldSource:  "",
			store.FieldChunkID: int64(2),
		}},
	}

	r := newTestRetriever(vs)
	sources, err := r.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	// A stored empty source is not the same as a missing one.
	assert.Equal(t, "", sources[0].Source)
	assert.Equal(t, int64(2), sources[0].ChunkID)
}

func TestRetrieveOrderAndRounding(t *testing.T) {
	vs := newFakeVectorStore()
	points := []*store.Point{
		{ID: "a", Vector: []float32{1, 0, 0, 0}, Payload: store.Payload{Text: "close chunk text"}},
		{ID: "b", Vector: []float32{0.5, 0.5, 0.5, 0.5}, Payload: store.Payload{Text: "middle chunk text"}},
		{ID: "c", Vector: []float32{0, 1, 0, 0}, Payload: store.Payload{Text: "far chunk text"}},
	}
	require.NoError(t, vs.Upsert(context.Background(), "test_collection", points))

	r := newTestRetriever(vs)
	sources, err := r.Retrieve(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.GreaterOrEqual(t, sources[0].Score, sources[1].Score)
	for _, s := range sources {
		// Rounded to 4 decimals.
		assert.Equal(t, textutil.RoundScore(s.Score), s.Score)
	}
}

func TestRetrieveTopKDefault(t *testing.T) {
	vs := newFakeVectorStore()
	points := make([]*store.Point, 10)
	for i := range points {
		points[i] = &store.Point{
			ID:     string(rune('a' + i)),
			Vector: []float32{float32(i), 1, 0, 0},
			Payload: store.Payload{Text: "some chunk text"},
		}
	}
	require.NoError(t, vs.Upsert(context.Background(), "test_collection", points))

	r := newTestRetriever(vs)
	sources, err := r.Retrieve(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Len(t, sources, 5)
}

func TestRetrieveSearchError(t *testing.T) {
	vs := newFakeVectorStore()
	vs.searchErr = errors.New("index unavailable")

	r := newTestRetriever(vs)
	_, err := r.Retrieve(context.Background(), "query", 0)
	assert.Error(t, err)
}
