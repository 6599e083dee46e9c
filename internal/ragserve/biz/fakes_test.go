package biz

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/llm"
)

// fakeVectorStore is an in-memory VectorStore for pipeline tests.
type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string]map[string]*store.Point
	searchErr   error
	upsertErr   error
	// rawHits, when set, is returned by Search verbatim. Lets tests shape
	// hits the store layer would never produce from its own points.
	rawHits []*store.SearchHit
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: make(map[string]map[string]*store.Point)}
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, config *store.CollectionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[config.Name]; !ok {
		f.collections[config.Name] = make(map[string]*store.Point)
	}
	return nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, collection string, points []*store.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	coll, ok := f.collections[collection]
	if !ok {
		coll = make(map[string]*store.Point)
		f.collections[collection] = coll
	}
	for _, p := range points {
		coll[p.ID] = p
	}
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, collection string, vector []float32, topK int) ([]*store.SearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.rawHits != nil {
		return f.rawHits, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	coll := f.collections[collection]
	hits := make([]*store.SearchHit, 0, len(coll))
	for id, p := range coll {
		hits = append(hits, &store.SearchHit{
			ID:    id,
			Score: float32(textutil.CosineSimilarity(vector, p.Vector)),
			Fields: map[string]any{
				store.FieldText:       p.Payload.Text,
				store.FieldSource:     p.Payload.Source,
				store.FieldDocumentID: p.Payload.DocumentID,
				store.FieldChunkID:    p.Payload.ChunkID,
			},
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeVectorStore) DropCollection(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, collection)
	return nil
}

func (f *fakeVectorStore) Count(_ context.Context, collection string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.collections[collection])), nil
}

func (f *fakeVectorStore) Close(context.Context) error { return nil }

var _ store.VectorStore = (*fakeVectorStore)(nil)

// fakeEmbedProvider returns deterministic vectors derived from text length.
type fakeEmbedProvider struct {
	dim   int
	calls int
	err   error
}

func (f *fakeEmbedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, f.dim)
		for j := range v {
			v[j] = float32((len(text)+i*7+j*3)%13) + 1
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (f *fakeEmbedProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedProvider) Name() string { return "fake-embed" }

var _ llm.EmbeddingProvider = (*fakeEmbedProvider)(nil)

// fakeCompletionProvider records the last call.
type fakeCompletionProvider struct {
	mu         sync.Mutex
	calls      int
	lastPrompt string
	lastParams llm.CompletionParams
	response   string
	echoPrompt bool
	err        error
}

func (f *fakeCompletionProvider) Complete(_ context.Context, prompt string, params llm.CompletionParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = prompt
	f.lastParams = params
	if f.err != nil {
		return "", f.err
	}
	if f.echoPrompt {
		return fmt.Sprintf("%s %s", prompt, f.response), nil
	}
	return f.response, nil
}

func (f *fakeCompletionProvider) Name() string { return "fake-completion" }

var _ llm.CompletionProvider = (*fakeCompletionProvider)(nil)
