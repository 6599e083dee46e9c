package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/pkg/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Model = "test-model"
	return NewProviderWithConfig(cfg)
}

func TestEmbed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, []string{"hello", "world"}, req.Input)

		json.NewEncoder(w).Encode(embedResponse{
			Model:      req.Model,
			Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	})

	vecs, err := p.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vecs[0])
}

func TestEmbedCountMismatch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1}}})
	})

	_, err := p.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "1 vectors for 2 inputs")
}

func TestEmbedEmptyInput(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	vecs, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := p.Embed(context.Background(), []string{"hello"})
	assert.ErrorContains(t, err, "status 404")
}

func TestComplete(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "say hi", req.Prompt)
		assert.False(t, req.Stream)
		assert.InDelta(t, 0.7, req.Options.Temperature, 1e-9)
		assert.InDelta(t, 0.9, req.Options.TopP, 1e-9)
		assert.Equal(t, 512, req.Options.NumPredict)

		json.NewEncoder(w).Encode(generateResponse{Response: "hi there", Done: true})
	})

	out, err := p.Complete(context.Background(), "say hi", llm.CompletionParams{
		Temperature:  0.7,
		TopP:         0.9,
		Sample:       true,
		MaxNewTokens: 512,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestCompleteGreedyWhenNotSampling(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Zero(t, req.Options.Temperature)

		json.NewEncoder(w).Encode(generateResponse{Response: "ok"})
	})

	_, err := p.Complete(context.Background(), "prompt", llm.CompletionParams{
		Temperature: 0.7, TopP: 0.9, Sample: false, MaxNewTokens: 16,
	})
	require.NoError(t, err)
}

func TestPing(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, p.Ping(context.Background()))
}

func TestPingServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	p := NewProviderWithConfig(cfg)

	assert.Error(t, p.Ping(context.Background()))
}

func TestNewProviderConfigMap(t *testing.T) {
	p, err := NewProvider(map[string]any{
		"base_url": "http://ollama:11434",
		"model":    "nomic-embed-text",
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())
}
