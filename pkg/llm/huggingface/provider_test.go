package huggingface

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

func newTestProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider(map[string]any{
		"base_url": srv.URL,
		"api_key":  "hf_test",
		"model":    "test/model",
	})
	require.NoError(t, err)
	return p
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(map[string]any{"model": "test/model"})
	assert.ErrorContains(t, err, "api key")
}

func TestEmbed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pipeline/feature-extraction/test/model", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"hello"}, req.Inputs)

		json.NewEncoder(w).Encode([][]float32{{0.5, 0.5}})
	})

	vecs, err := p.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Equal(t, []float32{0.5, 0.5}, vecs[0])
}

func TestCompleteReturnsFullText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test/model", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the prompt", req.Inputs)
		assert.True(t, req.Parameters.ReturnFullText)
		assert.True(t, req.Parameters.DoSample)
		assert.Equal(t, 128, req.Parameters.MaxNewTokens)

		// The inference API echoes the prompt ahead of the continuation.
		json.NewEncoder(w).Encode([]generateResult{{GeneratedText: "the prompt and the answer"}})
	})

	out, err := p.Complete(context.Background(), "the prompt", llm.CompletionParams{
		Temperature: 0.7, TopP: 0.9, Sample: true, MaxNewTokens: 128,
	})
	require.NoError(t, err)
	assert.Equal(t, "the prompt and the answer", out)
}

func TestCompleteEmptyResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]generateResult{})
	})

	_, err := p.Complete(context.Background(), "prompt", llm.CompletionParams{MaxNewTokens: 16})
	assert.ErrorContains(t, err, "empty generation response")
}

func TestPing(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status/test/model", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	pinger, ok := p.(llm.Pinger)
	require.True(t, ok)
	assert.NoError(t, pinger.Ping(context.Background()))
}

func TestPingModelUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	})

	pinger, ok := p.(llm.Pinger)
	require.True(t, ok)
	assert.ErrorContains(t, pinger.Ping(context.Background()), "status 404")
}

func TestEmbedUnauthorized(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	})

	_, err := p.Embed(context.Background(), []string{"hello"})
	assert.ErrorContains(t, err, "status 401")
}
