package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ragserve/pkg/llm"
	_ "github.com/kart-io/ragserve/pkg/llm/huggingface"
	_ "github.com/kart-io/ragserve/pkg/llm/ollama"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (s *stubProvider) EmbedSingle(context.Context, string) ([]float32, error) {
	return nil, nil
}
func (s *stubProvider) Complete(context.Context, string, llm.CompletionParams) (string, error) {
	return "", nil
}
func (s *stubProvider) Name() string { return s.name }

func TestRegisteredProviders(t *testing.T) {
	names := llm.ListProviders()
	assert.Contains(t, names, "ollama")
	assert.Contains(t, names, "huggingface")
}

func TestNewProviderByName(t *testing.T) {
	llm.RegisterProvider("stub", func(config map[string]any) (llm.Provider, error) {
		return &stubProvider{name: "stub"}, nil
	})

	embedder, err := llm.NewEmbeddingProvider("stub", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", embedder.Name())

	completer, err := llm.NewCompletionProvider("stub", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", completer.Name())
}

func TestUnknownProvider(t *testing.T) {
	_, err := llm.NewEmbeddingProvider("no-such-provider", nil)
	assert.ErrorContains(t, err, "unknown provider")
}
