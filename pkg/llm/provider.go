// Package llm provides the provider abstraction for the two model
// capabilities the pipeline consumes: text embedding and text completion.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider encodes text into fixed-dimension vectors.
type EmbeddingProvider interface {
	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates a vector for a single text. It must be
	// consistent with Embed; batching introduces no drift.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string
}

// CompletionParams are the sampling parameters for one completion call.
type CompletionParams struct {
	Temperature  float64
	TopP         float64
	Sample       bool
	MaxNewTokens int
}

// CompletionProvider generates text from a prompt. The returned string MAY
// include the prompt itself (backends differ); callers strip it.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string, params CompletionParams) (string, error)

	// Name returns the provider name.
	Name() string
}

// Provider supports both capabilities.
type Provider interface {
	EmbeddingProvider
	CompletionProvider
}

// Pinger is implemented by providers that can verify their backend is
// reachable. The server probes it at startup and refuses to come up when
// the probe fails.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderFactory builds a full provider from a config map.
type ProviderFactory func(config map[string]any) (Provider, error)

var registry = &providerRegistry{
	providers: make(map[string]ProviderFactory),
}

type providerRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// RegisterProvider registers a provider factory under a name. Providers
// call this from init; the server imports them for side effects.
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// NewEmbeddingProvider creates an embedding provider by name.
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return newProvider(name, config)
}

// NewCompletionProvider creates a completion provider by name.
func NewCompletionProvider(name string, config map[string]any) (CompletionProvider, error) {
	return newProvider(name, config)
}

func newProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return factory(config)
}

// ListProviders lists all registered provider names.
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	return names
}
