package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/pkg/textutil"
	"github.com/kart-io/ragserve/pkg/infra/pool"
	"github.com/kart-io/ragserve/pkg/llm"
)

// FallbackAnswer is returned when retrieval finds nothing to ground an
// answer on. The model is not invoked in that case.
const FallbackAnswer = "No relevant documents found. Please index some documents first."

const systemPrompt = "You are a helpful assistant. Answer the user's question using ONLY the provided context. If the answer is not in the context, say so."

// contextSeparator joins retrieved chunk texts in rank order.
const contextSeparator = "\n\n---\n\n"

// Fixed sampling parameters for grounded answering.
const (
	genTemperature = 0.7
	genTopP        = 0.9
)

// GeneratorConfig configures answer generation.
type GeneratorConfig struct {
	// MaxNewTokens is the default generation budget.
	MaxNewTokens int
	// Timeout bounds one generation call.
	Timeout time.Duration
}

// Generator produces grounded answers. Calls are serialized through a
// single-worker pool; one generation runs at a time, the rest queue.
type Generator struct {
	provider llm.CompletionProvider
	genPool  *pool.Pool
	config   *GeneratorConfig
}

// NewGenerator creates a generator.
func NewGenerator(provider llm.CompletionProvider, genPool *pool.Pool, config *GeneratorConfig) *Generator {
	return &Generator{
		provider: provider,
		genPool:  genPool,
		config:   config,
	}
}

// buildPrompt assembles the grounded prompt from the query and sources.
func buildPrompt(query string, sources []model.RetrievedSource) string {
	texts := make([]string, len(sources))
	for i, s := range sources {
		texts[i] = s.Text
	}
	contextBlock := strings.Join(texts, contextSeparator)

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

// Generate answers the query from the given sources. Empty sources short
// circuit to the fallback answer without touching the provider.
func (g *Generator) Generate(ctx context.Context, query string, sources []model.RetrievedSource, maxNewTokens int) (string, error) {
	if len(sources) == 0 {
		return FallbackAnswer, nil
	}

	if maxNewTokens <= 0 {
		maxNewTokens = g.config.MaxNewTokens
	}

	prompt := buildPrompt(query, sources)
	params := llm.CompletionParams{
		Temperature:  genTemperature,
		TopP:         genTopP,
		Sample:       true,
		MaxNewTokens: maxNewTokens,
	}

	genCtx := ctx
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	var raw string
	var genErr error
	err := g.genPool.Do(genCtx, func() {
		raw, genErr = g.provider.Complete(genCtx, prompt, params)
	})
	if err != nil {
		return "", err
	}
	if genErr != nil {
		return "", genErr
	}

	// Some backends echo the prompt ahead of the continuation.
	answer := strings.TrimSpace(strings.TrimPrefix(raw, prompt))

	logger.Infow("answer generated",
		"provider", g.provider.Name(),
		"sources", len(sources),
		"answer_preview", textutil.TruncateString(answer, 80),
	)
	return answer, nil
}

// PoolStats reports the generation pool counters.
func (g *Generator) PoolStats() pool.Stats {
	return g.genPool.Stats()
}
