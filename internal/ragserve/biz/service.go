package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/ragserve/metrics"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/llm"
)

// Service is the pipeline facade the HTTP surface talks to.
type Service interface {
	// IndexDocument ingests one uploaded file.
	IndexDocument(ctx context.Context, filename string, data []byte) (*model.IndexResult, error)
	// Chat answers a query grounded on retrieved chunks. topK and
	// maxNewTokens fall back to configured defaults when <= 0.
	Chat(ctx context.Context, query string, topK, maxNewTokens int) (*model.ChatResult, error)
	// ResetCollection drops and recreates the collection.
	ResetCollection(ctx context.Context) (string, error)
	// Stats reports collection, provider and pipeline statistics.
	Stats(ctx context.Context) (map[string]any, error)
	// Collection returns the collection name.
	Collection() string
}

// ServiceConfig wires the pipeline components together.
type ServiceConfig struct {
	IndexerConfig   *IndexerConfig
	RetrieverConfig *RetrieverConfig
	GeneratorConfig *GeneratorConfig
}

// RAGService composes Indexer, Retriever and Generator into the full
// pipeline.
type RAGService struct {
	indexer    *Indexer
	retriever  *Retriever
	generator  *Generator
	cache      *AnswerCache
	store      store.VectorStore
	embedder   *Embedder
	completion llm.CompletionProvider
	collection string
	metrics    *metrics.PipelineMetrics
}

// NewRAGService creates the pipeline facade.
func NewRAGService(
	vectorStore store.VectorStore,
	embedder *Embedder,
	indexer *Indexer,
	retriever *Retriever,
	generator *Generator,
	cache *AnswerCache,
	config *ServiceConfig,
) *RAGService {
	return &RAGService{
		indexer:    indexer,
		retriever:  retriever,
		generator:  generator,
		cache:      cache,
		store:      vectorStore,
		embedder:   embedder,
		completion: generator.provider,
		collection: config.IndexerConfig.Collection,
		metrics:    metrics.Get(),
	}
}

// Collection returns the collection name.
func (s *RAGService) Collection() string {
	return s.collection
}

// IndexDocument ingests one uploaded file.
func (s *RAGService) IndexDocument(ctx context.Context, filename string, data []byte) (*model.IndexResult, error) {
	result, err := s.indexer.IndexDocument(ctx, filename, data)
	if err != nil {
		s.metrics.RecordIndex(0, err)
		return nil, err
	}
	s.metrics.RecordIndex(result.ChunksIndexed, nil)
	return result, nil
}

// Chat answers a query grounded on retrieved chunks.
func (s *RAGService) Chat(ctx context.Context, query string, topK, maxNewTokens int) (*model.ChatResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if cached, err := s.cache.Get(ctx, query, topK); err == nil && cached != nil {
		s.metrics.RecordQuery(true, nil)
		return cached, nil
	}

	retrievalStart := time.Now()
	sources, err := s.retriever.Retrieve(ctx, query, topK)
	s.metrics.RecordRetrieval(time.Since(retrievalStart), err)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	var answer string
	if len(sources) == 0 {
		// Nothing to ground on; the model is not consulted.
		answer = FallbackAnswer
	} else {
		llmStart := time.Now()
		answer, err = s.generator.Generate(ctx, query, sources, maxNewTokens)
		s.metrics.RecordLLMCall(time.Since(llmStart), err)
		if err != nil {
			s.metrics.RecordQuery(false, err)
			return nil, err
		}
	}

	result := &model.ChatResult{
		Answer:  answer,
		Sources: sources,
	}
	if result.Sources == nil {
		result.Sources = []model.RetrievedSource{}
	}

	_ = s.cache.Set(ctx, query, topK, result)
	s.metrics.RecordQuery(false, nil)
	return result, nil
}

// ResetCollection drops the collection, recreates it empty, and clears
// the answer cache.
func (s *RAGService) ResetCollection(ctx context.Context) (string, error) {
	if err := s.store.DropCollection(ctx, s.collection); err != nil {
		return "", err
	}

	if err := s.store.EnsureCollection(ctx, &store.CollectionConfig{
		Name:      s.collection,
		Dimension: s.embedder.Dimension(),
	}); err != nil {
		return "", err
	}

	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear answer cache after reset", "error", err.Error())
	}

	logger.Infow("collection reset", "collection", s.collection)
	return fmt.Sprintf("Collection '%s' reset successfully.", s.collection), nil
}

// Stats reports collection, provider and pipeline statistics.
func (s *RAGService) Stats(ctx context.Context) (map[string]any, error) {
	count, err := s.store.Count(ctx, s.collection)
	if err != nil {
		return nil, err
	}

	stats := map[string]any{
		"collection":          s.collection,
		"points_count":        count,
		"embedding_provider":  s.embedder.Provider().Name(),
		"completion_provider": s.completion.Name(),
	}

	if cacheStats, err := s.cache.Stats(ctx); err == nil {
		stats["cache"] = cacheStats
	}
	stats["pipeline"] = s.metrics.Stats()

	poolStats := s.generator.PoolStats()
	stats["generation_pool"] = map[string]any{
		"submitted_tasks": poolStats.SubmittedTasks,
		"completed_tasks": poolStats.CompletedTasks,
		"failed_tasks":    poolStats.FailedTasks,
		"rejected_tasks":  poolStats.RejectedTasks,
	}

	return stats, nil
}

var _ Service = (*RAGService)(nil)
