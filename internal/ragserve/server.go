// Package ragserve wires configuration into a running HTTP service.
package ragserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
	"github.com/kart-io/ragserve/internal/ragserve/handler"
	"github.com/kart-io/ragserve/internal/ragserve/router"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/component/milvus"
	"github.com/kart-io/ragserve/pkg/infra/pool"
	"github.com/kart-io/ragserve/pkg/llm"
	_ "github.com/kart-io/ragserve/pkg/llm/huggingface"
	_ "github.com/kart-io/ragserve/pkg/llm/ollama"
	cacheopts "github.com/kart-io/ragserve/pkg/options/cache"
	httpopts "github.com/kart-io/ragserve/pkg/options/http"
	llmopts "github.com/kart-io/ragserve/pkg/options/llm"
	logopts "github.com/kart-io/ragserve/pkg/options/logger"
	milvusopts "github.com/kart-io/ragserve/pkg/options/milvus"
	ragopts "github.com/kart-io/ragserve/pkg/options/rag"
)

// Name is the service name.
const Name = "ragserve"

// Config contains the fully resolved service configuration.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RAGOptions       *ragopts.Options
	CacheOptions     *cacheopts.Options
}

// Server is the assembled HTTP service.
type Server struct {
	httpServer *http.Server
	config     *Config
	genPool    *pool.Pool
	closers    []func()
}

// NewServer dials all dependencies and assembles the pipeline. An
// unreachable vector store or a misconfigured provider is fatal here,
// before the service ever listens.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("starting service", "name", Name)

	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	closers := []func(){func() { _ = milvusClient.Close(context.Background()) }}

	vectorStore := store.NewMilvusStore(milvusClient)
	if err := vectorStore.EnsureCollection(ctx, &store.CollectionConfig{
		Name:        cfg.RAGOptions.Collection,
		Description: "document chunks for grounded question answering",
		Dimension:   cfg.RAGOptions.EmbeddingDim,
	}); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	logger.Infow("vector store ready",
		"collection", cfg.RAGOptions.Collection,
		"dimension", cfg.RAGOptions.EmbeddingDim,
	)

	answerCache := setupCache(cfg.CacheOptions, &closers)

	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if err := probeProvider(ctx, embedProvider); err != nil {
		return nil, fmt.Errorf("embedding provider unreachable: %w", err)
	}
	logger.Infow("embedding provider ready",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	completionProvider, err := llm.NewCompletionProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion provider: %w", err)
	}
	if err := probeProvider(ctx, completionProvider); err != nil {
		return nil, fmt.Errorf("completion provider unreachable: %w", err)
	}
	logger.Infow("completion provider ready",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	genPool, err := pool.NewPool("generation", pool.GenerationPool, pool.GenerationPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create generation pool: %w", err)
	}

	embedder := biz.NewEmbedder(embedProvider, cfg.RAGOptions.EmbeddingDim)
	indexerCfg := &biz.IndexerConfig{
		Collection:   cfg.RAGOptions.Collection,
		ChunkSize:    cfg.RAGOptions.ChunkSize,
		ChunkOverlap: cfg.RAGOptions.ChunkOverlap,
	}
	retrieverCfg := &biz.RetrieverConfig{
		Collection: cfg.RAGOptions.Collection,
		TopK:       cfg.RAGOptions.TopK,
	}
	generatorCfg := &biz.GeneratorConfig{
		MaxNewTokens: cfg.RAGOptions.MaxNewTokens,
		Timeout:      cfg.ChatOptions.Timeout,
	}

	service := biz.NewRAGService(
		vectorStore,
		embedder,
		biz.NewIndexer(vectorStore, embedder, indexerCfg),
		biz.NewRetriever(vectorStore, embedder, retrieverCfg),
		biz.NewGenerator(completionProvider, genPool, generatorCfg),
		answerCache,
		&biz.ServiceConfig{
			IndexerConfig:   indexerCfg,
			RetrieverConfig: retrieverCfg,
			GeneratorConfig: generatorCfg,
		},
	)

	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.MaxMultipartMemory = cfg.HTTPOptions.MaxUploadSize

	h := handler.New(service, &handler.Config{
		Device:        cfg.ChatOptions.Model,
		ChatTimeout:   cfg.ChatOptions.Timeout,
		MaxUploadSize: cfg.HTTPOptions.MaxUploadSize,
	})
	router.Register(engine, h)

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
	}

	logger.Infow("service ready", "addr", cfg.HTTPOptions.Addr)
	return &Server{
		httpServer: httpServer,
		config:     cfg,
		genPool:    genPool,
		closers:    closers,
	}, nil
}

// probeProviderTimeout bounds one startup reachability check.
const probeProviderTimeout = 10 * time.Second

// probeProvider verifies the provider's backend answers before the service
// accepts traffic. Providers that cannot be probed pass.
func probeProvider(ctx context.Context, provider any) error {
	pinger, ok := provider.(llm.Pinger)
	if !ok {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeProviderTimeout)
	defer cancel()
	return pinger.Ping(probeCtx)
}

// setupCache dials Redis when the cache is enabled. A failed dial disables
// the cache and the service runs without it.
func setupCache(opts *cacheopts.Options, closers *[]func()) *biz.AnswerCache {
	if opts == nil || !opts.Enabled || opts.Redis == nil {
		logger.Info("answer cache disabled")
		return biz.NewAnswerCache(nil, nil)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         opts.Redis.Addr(),
		Password:     opts.Redis.Password,
		DB:           opts.Redis.Database,
		PoolSize:     opts.Redis.PoolSize,
		MinIdleConns: opts.Redis.MinIdleConns,
		DialTimeout:  opts.Redis.DialTimeout,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warnw("redis unreachable, answer cache disabled", "error", err.Error())
		_ = redisClient.Close()
		return biz.NewAnswerCache(nil, nil)
	}

	*closers = append(*closers, func() { _ = redisClient.Close() })
	logger.Infow("answer cache enabled", "addr", opts.Redis.Addr(), "ttl", opts.TTL)
	return biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
		Enabled:   true,
		TTL:       opts.TTL,
		KeyPrefix: opts.KeyPrefix,
	})
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.close()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.HTTPOptions.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func (s *Server) close() {
	if s.genPool != nil {
		// Let an in-flight generation finish before the pool goes away.
		if err := s.genPool.ReleaseTimeout(5 * time.Second); err != nil {
			logger.Warnw("generation pool release timed out", "error", err.Error())
		}
	}
	for _, closeFn := range s.closers {
		closeFn()
	}
}
