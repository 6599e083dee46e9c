package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/ragserve/internal/model"
	"github.com/kart-io/ragserve/internal/pkg/textutil"
)

// AnswerCacheConfig configures the Redis answer cache.
type AnswerCacheConfig struct {
	// Enabled toggles the cache.
	Enabled bool
	// TTL is the entry lifetime.
	TTL time.Duration
	// KeyPrefix is prepended to every key.
	KeyPrefix string
}

// AnswerCache caches chat results keyed by query and top-k. A disabled or
// nil-client cache is a no-op.
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache creates an answer cache.
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "ragserve:answer:",
		}
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

func (c *AnswerCache) enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}

// cacheKey hashes query and top-k so the same question with a different
// retrieval width is a different entry.
func (c *AnswerCache) cacheKey(query string, topK int) string {
	return c.config.KeyPrefix + textutil.HashString(fmt.Sprintf("%d|%s", topK, query))
}

// Get returns the cached result, or nil on miss.
func (c *AnswerCache) Get(ctx context.Context, query string, topK int) (*model.ChatResult, error) {
	if !c.enabled() {
		return nil, nil
	}

	key := c.cacheKey(query, topK)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		logger.Warnw("failed to get from answer cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.ChatResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached answer", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Infow("answer cache hit", "key", key)
	return &result, nil
}

// Set stores a chat result. Failures are logged, not fatal.
func (c *AnswerCache) Set(ctx context.Context, query string, topK int, result *model.ChatResult) error {
	if !c.enabled() {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal answer for caching", "error", err.Error())
		return err
	}

	key := c.cacheKey(query, topK)
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set answer cache", "error", err.Error(), "key", key)
		return err
	}
	return nil
}

// Clear removes every cached answer. Invoked when the collection is reset
// so stale answers cannot outlive their grounding.
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("answer cache cleared", "deleted", deleted)
	return nil
}

// Stats reports cache configuration and entry count.
func (c *AnswerCache) Stats(ctx context.Context) (map[string]any, error) {
	if !c.enabled() {
		return map[string]any{"enabled": false}, nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	keyCount := 0
	for iter.Next(ctx) {
		keyCount++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]any{
		"enabled":   true,
		"key_count": keyCount,
		"ttl":       c.config.TTL.String(),
	}, nil
}
