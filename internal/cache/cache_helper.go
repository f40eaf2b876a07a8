package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RISHIK92/adventa-backend/internal/models"
)

// CacheConfig defines cache configuration for different data types
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Community averages change only when a refresh job lands.
	CommunityCacheConfig = CacheConfig{
		TTL:    10 * time.Minute,
		Prefix: "community:",
	}

	// Per-user performance lists are invalidated on every submission.
	PerformanceCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "performance:",
	}
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

const (
	scanBatch      = 100
	populateBudget = 5 * time.Second
)

// CacheHelper owns a key namespace in redis. A nil client turns every write
// into a no-op and every read into a miss.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

func (c *CacheHelper) GetCacheKey(key string) string {
	return c.prefix + key
}

func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = c.GetCacheKey(key)
	}
	return c.client.Del(ctx, namespaced...).Err()
}

// InvalidatePattern walks the namespace with SCAN, never KEYS, and deletes
// every match in one pipeline.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, c.GetCacheKey(pattern), scanBatch).Iterator()
	pipe := c.client.Pipeline()
	queued := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		queued++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan pattern error: %w", err)
	}
	if queued == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache pipeline delete error: %w", err)
	}
	return nil
}

func (c *CacheHelper) getRaw(ctx context.Context, key string) ([]byte, error) {
	if c.client == nil {
		return nil, ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return data, nil
}

func (c *CacheHelper) setRaw(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

// TypedCache stores JSON-encoded values of one type under a CacheHelper
// namespace.
type TypedCache[T any] struct {
	*CacheHelper
}

func NewTypedCache[T any](client *redis.Client, prefix string) *TypedCache[T] {
	return &TypedCache[T]{CacheHelper: NewCacheHelper(client, prefix)}
}

func (c *TypedCache[T]) Get(ctx context.Context, key string) (T, error) {
	var value T
	data, err := c.getRaw(ctx, key)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return value, nil
}

func (c *TypedCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	return c.setRaw(ctx, key, data, ttl)
}

// GetOrLoad is cache-aside: a hit skips load, a miss calls load and fills
// the cache in the background. Cache failures never fail the read; load
// failures are returned as is and nothing is cached.
func (c *TypedCache[T]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	cached, err := c.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.InfoContext(ctx, "Cache read failed, loading from source", "error", err, "key", c.GetCacheKey(key))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if c.client != nil {
		// The request may finish before the write does.
		go func(parent context.Context) {
			setCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), populateBudget)
			defer cancel()
			if err := c.Set(setCtx, key, value, ttl); err != nil {
				slog.Error("Cache populate failed", "error", err, "key", c.GetCacheKey(key))
			}
		}(ctx)
	}
	return value, nil
}

// CacheManager groups the caches used by the services
type CacheManager struct {
	client      *redis.Client
	Community   *TypedCache[models.CommunityAverage]
	Performance *TypedCache[models.PerformanceListResponse]
}

func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client:      client,
		Community:   NewTypedCache[models.CommunityAverage](client, CommunityCacheConfig.Prefix),
		Performance: NewTypedCache[models.PerformanceListResponse](client, PerformanceCacheConfig.Prefix),
	}
}

// HealthCheck verifies cache connectivity
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}

	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
