package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"testimonials/internal/generation"
	"testimonials/internal/logger"
	"testimonials/internal/metrics"
)

const catalogCacheKey = "testimonials:openrouter:models"

// ErrCacheMiss is returned by a CacheStore when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheStore is the byte store behind CachedCatalog.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore implements CacheStore using Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses a redis:// URL and pings the server.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// CachedCatalog serves the model catalog from a CacheStore, refreshing it
// from the upstream catalog after ttl. Cache failures fall through to the
// upstream.
type CachedCatalog struct {
	upstream generation.Catalog
	store    CacheStore
	ttl      time.Duration
	logger   *logger.Logger
}

func NewCachedCatalog(upstream generation.Catalog, store CacheStore, ttl time.Duration, log *logger.Logger) *CachedCatalog {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedCatalog{upstream: upstream, store: store, ttl: ttl, logger: log}
}

func (c *CachedCatalog) ListModels(ctx context.Context) ([]generation.CatalogEntry, error) {
	raw, err := c.store.Get(ctx, catalogCacheKey)
	switch {
	case err == nil:
		var entries []generation.CatalogEntry
		if jsonErr := json.Unmarshal(raw, &entries); jsonErr == nil {
			metrics.ObserveCatalog("hit")
			return entries, nil
		}
		c.logger.Warn("discarding unreadable model catalog cache entry")
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("model catalog cache read failed: %v", err)
	}

	entries, err := c.upstream.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(entries); err == nil {
		if err := c.store.Set(ctx, catalogCacheKey, raw, c.ttl); err != nil {
			c.logger.Warn("model catalog cache write failed: %v", err)
		}
	}
	return entries, nil
}
