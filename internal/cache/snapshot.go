// Package cache keeps the candidate territory snapshot in Redis so service
// instances share one database load per change.
//
// Keys are generation-scoped: Invalidate bumps the generation counter, and a
// loader that raced with a write stores its result under the previous
// generation where nobody reads it again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/solatis/groundskeeper/internal/core/metrics"
	"github.com/solatis/groundskeeper/internal/types"
)

const (
	defaultPrefix  = "groundskeeper:snapshot"
	connectTimeout = 5 * time.Second
)

// Cache stores candidate snapshots.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// New wraps an existing client.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, prefix: defaultPrefix}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}
	return New(client, ttl), nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) dataKey(gen int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, gen)
}

// Get returns the cached snapshot and its generation. found is false on a miss.
func (c *Cache) Get(ctx context.Context) (snapshot []types.Territory, gen int64, found bool, err error) {
	gen, err = c.generation(ctx)
	if err != nil {
		return nil, 0, false, fmt.Errorf("read generation: %w", err)
	}
	data, err := c.rdb.Get(ctx, c.dataKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, gen, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, gen, true, nil
}

// Set stores a snapshot under generation gen, as returned by Get.
func (c *Cache) Set(ctx context.Context, gen int64, snapshot []types.Territory) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.rdb.Set(ctx, c.dataKey(gen), data, c.ttl).Err()
}

// Invalidate makes every stored snapshot unreachable.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.generationKey()).Err()
}

// Source loads candidate territories from the system of record.
type Source interface {
	LoadCandidates(ctx context.Context) ([]types.Territory, error)
}

// CachedSource serves LoadCandidates from the cache, falling back to src.
// Cache failures are logged and degrade to a direct load.
type CachedSource struct {
	src     Source
	cache   *Cache
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewCachedSource wraps src with cache.
func NewCachedSource(src Source, cache *Cache, m *metrics.Metrics, log zerolog.Logger) *CachedSource {
	return &CachedSource{
		src:     src,
		cache:   cache,
		metrics: m,
		log:     log.With().Str("component", "snapshot-cache").Logger(),
	}
}

// LoadCandidates implements Source.
func (c *CachedSource) LoadCandidates(ctx context.Context) ([]types.Territory, error) {
	snapshot, gen, found, err := c.cache.Get(ctx)
	switch {
	case err != nil:
		c.metrics.SnapshotCache.WithLabelValues(metrics.CacheError).Inc()
		c.log.Warn().Err(err).Msg("snapshot cache read failed, loading from database")
		return c.src.LoadCandidates(ctx)
	case found:
		c.metrics.SnapshotCache.WithLabelValues(metrics.CacheHit).Inc()
		return snapshot, nil
	}

	c.metrics.SnapshotCache.WithLabelValues(metrics.CacheMiss).Inc()
	snapshot, err = c.src.LoadCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, gen, snapshot); err != nil {
		c.metrics.SnapshotCache.WithLabelValues(metrics.CacheError).Inc()
		c.log.Warn().Err(err).Msg("snapshot cache write failed")
	}
	return snapshot, nil
}

// Invalidate forwards to the cache and counts the event.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	c.metrics.SnapshotCache.WithLabelValues(metrics.CacheInvalidated).Inc()
	return c.cache.Invalidate(ctx)
}
