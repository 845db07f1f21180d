package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/prometheus"
	"github.com/openlongevity/longmap/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key is absent. Callers compare
// with errors.IsCode(err, errors.CodeNotFound) or directly against this value.
var ErrCacheMiss = errors.New(errors.CodeNotFound, "cache miss")

// Cache is the JSON value cache for expensive analysis results (gap reports,
// keystone rankings, matrix summaries).
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet returns the cached value when present; otherwise it runs the
	// loader, caches its result, and unmarshals it into dest. Concurrent
	// callers for the same key share one loader execution.
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error

	// DeleteByPrefix removes every key under the given prefix and returns
	// the number of deleted keys. The ingest pipeline uses it to invalidate
	// analysis results after new data lands.
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)

	Ping(ctx context.Context) error
}

// Options tune cache behaviour; zero values fall back to sane defaults.
type Options struct {
	// KeyPrefix namespaces every key; defaults to "longmap:".
	KeyPrefix string
	// DefaultTTL applies when Set or GetOrSet receive a zero TTL; defaults
	// to 15 minutes.
	DefaultTTL time.Duration
	// Metrics records lookup outcomes when set.
	Metrics *prometheus.Metrics
}

type resultCache struct {
	rdb     *redis.Client
	logger  logging.Logger
	metrics *prometheus.Metrics
	prefix  string
	ttl     time.Duration
	group   singleflight.Group
}

// NewCache wraps a connected client in the JSON result cache.
func NewCache(rdb *redis.Client, logger logging.Logger, opts Options) Cache {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "longmap:"
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 15 * time.Minute
	}
	return &resultCache{
		rdb:     rdb,
		logger:  logger.Named("cache"),
		metrics: opts.Metrics,
		prefix:  opts.KeyPrefix,
		ttl:     opts.DefaultTTL,
	}
}

func (c *resultCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.CacheRequestsTotal.WithLabelValues(result).Inc()
	}
}

func (c *resultCache) fullKey(key string) string { return c.prefix + key }

// jitterTTL spreads expiry by up to +/-10% so invalidation storms from
// batch-cached results don't land on the same second.
func (c *resultCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.ttl
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

func (c *resultCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.rdb.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		c.observe("miss")
		return ErrCacheMiss
	}
	if err != nil {
		c.observe("error")
		return errors.Wrap(err, errors.CodeCacheError, "failed to read from cache")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.observe("error")
		return errors.Wrap(err, errors.CodeSerialization, "failed to decode cached value")
	}
	c.observe("hit")
	return nil
}

func (c *resultCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to encode value for cache")
	}
	if err := c.rdb.Set(ctx, c.fullKey(key), data, c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "failed to write to cache")
	}
	return nil
}

func (c *resultCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "failed to delete cache keys")
	}
	return nil
}

func (c *resultCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.fullKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeCacheError, "failed to check cache key")
	}
	return n > 0, nil
}

func (c *resultCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if err != ErrCacheMiss {
		// A broken cache must not take the read path down; load directly.
		c.logger.Warn("cache read failed, loading directly", logging.String("key", key), logging.Err(err))
	}

	data, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		encoded, marshalErr := json.Marshal(v)
		if marshalErr != nil {
			return nil, errors.Wrap(marshalErr, errors.CodeSerialization, "failed to encode loaded value")
		}
		if setErr := c.rdb.Set(ctx, c.fullKey(key), encoded, c.jitterTTL(ttl)).Err(); setErr != nil {
			c.logger.Warn("failed to populate cache", logging.String("key", key), logging.Err(setErr))
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data.([]byte), dest); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to decode loaded value")
	}
	return nil
}

func (c *resultCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	pattern := c.fullKey(prefix) + "*"

	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := flush(); err != nil {
				return deleted, errors.Wrap(err, errors.CodeCacheError, "failed to delete cache keys by prefix")
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, errors.Wrap(err, errors.CodeCacheError, "failed to scan cache keys")
	}
	if err := flush(); err != nil {
		return deleted, errors.Wrap(err, errors.CodeCacheError, "failed to delete cache keys by prefix")
	}
	return deleted, nil
}

func (c *resultCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "redis ping failed")
	}
	return nil
}
