// Package redis provides the Redis client and the JSON result cache used by
// the analysis service.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

// NewClient creates a standalone Redis client and verifies connectivity with
// a ping before returning it.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger logging.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, errors.CodeCacheError, "redis is not reachable")
	}

	logger.Info("redis client established",
		logging.String("addr", cfg.Addr),
		logging.Int("db", cfg.DB),
	)
	return rdb, nil
}
