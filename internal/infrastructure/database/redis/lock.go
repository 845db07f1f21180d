package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

// ErrLockNotHeld is returned by Unlock when the lock expired or was taken
// over by another owner.
var ErrLockNotHeld = errors.New(errors.CodeConflict, "lock not held by this owner")

// unlockScript deletes the lock only when the stored token matches, so an
// expired lock re-acquired elsewhere is never released by the old owner.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lock is a single-holder advisory lock. The worker takes one around each
// scheduled pipeline run so overlapping schedules and multiple worker
// replicas cannot run the pipeline concurrently.
type Lock struct {
	rdb    *redis.Client
	logger logging.Logger
	name   string
	token  string
	ttl    time.Duration
}

// NewLock creates a lock handle for the named resource. The TTL bounds how
// long a crashed holder can block others; it should exceed the longest
// expected pipeline run.
func NewLock(rdb *redis.Client, logger logging.Logger, name string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Lock{
		rdb:    rdb,
		logger: logger.Named("lock"),
		name:   "longmap:lock:" + name,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryAcquire attempts to take the lock without blocking. It returns false
// when another holder owns it.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.name, l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CodeCacheError, "failed to acquire lock")
	}
	if ok {
		l.logger.Debug("lock acquired", logging.String("name", l.name))
	}
	return ok, nil
}

// Release frees the lock. Releasing a lock this owner no longer holds
// returns ErrLockNotHeld.
func (l *Lock) Release(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, l.rdb, []string{l.name}, l.token).Int()
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "failed to release lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	l.logger.Debug("lock released", logging.String("name", l.name))
	return nil
}
