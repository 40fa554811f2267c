package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisLockPrefix = "wraith:lock:"

// Lease defaults for RedisLocker.
const (
	DefaultLeaseTTL     = 5 * time.Minute
	DefaultLeasePoll    = 50 * time.Millisecond
	leaseReleaseTimeout = 2 * time.Second
)

// releaseScript deletes the lease only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker serialises a session across processes sharing one redis.
// Waiters in the same process queue on a local Locker first, then take a
// SET NX lease that expires after ttl if the holder dies.
type RedisLocker struct {
	rdb    *redis.Client
	local  *Locker
	ttl    time.Duration
	poll   time.Duration
	logger *zap.Logger
}

// NewRedisLocker returns a RedisLocker. Non-positive ttl or poll use the defaults.
func NewRedisLocker(rdb *redis.Client, ttl, poll time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	if poll <= 0 {
		poll = DefaultLeasePoll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{rdb: rdb, local: NewLocker(), ttl: ttl, poll: poll, logger: logger}
}

// Lock takes the local lock for key and then the redis lease.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()
	if err := l.acquire(ctx, redisLockPrefix+key, token); err != nil {
		unlockLocal()
		return nil, err
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), leaseReleaseTimeout)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{redisLockPrefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release session lease", zap.String("session_id", key), zap.Error(err))
		}
		unlockLocal()
	}, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return classify("lock", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// NewKeyLocker returns the locker matching store: a RedisLocker sharing the
// client of a RedisStore, otherwise an in-process Locker.
func NewKeyLocker(store Store, ttl time.Duration, logger *zap.Logger) KeyLocker {
	if rs, ok := store.(*RedisStore); ok {
		return NewRedisLocker(rs.rdb, ttl, 0, logger)
	}
	return NewLocker()
}
