package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kasturi-ledger/internal/config"
	"kasturi-ledger/internal/metrics"
	"kasturi-ledger/pkg/logger"
)

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockTimeout = errors.New("timed out waiting for aggregate lock")

// RedisLocker is a lease lock (SET NX PX) shared by every API replica.
// The lease TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	rdb       redis.UniversalClient
	ttl       time.Duration
	retryWait time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, retryWait: 25 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(l.retryWait):
		}
	}
	metrics.LockWait.Observe(time.Since(start).Seconds())

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release with a fresh context: the request context may already be done.
			rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
				logger.Warnf("release lock %s: %v", key, err)
			}
		})
	}, nil
}

// Open returns the Redis locker when cfg names a server and the in-process
// mutex otherwise. The returned close func releases the Redis client.
func Open(ctx context.Context, cfg config.RedisConfig) (Locker, func() error, error) {
	if !cfg.Enabled() {
		return NewKeyedMutex(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return NewRedisLocker(rdb, cfg.LockTTL), rdb.Close, nil
}
