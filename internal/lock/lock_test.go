package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"kasturi-ledger/internal/config"
)

func assertExclusive(t *testing.T, l Locker) {
	t.Helper()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), BatchKey("b1"))
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, maxInside)
}

func TestKeyedMutexIsExclusivePerKey(t *testing.T) {
	assertExclusive(t, NewKeyedMutex())
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	r1, err := km.Acquire(context.Background(), WalletKey("a"))
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := km.Acquire(ctx, WalletKey("b"))
	require.NoError(t, err)
	r2()
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	km := NewKeyedMutex()

	release, err := km.Acquire(context.Background(), BatchKey("x"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Acquire(ctx, BatchKey("x"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op

	r, err := km.Acquire(context.Background(), BatchKey("x"))
	require.NoError(t, err)
	r()
	require.Empty(t, km.locks)
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, 5*time.Second), mr
}

func TestRedisLockerIsExclusive(t *testing.T) {
	l, _ := newRedisLocker(t)
	l.retryWait = time.Millisecond
	assertExclusive(t, l)
}

func TestRedisLockerReleaseOnlyOwnLease(t *testing.T) {
	l, mr := newRedisLocker(t)
	key := WalletKey("u1")

	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	// Lease expired and someone else took it: our release must not drop theirs.
	mr.FastForward(6 * time.Second)
	require.False(t, mr.Exists(key))
	require.NoError(t, mr.Set(key, "other-holder"))

	release()
	got, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, "other-holder", got)
}

func TestRedisLockerTimeout(t *testing.T) {
	l, mr := newRedisLocker(t)
	require.NoError(t, mr.Set(BatchKey("busy"), "someone"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err := l.Acquire(ctx, BatchKey("busy"))
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestOpenPicksBackendFromConfig(t *testing.T) {
	ctx := context.Background()

	l, closeFn, err := Open(ctx, config.RedisConfig{})
	require.NoError(t, err)
	require.IsType(t, &KeyedMutex{}, l)
	require.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	l, closeFn, err = Open(ctx, config.RedisConfig{Addr: mr.Addr(), LockTTL: time.Second})
	require.NoError(t, err)
	require.IsType(t, &RedisLocker{}, l)

	release, err := l.Acquire(ctx, WalletKey("uid-1"))
	require.NoError(t, err)
	require.True(t, mr.Exists(WalletKey("uid-1")))
	release()
	require.NoError(t, closeFn())

	mr.Close()
	_, _, err = Open(ctx, config.RedisConfig{Addr: mr.Addr()})
	require.Error(t, err)
}
