// Package lock serialises writers per ledger aggregate so that balance
// checks and the writes they guard happen atomically.
package lock

import (
	"context"
	"sync"
	"time"

	"kasturi-ledger/internal/metrics"
)

// Locker hands out an exclusive lease for key. The returned release func
// must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// BatchKey and WalletKey namespace aggregate ids.
func BatchKey(id string) string  { return "ledger:batch:" + id }
func WalletKey(id string) string { return "ledger:wallet:" + id }

// KeyedMutex is the in-process Locker used when Redis is not configured.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch      chan struct{}
	waiters int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()

	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.waiters++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, e)
		return nil, ctx.Err()
	}
	metrics.LockWait.Observe(time.Since(start).Seconds())

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.drop(key, e)
		})
	}, nil
}

// drop forgets the entry once nobody holds or waits for it.
func (k *KeyedMutex) drop(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.waiters--
	if e.waiters == 0 {
		delete(k.locks, key)
	}
}
