// Package lock provides per-key locking so that work for one key
// (a game session, a chat) is serialized while other keys run freely.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// keyMutex is a one-slot semaphore with reference counting for cleanup.
// refCount covers both the holder and any waiters.
type keyMutex struct {
	sem      chan struct{}
	refCount int
}

// KeyLock provides one lock per key. Entries are created on demand and
// dropped once nobody holds or waits for them.
type KeyLock[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyMutex
}

// New creates a new KeyLock instance.
func New[K comparable]() *KeyLock[K] {
	return &KeyLock[K]{
		locks: make(map[K]*keyMutex),
	}
}

// acquireRef retrieves or creates the mutex for key and takes a reference.
func (kl *KeyLock[K]) acquireRef(key K) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km, ok := kl.locks[key]
	if !ok {
		km = &keyMutex{sem: make(chan struct{}, 1)}
		kl.locks[key] = km
	}
	km.refCount++
	return km
}

// releaseRef drops a reference and forgets the mutex when it is unused.
func (kl *KeyLock[K]) releaseRef(key K, km *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	km.refCount--
	if km.refCount == 0 {
		delete(kl.locks, key)
	}
}

// Lock acquires the lock for key, blocking until it is available.
func (kl *KeyLock[K]) Lock(key K) {
	km := kl.acquireRef(key)
	km.sem <- struct{}{}
}

// Unlock releases the lock for key. Unlocking a key that is not locked
// is a no-op.
func (kl *KeyLock[K]) Unlock(key K) {
	kl.mu.Lock()
	km, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-km.sem:
		kl.releaseRef(key, km)
	default:
	}
}

// LockContext acquires the lock for key, giving up when ctx is done or
// timeout elapses. A zero timeout waits on ctx alone.
func (kl *KeyLock[K]) LockContext(ctx context.Context, key K, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	km := kl.acquireRef(key)
	select {
	case km.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.releaseRef(key, km)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyLock[K]) WithLock(key K, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the lock for key, with
// context support for cancellation while waiting.
func (kl *KeyLock[K]) WithLockContext(ctx context.Context, key K, timeout time.Duration, fn func() error) error {
	if err := kl.LockContext(ctx, key, timeout); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}
