package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireSweepLock attempts to acquire the reconciliation sweep lock so only
// one instance verifies stale transactions at a time.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "lock:sweep:transactions", "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseSweepLock releases the reconciliation sweep lock.
func (s *LockStore) ReleaseSweepLock(ctx context.Context) error {
	return s.client.Del(ctx, "lock:sweep:transactions").Err()
}

// AcquireReferenceLock locks a single transaction reference while the
// sweeper verifies it, so a concurrent webhook and a sweep do not both call
// the provider for the same row.
func (s *LockStore) AcquireReferenceLock(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:txref:%s", reference)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseReferenceLock releases a per-reference lock.
func (s *LockStore) ReleaseReferenceLock(ctx context.Context, reference string) error {
	key := fmt.Sprintf("lock:txref:%s", reference)
	return s.client.Del(ctx, key).Err()
}
