package redis

import (
	"context"
	"time"
)

// PublisherInterface defines the interface for real-time event publishing.
type PublisherInterface interface {
	Publish(ctx context.Context, userID, event string, data map[string]any) error
}

// EmailQueueInterface defines the interface for the email job queue.
type EmailQueueInterface interface {
	Enqueue(ctx context.Context, job EmailJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (*EmailJob, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseSweepLock(ctx context.Context) error
	AcquireReferenceLock(ctx context.Context, reference string, ttl time.Duration) (bool, error)
	ReleaseReferenceLock(ctx context.Context, reference string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PublisherInterface  = (*Notifier)(nil)
	_ EmailQueueInterface = (*EmailQueue)(nil)
	_ LockStoreInterface  = (*LockStore)(nil)
)
