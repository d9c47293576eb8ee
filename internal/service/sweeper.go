package service

import (
	"context"
	"errors"
	"log"
	"time"

	"homelet/internal/redis"
	"homelet/internal/repository"
)

// ReconcileSweeper resolves transactions the provider never called back
// about. It periodically verifies stale pending transactions directly with
// the gateway and abandons the ones past the abandon age. A Redis lock keeps
// a single instance sweeping at a time.
type ReconcileSweeper struct {
	payments *PaymentService
	txRepo   repository.TransactionRepository
	locks    redis.LockStoreInterface

	interval   time.Duration // time between sweeps
	window     time.Duration // grace period for the webhook to arrive
	abandonAge time.Duration // pending older than this becomes abandoned
	batchSize  int
}

// NewReconcileSweeper creates a new ReconcileSweeper.
func NewReconcileSweeper(
	payments *PaymentService,
	txRepo repository.TransactionRepository,
	locks redis.LockStoreInterface,
	interval, window, abandonAge time.Duration,
	batchSize int,
) *ReconcileSweeper {
	return &ReconcileSweeper{
		payments:   payments,
		txRepo:     txRepo,
		locks:      locks,
		interval:   interval,
		window:     window,
		abandonAge: abandonAge,
		batchSize:  batchSize,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *ReconcileSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one reconciliation pass.
func (s *ReconcileSweeper) Sweep(ctx context.Context) {
	acquired, err := s.locks.AcquireSweepLock(ctx, s.interval)
	if err != nil {
		log.Printf("sweeper: acquiring lock: %v", err)
		return
	}
	if !acquired {
		return // another instance is sweeping
	}
	defer func() {
		if err := s.locks.ReleaseSweepLock(ctx); err != nil {
			log.Printf("sweeper: releasing lock: %v", err)
		}
	}()

	cutoff := time.Now().Add(-s.window)
	stale, err := s.txRepo.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		log.Printf("sweeper: listing stale transactions: %v", err)
		return
	}

	for _, tx := range stale {
		if ctx.Err() != nil {
			return
		}
		s.reconcileOne(ctx, tx.Reference, tx.CreatedAt)
	}
}

func (s *ReconcileSweeper) reconcileOne(ctx context.Context, reference string, createdAt time.Time) {
	// Per-reference lock so a concurrent webhook delivery and the sweeper
	// do not both hit the provider for the same row. The conditional status
	// update still guarantees a single transition either way.
	locked, err := s.locks.AcquireReferenceLock(ctx, reference, time.Minute)
	if err != nil || !locked {
		return
	}
	defer func() { _ = s.locks.ReleaseReferenceLock(ctx, reference) }()

	if time.Since(createdAt) > s.abandonAge {
		abandoned, err := s.payments.Abandon(ctx, reference)
		if err != nil {
			log.Printf("sweeper: abandoning %s: %v", reference, err)
		} else if abandoned {
			log.Printf("sweeper: abandoned %s after %s", reference, s.abandonAge)
		}
		return
	}

	tx, err := s.payments.ReconcileByVerify(ctx, reference)
	if err != nil {
		// Transport failures are retried on the next sweep.
		if !errors.Is(err, ErrGatewayUnavailable) {
			log.Printf("sweeper: verifying %s: %v", reference, err)
		}
		return
	}
	if tx.Status.IsTerminal() {
		log.Printf("sweeper: resolved %s as %s", reference, tx.Status)
	}
}
