package tests

import (
	"context"
	"testing"
	"time"

	"homelet/internal/redis"
	"homelet/internal/service"
)

func testRetryPolicy() service.RetryPolicy {
	return service.RetryPolicy{
		MaxAttempts: 3,
		Base:        time.Millisecond,
		Max:         5 * time.Millisecond,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

// ──────────────────────────────────────────────
// 3. EMAIL DELIVERY WORKER
// ──────────────────────────────────────────────

func TestEmailWorker_DeliversQueuedJob(t *testing.T) {
	t.Parallel()

	queue := NewMockEmailQueue()
	mailer := NewMockMailer()
	worker := service.NewEmailWorker(queue, mailer, testRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	job := redis.EmailJob{
		To:        "ada@example.com",
		Subject:   "Payment Confirmation - HLT-ABC",
		Body:      "Your payment was received.",
		Reference: "HLT-ABC",
	}
	if err := queue.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if !waitFor(t, time.Second, func() bool { return len(mailer.Sent()) == 1 }) {
		t.Fatalf("expected one delivered email, got %d", len(mailer.Sent()))
	}

	sent := mailer.Sent()[0]
	if sent.To != "ada@example.com" {
		t.Errorf("expected delivery to ada@example.com, got %s", sent.To)
	}
	if sent.Subject != "Payment Confirmation - HLT-ABC" {
		t.Errorf("unexpected subject %q", sent.Subject)
	}
}

func TestEmailWorker_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	queue := NewMockEmailQueue()
	mailer := NewMockMailer()
	mailer.FailFirst = 2 // first two sends fail, third succeeds
	worker := service.NewEmailWorker(queue, mailer, testRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	if err := queue.Enqueue(ctx, redis.EmailJob{To: "ada@example.com", Reference: "HLT-RETRY"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if !waitFor(t, time.Second, func() bool { return len(mailer.Sent()) == 1 }) {
		t.Fatalf("expected delivery after retries, got %d sends", len(mailer.Sent()))
	}
	if got := mailer.Attempts(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestEmailWorker_DropsJobAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	queue := NewMockEmailQueue()
	mailer := NewMockMailer()
	mailer.SendError = context.DeadlineExceeded // every send fails
	policy := testRetryPolicy()
	worker := service.NewEmailWorker(queue, mailer, policy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	if err := queue.Enqueue(ctx, redis.EmailJob{To: "ada@example.com", Reference: "HLT-DROP"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if !waitFor(t, time.Second, func() bool { return mailer.Attempts() == policy.MaxAttempts }) {
		t.Fatalf("expected %d attempts, got %d", policy.MaxAttempts, mailer.Attempts())
	}

	// The job must not be requeued after the final attempt.
	time.Sleep(20 * time.Millisecond)
	if got := mailer.Attempts(); got != policy.MaxAttempts {
		t.Errorf("expected attempts to stop at %d, got %d", policy.MaxAttempts, got)
	}
	if len(queue.Jobs()) != 0 {
		t.Errorf("expected an empty queue after drop, got %d jobs", len(queue.Jobs()))
	}
	if len(mailer.Sent()) != 0 {
		t.Errorf("expected no deliveries, got %d", len(mailer.Sent()))
	}
}

func TestRetryPolicy_BackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	policy := service.RetryPolicy{
		MaxAttempts: 10,
		Base:        time.Second,
		Max:         10 * time.Second,
	}

	testCases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 10 * time.Second},  // capped
		{attempt: 40, want: 10 * time.Second}, // shift overflow stays capped
	}

	for _, tc := range testCases {
		if got := policy.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}
