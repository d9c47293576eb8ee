package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const emailQueueKey = "queue:email"

// ErrQueueEmpty is returned by Dequeue when no job arrived within the
// blocking window.
var ErrQueueEmpty = errors.New("queue empty")

// EmailJob is a unit of asynchronous email work.
type EmailJob struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Reference string `json:"reference"`
	Attempt   int    `json:"attempt"`
}

// EmailQueue is a Redis-list backed job queue. Producers push from the
// request path; a background worker consumes outside the request cycle.
type EmailQueue struct {
	client *redis.Client
}

// NewEmailQueue creates a new EmailQueue.
func NewEmailQueue(client *redis.Client) *EmailQueue {
	return &EmailQueue{client: client}
}

// Enqueue pushes a job onto the queue.
func (q *EmailQueue) Enqueue(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, emailQueueKey, data).Err()
}

// Dequeue blocks up to timeout waiting for the next job.
func (q *EmailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*EmailJob, error) {
	result, err := q.client.BRPop(ctx, timeout, emailQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}

	// BRPop returns [key, value].
	if len(result) != 2 {
		return nil, ErrQueueEmpty
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
