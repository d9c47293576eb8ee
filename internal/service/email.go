package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"time"

	"homelet/internal/redis"
)

// Mailer sends a single email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer is a Mailer over plain SMTP.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates an SMTP mailer. auth may be nil for open relays in
// development.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

// Send delivers one message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}

// RetryPolicy bounds email delivery retries. Attempt n waits Base<<n before
// requeueing, capped at Max.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// Backoff returns the delay before the given attempt (0-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.Base << attempt
	if d > p.Max || d <= 0 {
		return p.Max
	}
	return d
}

// EmailWorker consumes the confirmation email queue outside the webhook's
// request cycle. Delivery failures are retried per the policy and then
// dropped with a log line; they never affect a transaction's terminal state.
type EmailWorker struct {
	queue  redis.EmailQueueInterface
	mailer Mailer
	policy RetryPolicy
}

// NewEmailWorker creates a new EmailWorker.
func NewEmailWorker(queue redis.EmailQueueInterface, mailer Mailer, policy RetryPolicy) *EmailWorker {
	return &EmailWorker{
		queue:  queue,
		mailer: mailer,
		policy: policy,
	}
}

// Run processes jobs until the context is cancelled.
func (w *EmailWorker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, redis.ErrQueueEmpty) || ctx.Err() != nil {
				continue
			}
			log.Printf("email worker: dequeue: %v", err)
			time.Sleep(time.Second)
			continue
		}

		w.process(ctx, job)
	}
}

func (w *EmailWorker) process(ctx context.Context, job *redis.EmailJob) {
	if err := w.mailer.Send(ctx, job.To, job.Subject, job.Body); err == nil {
		log.Printf("email worker: confirmation sent for %s", job.Reference)
		return
	} else if job.Attempt+1 >= w.policy.MaxAttempts {
		log.Printf("email worker: dropping job for %s after %d attempts: %v", job.Reference, job.Attempt+1, err)
		return
	} else {
		log.Printf("email worker: send failed for %s (attempt %d): %v", job.Reference, job.Attempt+1, err)
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.policy.Backoff(job.Attempt)):
	}

	retry := *job
	retry.Attempt++
	if err := w.queue.Enqueue(ctx, retry); err != nil {
		log.Printf("email worker: requeue for %s: %v", job.Reference, err)
	}
}
