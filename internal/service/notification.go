package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"homelet/internal/domain"
	"homelet/internal/redis"
	"homelet/internal/repository"
)

// Event names published on a user's private channel.
const (
	EventPaymentSuccessful = "payment_successful"
	EventPaymentFailed     = "payment_failed"
)

// NotificationService fans out payment events after a terminal transition:
// a real-time publish to the user's channel, and for successful payments a
// queued confirmation email. All of it is best-effort; a delivery failure is
// logged and never blocks the transition or the webhook response.
type NotificationService struct {
	publisher redis.PublisherInterface
	queue     redis.EmailQueueInterface
	userRepo  repository.UserRepository
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher redis.PublisherInterface, queue redis.EmailQueueInterface, userRepo repository.UserRepository) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		queue:     queue,
		userRepo:  userRepo,
	}
}

// PaymentSucceeded publishes the success event and queues the confirmation
// email.
func (s *NotificationService) PaymentSucceeded(ctx context.Context, tx *domain.Transaction) {
	s.publish(ctx, tx, EventPaymentSuccessful, "Your payment was successful!")
	s.queueConfirmationEmail(ctx, tx)
}

// PaymentFailed publishes the failure event. No email is sent for failures.
func (s *NotificationService) PaymentFailed(ctx context.Context, tx *domain.Transaction) {
	s.publish(ctx, tx, EventPaymentFailed, "Your payment failed. Please try again.")
}

func (s *NotificationService) publish(ctx context.Context, tx *domain.Transaction, event, message string) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, tx.UserID, event, map[string]any{
		"transaction_id": tx.ID,
		"reference":      tx.Reference,
		"amount":         tx.Amount.StringFixed(2),
		"message":        message,
	})
	if err != nil {
		log.Printf("notification: publishing %s for %s: %v", event, tx.Reference, err)
	}
}

func (s *NotificationService) queueConfirmationEmail(ctx context.Context, tx *domain.Transaction) {
	if s.queue == nil {
		return
	}

	user, err := s.userRepo.GetByID(ctx, tx.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("notification: loading user %s for %s: %v", tx.UserID, tx.Reference, err)
		}
		return
	}

	subject, body := ComposeConfirmationEmail(user, tx)
	job := redis.EmailJob{
		To:        user.Email,
		Subject:   subject,
		Body:      body,
		Reference: tx.Reference,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		log.Printf("notification: queueing confirmation email for %s: %v", tx.Reference, err)
	}
}

// ComposeConfirmationEmail renders the payment confirmation email.
func ComposeConfirmationEmail(user *domain.User, tx *domain.Transaction) (subject, body string) {
	subject = fmt.Sprintf("Payment Confirmation - %s", tx.Reference)
	body = fmt.Sprintf(`Hello %s,

Your payment has been received.

Reference: %s
Amount:    %s %s
Date:      %s

Thank you for using HomeLet.
`,
		user.Name,
		tx.Reference,
		tx.Amount.StringFixed(2),
		tx.Currency,
		completedAtString(tx),
	)
	return subject, body
}

func completedAtString(tx *domain.Transaction) string {
	if tx.CompletedAt != nil {
		return tx.CompletedAt.Format("Jan 02, 2006 3:04 PM")
	}
	return tx.UpdatedAt.Format("Jan 02, 2006 3:04 PM")
}
