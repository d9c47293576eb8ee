package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes real-time events to per-user Redis channels. Frontend
// websocket bridges subscribe to these channels to push updates to clients.
type Notifier struct {
	client *redis.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// UserChannel returns the private channel name for a user.
func UserChannel(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// Publish sends an event to a user's private channel. The payload is
// serialized as {"event": ..., "data": ...}.
func (n *Notifier) Publish(ctx context.Context, userID, event string, data map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return err
	}

	return n.client.Publish(ctx, UserChannel(userID), payload).Err()
}
