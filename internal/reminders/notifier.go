package reminders

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisNotifier publishes fired reminders on a per-user Redis channel.
// The web frontend's push gateway subscribes and forwards them to the
// user's open sessions for visual and spoken delivery.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a Redis-backed notifier.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(map[string]any{
		"reminder_id": notification.ReminderID,
		"message":     notification.Message,
		"visual":      notification.Visual,
		"spoken":      notification.Spoken,
	})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, "buddy:notifications:"+notification.UserID, payload).Err()
}

// LogNotifier records fired reminders in the service log. It is the
// fallback when no Redis is configured; the UI still sees triggered
// reminders through the reminders API.
type LogNotifier struct {
	logger *zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.logger.Info().
		Str("reminder_id", notification.ReminderID).
		Str("user_id", notification.UserID).
		Bool("visual", notification.Visual).
		Bool("spoken", notification.Spoken).
		Msg(notification.Message)
	return nil
}
