package reminders

import (
	"context"
	"time"

	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// ReminderStore provides access to event reminders for the poller.
type ReminderStore interface {
	// GetDueReminders returns untriggered, undismissed reminders whose
	// reminder time has been reached.
	GetDueReminders(ctx context.Context, now time.Time) ([]models.EventReminder, error)

	// TryMarkTriggered atomically advances a reminder to triggered and
	// stores its rendered message. Returns false when another poller
	// already won the transition.
	TryMarkTriggered(ctx context.Context, id string, now time.Time, message string) (bool, error)

	// DeleteOldReminders removes dismissed reminders older than the
	// retention window.
	DeleteOldReminders(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PreferenceStore provides access to per-user reminder preferences.
type PreferenceStore interface {
	// GetPreferences returns reminder preferences for a user, defaults
	// when none are stored.
	GetPreferences(ctx context.Context, userID string) (*models.ReminderPreferences, error)
}

// Notification is the payload handed to the notifier when a reminder fires.
type Notification struct {
	ReminderID string
	UserID     string
	Message    string
	Visual     bool
	Spoken     bool
}

// Notifier delivers a triggered reminder to the user's device.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
