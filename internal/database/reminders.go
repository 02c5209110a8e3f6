package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// CreateReminder persists a new event reminder. A user gets at most one
// reminder per external event; a second create for the same event
// returns ErrDuplicateReminder.
//
// Timestamps are stored as UTC. The driver binds time.Time as text with
// its offset, and SQLite compares that text lexically, so mixed offsets
// would break both the due query and ordering.
func (db *DB) CreateReminder(ctx context.Context, r *models.EventReminder) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	var eventEnd *time.Time
	if r.EventEnd != nil {
		utc := r.EventEnd.UTC()
		eventEnd = &utc
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO event_reminders
			(id, user_id, external_event_id, event_title, event_start, event_end,
			 description, location, all_day, reminder_time, minutes_before_event,
			 is_triggered, triggered_at, is_dismissed, dismissed_at, message,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, 0, NULL, '', ?, ?)`,
		r.ID, r.UserID, r.ExternalEventID, r.EventTitle, r.EventStart.UTC(), eventEnd,
		r.Description, r.Location, r.AllDay, r.ReminderTime.UTC(), r.MinutesBeforeEvent,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateReminder
		}
		return err
	}
	return nil
}

// GetReminder returns a reminder by id.
func (db *DB) GetReminder(ctx context.Context, id string) (*models.EventReminder, error) {
	row := db.QueryRowContext(ctx, selectReminder+` WHERE id = ?`, id)
	return scanReminder(row)
}

// ListReminders returns all reminders owned by a user, soonest first.
func (db *DB) ListReminders(ctx context.Context, userID string) ([]models.EventReminder, error) {
	rows, err := db.QueryContext(ctx, selectReminder+`
		WHERE user_id = ?
		ORDER BY reminder_time ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// GetDueReminders returns untriggered, undismissed reminders whose
// reminder time has been reached.
func (db *DB) GetDueReminders(ctx context.Context, now time.Time) ([]models.EventReminder, error) {
	rows, err := db.QueryContext(ctx, selectReminder+`
		WHERE is_triggered = 0 AND is_dismissed = 0 AND reminder_time <= ?
		ORDER BY reminder_time ASC`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// TryMarkTriggered atomically advances a reminder to triggered and stores
// its rendered message. The conditional UPDATE guarantees at most one
// trigger even when concurrent pollers race on the same record: exactly
// one of them sees rows affected.
func (db *DB) TryMarkTriggered(ctx context.Context, id string, now time.Time, message string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE event_reminders
		SET is_triggered = 1, triggered_at = ?, message = ?, updated_at = ?
		WHERE id = ? AND is_triggered = 0 AND is_dismissed = 0`,
		now.UTC(), message, now.UTC(), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DismissReminder advances a reminder to dismissed. Dismissing before the
// reminder has triggered is a precondition violation and returns
// models.ErrNotTriggered; dismissing twice returns models.ErrAlreadyDismissed.
func (db *DB) DismissReminder(ctx context.Context, id, userID string, now time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE event_reminders
		SET is_dismissed = 1, dismissed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND is_triggered = 1 AND is_dismissed = 0`,
		now.UTC(), now.UTC(), id, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// The conditional update matched nothing; read the row to report why.
	r, err := db.GetReminder(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case r.UserID != userID:
		return ErrNotFound
	case r.IsDismissed:
		return models.ErrAlreadyDismissed
	default:
		return models.ErrNotTriggered
	}
}

// HasReminderForEvent reports whether a reminder already exists for the
// given calendar event.
func (db *DB) HasReminderForEvent(ctx context.Context, userID, externalEventID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM event_reminders
		WHERE user_id = ? AND external_event_id = ?`,
		userID, externalEventID).Scan(&count)
	return count > 0, err
}

// DeleteOldReminders removes dismissed reminders older than the retention
// window. Returns the number of deleted rows.
func (db *DB) DeleteOldReminders(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := db.ExecContext(ctx, `
		DELETE FROM event_reminders
		WHERE is_dismissed = 1 AND dismissed_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const selectReminder = `
	SELECT id, user_id, external_event_id, event_title, event_start, event_end,
	       description, location, all_day, reminder_time, minutes_before_event,
	       is_triggered, triggered_at, is_dismissed, dismissed_at, message,
	       created_at, updated_at
	FROM event_reminders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.EventReminder, error) {
	var r models.EventReminder
	var eventEnd, triggeredAt, dismissedAt sql.NullTime
	err := row.Scan(&r.ID, &r.UserID, &r.ExternalEventID, &r.EventTitle,
		&r.EventStart, &eventEnd, &r.Description, &r.Location, &r.AllDay,
		&r.ReminderTime, &r.MinutesBeforeEvent, &r.IsTriggered, &triggeredAt,
		&r.IsDismissed, &dismissedAt, &r.Message, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if eventEnd.Valid {
		r.EventEnd = &eventEnd.Time
	}
	if triggeredAt.Valid {
		r.TriggeredAt = &triggeredAt.Time
	}
	if dismissedAt.Valid {
		r.DismissedAt = &dismissedAt.Time
	}
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]models.EventReminder, error) {
	var reminders []models.EventReminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}
