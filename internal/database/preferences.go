package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// GetPreferences returns reminder preferences for a user.
// If no row exists, defaults are returned rather than ErrNotFound so
// callers never have to special-case first-time users.
func (db *DB) GetPreferences(ctx context.Context, userID string) (*models.ReminderPreferences, error) {
	row := db.QueryRowContext(ctx, `
		SELECT user_id, enabled, default_lead_minutes, notify_visually, notify_spoken,
		       all_day_event_lead_time, available_lead_options, use_emojis,
		       created_at, updated_at
		FROM reminder_preferences
		WHERE user_id = ?`, userID)

	var p models.ReminderPreferences
	var options string
	err := row.Scan(&p.UserID, &p.Enabled, &p.DefaultLeadMinutes, &p.NotifyVisually,
		&p.NotifySpoken, &p.AllDayEventLeadTime, &options, &p.UseEmojis,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DefaultPreferences(userID), nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(options), &p.AvailableLeadOptions); err != nil {
		return nil, fmt.Errorf("decode available_lead_options: %w", err)
	}
	return &p, nil
}

// SavePreferences validates and upserts reminder preferences for a user.
func (db *DB) SavePreferences(ctx context.Context, p *models.ReminderPreferences) error {
	if err := p.Validate(); err != nil {
		return err
	}

	options, err := json.Marshal(p.AvailableLeadOptions)
	if err != nil {
		return fmt.Errorf("encode available_lead_options: %w", err)
	}

	now := time.Now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO reminder_preferences
			(user_id, enabled, default_lead_minutes, notify_visually, notify_spoken,
			 all_day_event_lead_time, available_lead_options, use_emojis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			enabled = excluded.enabled,
			default_lead_minutes = excluded.default_lead_minutes,
			notify_visually = excluded.notify_visually,
			notify_spoken = excluded.notify_spoken,
			all_day_event_lead_time = excluded.all_day_event_lead_time,
			available_lead_options = excluded.available_lead_options,
			use_emojis = excluded.use_emojis,
			updated_at = excluded.updated_at`,
		p.UserID, p.Enabled, p.DefaultLeadMinutes, p.NotifyVisually, p.NotifySpoken,
		p.AllDayEventLeadTime, string(options), p.UseEmojis, now, now)
	return err
}

// ToggleReminders flips the global reminder switch for a user and
// returns the new state.
func (db *DB) ToggleReminders(ctx context.Context, userID string) (bool, error) {
	p, err := db.GetPreferences(ctx, userID)
	if err != nil {
		return false, err
	}

	p.Enabled = !p.Enabled
	if err := db.SavePreferences(ctx, p); err != nil {
		return false, err
	}
	return p.Enabled, nil
}
