// Package database provides SQLite-backed persistence for reminder
// preferences, event reminders and Google connections.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the database connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateReminder = errors.New("reminder already exists for event")
)

// NewDB opens the database at path and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and a busy timeout so the poller and the API can share the file.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reminder_preferences (
			user_id TEXT PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT 1,
			default_lead_minutes INTEGER NOT NULL DEFAULT 15,
			notify_visually BOOLEAN NOT NULL DEFAULT 1,
			notify_spoken BOOLEAN NOT NULL DEFAULT 1,
			all_day_event_lead_time TEXT NOT NULL DEFAULT '09:00',
			available_lead_options TEXT NOT NULL DEFAULT '[5,10,15,30,60,1440]',
			use_emojis BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS event_reminders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			external_event_id TEXT NOT NULL,
			event_title TEXT NOT NULL,
			event_start DATETIME NOT NULL,
			event_end DATETIME,
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			all_day BOOLEAN NOT NULL DEFAULT 0,
			reminder_time DATETIME NOT NULL,
			minutes_before_event INTEGER NOT NULL DEFAULT 0,
			is_triggered BOOLEAN NOT NULL DEFAULT 0,
			triggered_at DATETIME,
			is_dismissed BOOLEAN NOT NULL DEFAULT 0,
			dismissed_at DATETIME,
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, external_event_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_reminders_due
			ON event_reminders(reminder_time)
			WHERE is_triggered = 0 AND is_dismissed = 0`,
		`CREATE INDEX IF NOT EXISTS idx_event_reminders_user
			ON event_reminders(user_id)`,
		`CREATE TABLE IF NOT EXISTS google_connections (
			user_id TEXT NOT NULL,
			account_email TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiry DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, account_email)
		)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// PingContext checks database connectivity for readiness probes.
func (db *DB) PingContext(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}
