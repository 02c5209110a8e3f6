package database

import (
	"context"
	"time"

	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// UpsertGoogleConnection stores or refreshes a Google OAuth connection.
func (db *DB) UpsertGoogleConnection(ctx context.Context, c *models.GoogleConnection) error {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO google_connections
			(user_id, account_email, access_token, refresh_token, token_expiry, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, account_email) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry`,
		c.UserID, c.AccountEmail, c.AccessToken, c.RefreshToken, c.TokenExpiry, now)
	return err
}

// GetGoogleConnections returns all Google connections for a user.
func (db *DB) GetGoogleConnections(ctx context.Context, userID string) ([]models.GoogleConnection, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT user_id, account_email, access_token, refresh_token, token_expiry, created_at
		FROM google_connections
		WHERE user_id = ?
		ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []models.GoogleConnection
	for rows.Next() {
		var c models.GoogleConnection
		if err := rows.Scan(&c.UserID, &c.AccountEmail, &c.AccessToken,
			&c.RefreshToken, &c.TokenExpiry, &c.CreatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// ListGoogleConnectedUsers returns the ids of users with at least one
// Google connection.
func (db *DB) ListGoogleConnectedUsers(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM google_connections ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// DeleteGoogleConnections removes all Google connections for a user and
// returns the number of rows removed.
func (db *DB) DeleteGoogleConnections(ctx context.Context, userID string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM google_connections WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
