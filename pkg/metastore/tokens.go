package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertToken registers a client bearer token valid until expiresAt.
// Re-inserting an existing token moves its expiry.
func InsertToken(ctx context.Context, db *DB, token, clientID string, expiresAt time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if token == "" {
		return errors.New("token is required")
	}

	_, err := db.exec(ctx,
		`INSERT INTO client_token (token, client_id, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET
		   client_id = excluded.client_id,
		   expires_at = excluded.expires_at`,
		token, clientID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert client_token: %w", err)
	}
	return nil
}

// ValidateToken reports whether a bearer token exists and has not expired.
func ValidateToken(ctx context.Context, db *DB, token string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var expiresRaw any
	err := db.queryRow(ctx,
		`SELECT expires_at FROM client_token WHERE token = ?`, token).Scan(&expiresRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up client_token: %w", err)
	}

	expires, err := parseDBTime(expiresRaw)
	if err != nil {
		return false, fmt.Errorf("parse expires_at: %w", err)
	}
	return expires.After(time.Now().UTC()), nil
}

// PurgeExpiredTokens deletes tokens past their expiry, returning the count removed.
func PurgeExpiredTokens(ctx context.Context, db *DB) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := db.exec(ctx,
		`DELETE FROM client_token WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge client_token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
