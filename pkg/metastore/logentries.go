package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SeverityRuntime marks failures reported by job runners.
const SeverityRuntime = "Runtime"

// LogEntry records a failure or notable event in the logging table.
type LogEntry struct {
	LoggingID int64
	LoggedAt  time.Time
	Severity  string
	Message   string
}

// CreateLogEntry stores a log entry and returns it with its assigned id.
func CreateLogEntry(ctx context.Context, db *DB, severity, message string) (*LogEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var entry *LogEntry
	err := WithTx(ctx, db, func(tx *Tx) error {
		var err error
		entry, err = createLogEntry(ctx, tx, severity, message)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func createLogEntry(ctx context.Context, tx *Tx, severity, message string) (*LogEntry, error) {
	now := time.Now().UTC()

	var id int64
	err := tx.queryRow(ctx,
		`INSERT INTO logging_entry (logged_at, severity, message)
		 VALUES (?, ?, ?)
		 RETURNING logging_id`,
		now, severity, message).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert logging_entry: %w", err)
	}

	return &LogEntry{LoggingID: id, LoggedAt: now, Severity: severity, Message: message}, nil
}

// GetLogEntry retrieves a log entry by id. Returns ErrNotFound when absent.
func GetLogEntry(ctx context.Context, db *DB, loggingID int64) (*LogEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var entry LogEntry
	var loggedRaw any

	err := db.queryRow(ctx,
		`SELECT logging_id, logged_at, severity, message
		 FROM logging_entry WHERE logging_id = ?`,
		loggingID).Scan(&entry.LoggingID, &loggedRaw, &entry.Severity, &entry.Message)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("log entry %d: %w", loggingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get logging_entry: %w", err)
	}

	logged, err := parseDBTime(loggedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse logged_at: %w", err)
	}
	entry.LoggedAt = logged

	return &entry, nil
}
