package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSession returns the stored session document for chatID, or nil when
// there is none.
func (db *DB) GetSession(ctx context.Context, chatID int64) ([]byte, error) {
	var data string
	err := db.reader.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE chat_id = ?`, chatID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return []byte(data), nil
}

// PutSession replaces the session document for chatID.
func (db *DB) PutSession(ctx context.Context, chatID int64, data []byte) error {
	_, err := db.writer.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, chatID, string(data), unix(time.Now()))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// DeleteSession removes the session for chatID. Deleting a missing session
// is not an error.
func (db *DB) DeleteSession(ctx context.Context, chatID int64) error {
	if _, err := db.writer.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CountSessions returns the number of stored sessions.
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// DeleteSessionsBefore removes sessions not updated since cutoff.
func (db *DB) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, unix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}
