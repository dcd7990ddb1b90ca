package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for name, ddl := range map[string]string{
		"sessions":       sessionsDDL,
		"idempotency":    idempotencyDDL,
		"contact_clicks": contactClicksDDL,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create %s table: %w", name, err)
		}
	}
	return nil
}

const sessionsDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	chat_id INTEGER PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

const idempotencyDDL = `
CREATE TABLE IF NOT EXISTS idempotency (
	chat_id INTEGER NOT NULL,
	signature TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (chat_id, signature)
);
CREATE INDEX IF NOT EXISTS idx_idempotency_created_at ON idempotency(created_at);
`

const contactClicksDDL = `
CREATE TABLE IF NOT EXISTS contact_clicks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT,
	username TEXT,
	teacher_id TEXT,
	destination TEXT NOT NULL,
	ip TEXT,
	clicked_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contact_clicks_teacher ON contact_clicks(teacher_id);
`
