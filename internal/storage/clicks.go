package storage

import (
	"context"
	"fmt"
	"time"
)

// Click is one visit to the contact redirect endpoint.
type Click struct {
	UserID      string
	Username    string
	TeacherID   string
	Destination string
	IP          string
	ClickedAt   time.Time
}

// RecordClick appends a click to the log.
func (db *DB) RecordClick(ctx context.Context, c Click) error {
	_, err := db.writer.ExecContext(ctx, `
		INSERT INTO contact_clicks (user_id, username, teacher_id, destination, ip, clicked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.UserID, c.Username, c.TeacherID, c.Destination, c.IP, unix(c.ClickedAt))
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}

// CountClicks returns how many clicks were logged for teacherID.
func (db *DB) CountClicks(ctx context.Context, teacherID string) (int, error) {
	var n int
	err := db.reader.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contact_clicks WHERE teacher_id = ?`, teacherID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return n, nil
}
