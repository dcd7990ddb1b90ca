package storage

import (
	"context"
	"fmt"
	"time"
)

// ClaimSignature records signature for chatID unless a record newer than
// now-ttl already exists. It reports whether this call made the claim.
func (db *DB) ClaimSignature(ctx context.Context, chatID int64, signature string, now time.Time, ttl time.Duration) (bool, error) {
	res, err := db.writer.ExecContext(ctx, `
		INSERT INTO idempotency (chat_id, signature, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id, signature) DO UPDATE SET
			created_at = excluded.created_at
		WHERE idempotency.created_at <= ?
	`, chatID, signature, unix(now), unix(now.Add(-ttl)))
	if err != nil {
		return false, fmt.Errorf("claim signature: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim signature: %w", err)
	}
	return n > 0, nil
}

// DeleteSignaturesBefore removes signatures recorded before cutoff.
func (db *DB) DeleteSignaturesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM idempotency WHERE created_at < ?`, unix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune signatures: %w", err)
	}
	return res.RowsAffected()
}
