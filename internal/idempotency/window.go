// Package idempotency suppresses repeated side effects for the same logical
// event within a time window.
package idempotency

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kwportal/igcse-tutor-bot/internal/storage"
)

// Guard decides whether an event signature may run its side effects.
type Guard interface {
	// Claim reports true the first time signature is seen for chatID within
	// the window and false for every repeat inside it.
	Claim(ctx context.Context, chatID int64, signature string) (bool, error)
	// Prune drops expired signatures.
	Prune(ctx context.Context) (int, error)
}

// CompletionSignature identifies one "show results" event.
func CompletionSignature(messageID int, board string, grade int, subjects []string) string {
	return strings.Join([]string{
		"FINAL",
		strconv.Itoa(messageID),
		board,
		strconv.Itoa(grade),
		strings.Join(subjects, "."),
	}, "|")
}

type entry struct {
	chatID    int64
	signature string
}

// Window is an in-memory Guard.
type Window struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[entry]time.Time
	now  func() time.Time
}

// NewWindow creates a Window that remembers signatures for ttl.
func NewWindow(ttl time.Duration) *Window {
	return &Window{ttl: ttl, seen: map[entry]time.Time{}, now: time.Now}
}

// Claim implements Guard. Expired entries are dropped as they are found.
func (w *Window) Claim(_ context.Context, chatID int64, signature string) (bool, error) {
	key := entry{chatID: chatID, signature: signature}
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	if at, ok := w.seen[key]; ok && now.Sub(at) < w.ttl {
		return false, nil
	}
	w.seen[key] = now
	return true, nil
}

// Prune implements Guard.
func (w *Window) Prune(context.Context) (int, error) {
	cutoff := w.now().Add(-w.ttl)

	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for k, at := range w.seen {
		if !at.After(cutoff) {
			delete(w.seen, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of remembered signatures.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// SQLiteWindow is a Guard backed by the idempotency table, shared by every
// process using the same database file.
type SQLiteWindow struct {
	db  *storage.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteWindow creates a SQLiteWindow.
func NewSQLiteWindow(db *storage.DB, ttl time.Duration) *SQLiteWindow {
	return &SQLiteWindow{db: db, ttl: ttl, now: time.Now}
}

// Claim implements Guard.
func (w *SQLiteWindow) Claim(ctx context.Context, chatID int64, signature string) (bool, error) {
	return w.db.ClaimSignature(ctx, chatID, signature, w.now(), w.ttl)
}

// Prune implements Guard.
func (w *SQLiteWindow) Prune(ctx context.Context) (int, error) {
	n, err := w.db.DeleteSignaturesBefore(ctx, w.now().Add(-w.ttl))
	return int(n), err
}
