package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kwportal/igcse-tutor-bot/internal/storage"
)

// Store keeps sessions keyed by chat id.
//
// A Store is not required to keep sessions across a process restart or
// between instances. Callers must treat a missing session as a fresh
// conversation and must be able to continue from the state carried in
// button payloads.
type Store interface {
	// Get returns a copy of the session and whether one exists.
	Get(ctx context.Context, chatID int64) (*Session, bool, error)
	// Put replaces the session.
	Put(ctx context.Context, chatID int64, s *Session) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, chatID int64) error
	// PruneIdle drops sessions not written since cutoff.
	PruneIdle(ctx context.Context, cutoff time.Time) (int, error)
}

// Load returns the chat's session, or a new idle one when none is stored.
func Load(ctx context.Context, st Store, chatID int64) (*Session, error) {
	s, ok, err := st.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return New(), nil
	}
	return s, nil
}

// MemoryStore keeps sessions in process memory. Everything is lost on
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[int64]*Session{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, chatID int64) (*Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *MemoryStore) Put(_ context.Context, chatID int64, s *Session) error {
	c := s.Clone()
	c.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[chatID] = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PruneIdle(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of sessions held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SQLiteStore keeps sessions as JSON documents in the sessions table, so they
// survive a restart of a single instance.
type SQLiteStore struct {
	db *storage.DB
}

// NewSQLiteStore creates a store over db.
func NewSQLiteStore(db *storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, chatID int64) (*Session, bool, error) {
	data, err := s.db.GetSession(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false, fmt.Errorf("decode session %d: %w", chatID, err)
	}
	return &sess, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, chatID int64, sess *Session) error {
	c := *sess
	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(&c)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", chatID, err)
	}
	return s.db.PutSession(ctx, chatID, data)
}

func (s *SQLiteStore) Delete(ctx context.Context, chatID int64) error {
	return s.db.DeleteSession(ctx, chatID)
}

func (s *SQLiteStore) PruneIdle(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.db.DeleteSessionsBefore(ctx, cutoff)
	return int(n), err
}
