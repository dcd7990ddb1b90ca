package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_FileSystemDatabase(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "portal.db")
	ctx := context.Background()

	db, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, db.PutSession(ctx, 42, []byte(`{"stage":"flow"}`)))
	require.NoError(t, db.Close())

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file created")

	db, err = New(ctx, dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	data, err := db.GetSession(ctx, 42)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"flow"}`, string(data), "sessions survive reopen")
	assert.Equal(t, dbPath, db.Path())
}

func TestSessions(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	data, err := db.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, db.PutSession(ctx, 1, []byte(`{"a":1}`)))
	require.NoError(t, db.PutSession(ctx, 1, []byte(`{"a":2}`)))
	require.NoError(t, db.PutSession(ctx, 2, []byte(`{}`)))

	data, err = db.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	n, err := db.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.DeleteSession(ctx, 1))
	require.NoError(t, db.DeleteSession(ctx, 1))
	data, err = db.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, data)

	pruned, err := db.DeleteSessionsBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)
}

func TestClaimSignature(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	ttl := 300 * time.Second

	ok, err := db.ClaimSignature(ctx, 7, "FINAL|1|Cambridge|9|Math", now, ttl)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.ClaimSignature(ctx, 7, "FINAL|1|Cambridge|9|Math", now.Add(time.Minute), ttl)
	require.NoError(t, err)
	assert.False(t, ok, "repeat within the window")

	ok, err = db.ClaimSignature(ctx, 8, "FINAL|1|Cambridge|9|Math", now, ttl)
	require.NoError(t, err)
	assert.True(t, ok, "signatures are per chat")

	ok, err = db.ClaimSignature(ctx, 7, "FINAL|1|Cambridge|9|Math", now.Add(ttl), ttl)
	require.NoError(t, err)
	assert.True(t, ok, "claim again once the window has passed")

	pruned, err := db.DeleteSignaturesBefore(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)
}

func TestClicks(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for range 2 {
		require.NoError(t, db.RecordClick(ctx, Click{
			UserID:      "100",
			Username:    "parent",
			TeacherID:   "t-sara-math",
			Destination: "https://wa.me/96550001001",
			IP:          "203.0.113.9",
			ClickedAt:   time.Now(),
		}))
	}

	n, err := db.CountClicks(ctx, "t-sara-math")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.CountClicks(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}
