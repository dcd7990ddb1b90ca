package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwportal/igcse-tutor-bot/internal/storage"
)

func TestCompletionSignature(t *testing.T) {
	t.Parallel()

	got := CompletionSignature(812, "Cambridge", 9, []string{"Math", "Physics"})
	assert.Equal(t, "FINAL|812|Cambridge|9|Math.Physics", got)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestWindow(t *testing.T) {
	t.Parallel()

	c := &clock{t: time.Unix(1_700_000_000, 0)}
	w := NewWindow(300 * time.Second)
	w.now = c.now
	ctx := context.Background()

	ok, _ := w.Claim(ctx, 1, "sig")
	assert.True(t, ok)
	ok, _ = w.Claim(ctx, 1, "sig")
	assert.False(t, ok)
	ok, _ = w.Claim(ctx, 2, "sig")
	assert.True(t, ok, "scoped per chat")

	c.t = c.t.Add(299 * time.Second)
	ok, _ = w.Claim(ctx, 1, "sig")
	assert.False(t, ok, "still inside the window")

	c.t = c.t.Add(time.Second)
	ok, _ = w.Claim(ctx, 1, "sig")
	assert.True(t, ok, "window elapsed")

	n, err := w.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "chat 2 entry expired")
	assert.Equal(t, 1, w.Len())
}

func TestWindow_ConcurrentClaims(t *testing.T) {
	t.Parallel()

	w := NewWindow(time.Minute)
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			if ok, _ := w.Claim(context.Background(), 9, "FINAL|1|Cambridge|9|Math"); ok {
				wins.Add(1)
			}
		})
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestSQLiteWindow(t *testing.T) {
	t.Parallel()

	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := &clock{t: time.Unix(1_700_000_000, 0)}
	w := NewSQLiteWindow(db, 300*time.Second)
	w.now = c.now
	ctx := context.Background()

	ok, err := w.Claim(ctx, 1, "sig")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = w.Claim(ctx, 1, "sig")
	require.NoError(t, err)
	assert.False(t, ok)

	c.t = c.t.Add(301 * time.Second)
	n, err := w.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err = w.Claim(ctx, 1, "sig")
	require.NoError(t, err)
	assert.True(t, ok)
}
