package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/kwportal/igcse-tutor-bot/internal/errors"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
)

type collector struct {
	mu      sync.Mutex
	records []map[string]any
	status  int
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	_ = json.NewDecoder(r.Body).Decode(&rec)
	c.mu.Lock()
	c.records = append(c.records, rec)
	status := c.status
	c.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
	}
}

func TestPush(t *testing.T) {
	t.Parallel()

	col := &collector{}
	srv := httptest.NewServer(col)
	t.Cleanup(srv.Close)

	m := metrics.New(prometheus.NewRegistry())
	c := New(srv.URL, "gs-secret", 4*time.Second, m, logger.New("error"))
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	err := c.Push(context.Background(), EventWhatsAppClick, map[string]any{
		"user_id":    int64(1001),
		"username":   "huda",
		"teacher_id": "t-sara-math",
		"ip":         "203.0.113.9",
	})
	require.NoError(t, err)

	require.Len(t, col.records, 1)
	rec := col.records[0]
	assert.Equal(t, "whatsapp_click", rec["event"])
	assert.Equal(t, "gs-secret", rec["_secret"])
	assert.InDelta(t, 1_700_000_000, rec["ts"], 0)
	assert.Equal(t, "t-sara-math", rec["teacher_id"])
	assert.InDelta(t, 1, testutil.ToFloat64(m.AnalyticsPushTotal.WithLabelValues("ok")), 0)
}

func TestPush_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&collector{status: http.StatusInternalServerError})
	t.Cleanup(srv.Close)

	m := metrics.New(prometheus.NewRegistry())
	c := New(srv.URL, "s", time.Second, m, logger.New("error"))
	require.Error(t, c.Push(context.Background(), EventWhatsAppClick, nil))
	assert.InDelta(t, 1, testutil.ToFloat64(m.AnalyticsPushTotal.WithLabelValues("error")), 0)
}

func TestPush_Disabled(t *testing.T) {
	t.Parallel()

	for _, c := range []*Client{
		New("", "secret", time.Second, nil, logger.New("error")),
		New("https://example.invalid", "", time.Second, nil, logger.New("error")),
	} {
		assert.False(t, c.Enabled())
		assert.ErrorIs(t, c.Push(context.Background(), EventWhatsAppClick, nil), domerrors.ErrNotConfigured)
		c.PushAsync(context.Background(), EventWhatsAppClick, nil)
		c.Wait()
	}
}

func TestPushAsync_OutlivesRequestContext(t *testing.T) {
	t.Parallel()

	col := &collector{}
	srv := httptest.NewServer(col)
	t.Cleanup(srv.Close)

	c := New(srv.URL, "s", time.Second, nil, logger.New("error"))
	ctx, cancel := context.WithCancel(context.Background())
	c.PushAsync(ctx, EventWhatsAppClick, map[string]any{"teacher_id": "t1"})
	cancel()
	c.Wait()

	col.mu.Lock()
	defer col.mu.Unlock()
	assert.Len(t, col.records, 1)
}
