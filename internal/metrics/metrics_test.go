package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.WebhookUpdatesTotal == nil || m.TelegramCallsTotal == nil || m.MatchResultsTotal == nil {
		t.Fatal("metric vectors not initialized")
	}
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordWebhook("callback", "handled", 0.02)
	m.RecordWebhook("callback", "handled", 0.03)
	m.RecordTelegramCall("sendMessage", "ok", 0.1)
	m.RecordTelegramCall("sendPhoto", "skipped", 0)
	m.RecordMatch("fallback")
	m.RecordDuplicate()
	m.SetCatalogSize(12)
	m.RecordContactClick("redirected")
	m.RecordAnalyticsPush("error")
	m.RecordRateLimiterDrop("chat")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"webhook", testutil.ToFloat64(m.WebhookUpdatesTotal.WithLabelValues("callback", "handled")), 2},
		{"telegram ok", testutil.ToFloat64(m.TelegramCallsTotal.WithLabelValues("sendMessage", "ok")), 1},
		{"telegram skipped", testutil.ToFloat64(m.TelegramCallsTotal.WithLabelValues("sendPhoto", "skipped")), 1},
		{"match", testutil.ToFloat64(m.MatchResultsTotal.WithLabelValues("fallback")), 1},
		{"duplicates", testutil.ToFloat64(m.DuplicatesSuppressed), 1},
		{"catalog", testutil.ToFloat64(m.CatalogTutors), 12},
		{"clicks", testutil.ToFloat64(m.ContactClicksTotal.WithLabelValues("redirected")), 1},
		{"analytics", testutil.ToFloat64(m.AnalyticsPushTotal.WithLabelValues("error")), 1},
		{"rate limiter", testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("chat")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
