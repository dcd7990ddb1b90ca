// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookUpdatesTotal    *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Outbound Bot API metrics
	TelegramCallsTotal   *prometheus.CounterVec
	TelegramCallDuration *prometheus.HistogramVec

	// Matching metrics
	MatchResultsTotal    *prometheus.CounterVec
	DuplicatesSuppressed prometheus.Counter
	CatalogTutors        prometheus.Gauge

	// Contact link metrics
	ContactClicksTotal *prometheus.CounterVec
	AnalyticsPushTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WebhookUpdatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_webhook_updates_total",
				Help: "Total number of webhook updates by kind and result",
			},
			[]string{"kind", "result"}, // kind: message, callback, other; result: handled, ignored, error, rejected
		),

		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_webhook_duration_seconds",
				Help:    "Webhook update processing duration in seconds by kind",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		),

		TelegramCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_telegram_calls_total",
				Help: "Total number of Bot API calls by method and result",
			},
			[]string{"method", "result"}, // result: ok, error, skipped
		),

		TelegramCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_telegram_call_duration_seconds",
				Help:    "Bot API call duration in seconds by method",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),

		MatchResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_match_results_total",
				Help: "Total number of match calls by outcome",
			},
			[]string{"outcome"}, // outcome: scored, fallback, empty
		),

		DuplicatesSuppressed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tutorbot_duplicate_results_suppressed_total",
				Help: "Total number of repeated result requests suppressed by the idempotency window",
			},
		),

		CatalogTutors: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tutorbot_catalog_tutors",
				Help: "Number of tutors in the loaded catalog",
			},
		),

		ContactClicksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_contact_clicks_total",
				Help: "Total number of contact redirect requests by result",
			},
			[]string{"result"}, // result: redirected, bad_signature, bad_token
		),

		AnalyticsPushTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_analytics_push_total",
				Help: "Total number of analytics events pushed by result",
			},
			[]string{"result"}, // result: ok, error
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_rate_limiter_dropped_total",
				Help: "Total number of updates dropped by rate limiter",
			},
			[]string{"limiter_type"},
		),
	}
}

// RecordWebhook records one processed update.
func (m *Metrics) RecordWebhook(kind, result string, duration float64) {
	m.WebhookUpdatesTotal.WithLabelValues(kind, result).Inc()
	m.WebhookDurationSeconds.WithLabelValues(kind).Observe(duration)
}

// RecordTelegramCall records one outbound Bot API call.
func (m *Metrics) RecordTelegramCall(method, result string, duration float64) {
	m.TelegramCallsTotal.WithLabelValues(method, result).Inc()
	if result != "skipped" {
		m.TelegramCallDuration.WithLabelValues(method).Observe(duration)
	}
}

// RecordMatch records the outcome of a match call.
func (m *Metrics) RecordMatch(outcome string) {
	m.MatchResultsTotal.WithLabelValues(outcome).Inc()
}

// RecordDuplicate records a suppressed repeat of a completed request.
func (m *Metrics) RecordDuplicate() {
	m.DuplicatesSuppressed.Inc()
}

// SetCatalogSize records the number of tutors loaded.
func (m *Metrics) SetCatalogSize(n int) {
	m.CatalogTutors.Set(float64(n))
}

// RecordContactClick records a redirect endpoint request.
func (m *Metrics) RecordContactClick(result string) {
	m.ContactClicksTotal.WithLabelValues(result).Inc()
}

// RecordAnalyticsPush records a click analytics push.
func (m *Metrics) RecordAnalyticsPush(result string) {
	m.AnalyticsPushTotal.WithLabelValues(result).Inc()
}

// RecordRateLimiterDrop records an update dropped by a rate limiter.
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}
