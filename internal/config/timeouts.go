// Timeout constants shared by the server and its outbound clients.
//
// Telegram redelivers an update when the webhook does not answer in time, so
// every outbound call made while handling an update is bounded well below the
// webhook budget.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing bounds the handling of one update, including every
	// outbound Bot API call it makes. A final result set sends up to five
	// messages, each bounded by TelegramRequest.
	WebhookProcessing = 50 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout. Update payloads are small.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite must cover WebhookProcessing plus serialization.
	WebhookHTTPWrite = 55 * time.Second

	// WebhookHTTPIdle is the keep-alive idle timeout.
	WebhookHTTPIdle = 120 * time.Second
)

// Outbound timeouts
const (
	// TelegramRequest bounds a single Bot API call.
	TelegramRequest = 10 * time.Second

	// AnalyticsPush bounds the best-effort click analytics POST.
	AnalyticsPush = 4 * time.Second

	// CatalogFetch bounds downloading the catalog object from R2.
	CatalogFetch = 30 * time.Second
)

// Storage
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 5 * time.Second

	// DatabaseConnMaxLifetime recycles pooled connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Conversation
const (
	// IdempotencyWindow is how long a completed result signature suppresses
	// repeats for the same chat.
	IdempotencyWindow = 300 * time.Second

	// SessionIdleTTL is how long an untouched session is kept before pruning.
	// Button payloads still carry enough state to continue after that.
	SessionIdleTTL = 24 * time.Hour
)

// ReadinessCheckTimeout bounds the storage ping behind /readyz.
const ReadinessCheckTimeout = 3 * time.Second

// GracefulShutdown allows in-flight updates to finish before exit.
const GracefulShutdown = 30 * time.Second
