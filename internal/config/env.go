package config

// Environment variable keys. The Telegram, WhatsApp and analytics keys keep
// the names existing deployments already use.
//
//nolint:gosec // Environment variable keys are not credentials.
const (
	// Telegram
	EnvTelegramBotToken      = "TELEGRAM_BOT_TOKEN"
	EnvTelegramWebhookSecret = "TELEGRAM_WEBHOOK_SECRET"
	EnvTelegramWebhookURL    = "TELEGRAM_WEBHOOK_URL"
	EnvTelegramTimeout       = "TELEGRAM_TIMEOUT"
	EnvTelegramRate          = "TELEGRAM_RATE_PER_SECOND"

	// Contact links
	EnvWASigningSecret = "WA_SIGNING_SECRET"
	EnvPortalWANumber  = "PORTAL_WA_NUMBER"
	EnvPublicBaseURL   = "PUBLIC_BASE_URL"
	EnvRedirectMode    = "REDIRECT_MODE"

	// Click analytics
	EnvAnalyticsWebhook = "GS_WEBHOOK"
	EnvAnalyticsSecret  = "GS_SECRET"
	EnvAnalyticsTimeout = "ANALYTICS_TIMEOUT"

	// Chat filtering
	EnvAllowedChatTypes = "ALLOWED_CHAT_TYPES"
	EnvAllowedChatIDs   = "ALLOWED_CHAT_IDS"
	EnvBlockedChatIDs   = "BLOCKED_CHAT_IDS"

	// Catalog
	EnvCatalogPath  = "CATALOG_PATH"
	EnvCatalogR2Key = "CATALOG_R2_KEY"

	// R2 / S3
	EnvR2Endpoint        = "R2_ENDPOINT"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvR2Bucket          = "R2_BUCKET"

	// Sessions and idempotency
	EnvSessionBackend = "SESSION_BACKEND"
	EnvDataDir        = "DATA_DIR"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvPruneSchedule  = "PRUNE_SCHEDULE"

	// Webhook processing
	EnvWebhookTimeout = "WEBHOOK_TIMEOUT"
	EnvUserRateBurst  = "USER_RATE_BURST"
	EnvUserRateRefill = "USER_RATE_REFILL"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// Observability
	EnvMetricsUsername     = "METRICS_USERNAME"
	EnvMetricsPassword     = "METRICS_PASSWORD"
	EnvSentryDSN           = "SENTRY_DSN"
	EnvSentryEnvironment   = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate    = "SENTRY_SAMPLE_RATE"
	EnvBetterStackToken    = "BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "BETTERSTACK_ENDPOINT"
)
