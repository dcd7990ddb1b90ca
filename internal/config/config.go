// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a
// .env file) and validates them before the server starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// Redirect rendering modes
const (
	RedirectModeRedirect = "redirect"
	RedirectModeBanner   = "banner"
)

// DefaultPortalWANumber is the portal's own WhatsApp number, used when a
// contact token carries no destination.
const DefaultPortalWANumber = "96597273411"

var nonDigits = regexp.MustCompile(`\D+`)

// Config holds all application configuration
type Config struct {
	// Telegram
	TelegramBotToken      string
	TelegramWebhookSecret string        // compared with X-Telegram-Bot-Api-Secret-Token when set
	TelegramWebhookURL    string        // registered with setWebhook at startup when set
	TelegramTimeout       time.Duration // per Bot API call
	TelegramRatePerSecond float64       // outbound Bot API calls across all chats

	// Contact links
	WASigningSecret string
	PortalWANumber  string
	PublicBaseURL   string // routes contact links through /api/wa when set
	RedirectMode    string

	// Click analytics (both required to enable)
	AnalyticsWebhook string
	AnalyticsSecret  string
	AnalyticsTimeout time.Duration

	// Catalog
	CatalogPath  string
	CatalogR2Key string
	R2           R2Config

	// Sessions
	SessionBackend string
	DataDir        string
	PruneSchedule  string

	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Observability
	MetricsUsername     string
	MetricsPassword     string // empty disables /metrics auth
	SentryDSN           string
	SentryEnvironment   string
	SentrySampleRate    float64
	BetterStackToken    string
	BetterStackEndpoint string

	Bot BotConfig
}

// R2Config holds the S3-compatible bucket used for the catalog object.
type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Enabled reports whether every R2 field is set.
func (r R2Config) Enabled() bool {
	return r.Endpoint != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.Bucket != ""
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first; a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	bot := DefaultBotConfig()
	bot.WebhookTimeout = getDurationEnv(EnvWebhookTimeout, bot.WebhookTimeout)
	bot.IdempotencyTTL = getDurationEnv(EnvIdempotencyTTL, bot.IdempotencyTTL)
	bot.UserRateLimitBurst = getFloatEnv(EnvUserRateBurst, bot.UserRateLimitBurst)
	bot.UserRateLimitRefillPerSec = getFloatEnv(EnvUserRateRefill, bot.UserRateLimitRefillPerSec)
	bot.AllowedChatTypes = getListEnv(EnvAllowedChatTypes, bot.AllowedChatTypes)
	bot.AllowedChatIDs = getInt64ListEnv(EnvAllowedChatIDs)
	bot.BlockedChatIDs = getInt64ListEnv(EnvBlockedChatIDs)

	cfg := &Config{
		TelegramBotToken:      strings.TrimSpace(getEnv(EnvTelegramBotToken, "")),
		TelegramWebhookSecret: strings.TrimSpace(getEnv(EnvTelegramWebhookSecret, "")),
		TelegramWebhookURL:    getEnv(EnvTelegramWebhookURL, ""),
		TelegramTimeout:       getDurationEnv(EnvTelegramTimeout, TelegramRequest),
		TelegramRatePerSecond: getFloatEnv(EnvTelegramRate, 30),

		WASigningSecret: strings.TrimSpace(getEnv(EnvWASigningSecret, "")),
		PortalWANumber:  NormalizeNumber(getEnv(EnvPortalWANumber, DefaultPortalWANumber), DefaultPortalWANumber),
		PublicBaseURL:   strings.TrimRight(getEnv(EnvPublicBaseURL, ""), "/"),
		RedirectMode:    strings.ToLower(getEnv(EnvRedirectMode, RedirectModeRedirect)),

		AnalyticsWebhook: strings.TrimSpace(getEnv(EnvAnalyticsWebhook, "")),
		AnalyticsSecret:  strings.TrimSpace(getEnv(EnvAnalyticsSecret, "")),
		AnalyticsTimeout: getDurationEnv(EnvAnalyticsTimeout, AnalyticsPush),

		CatalogPath:  getEnv(EnvCatalogPath, "teachers.json"),
		CatalogR2Key: getEnv(EnvCatalogR2Key, ""),
		R2: R2Config{
			Endpoint:        getEnv(EnvR2Endpoint, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			Bucket:          getEnv(EnvR2Bucket, ""),
		},

		SessionBackend: strings.ToLower(getEnv(EnvSessionBackend, SessionBackendMemory)),
		DataDir:        getEnv(EnvDataDir, "./data"),
		PruneSchedule:  getEnv(EnvPruneSchedule, "@every 5m"),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		MetricsUsername:     getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:     getEnv(EnvMetricsPassword, ""),
		SentryDSN:           getEnv(EnvSentryDSN, ""),
		SentryEnvironment:   getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:    getFloatEnv(EnvSentrySampleRate, 1.0),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		Bot: bot,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
// A missing bot token is allowed: the service still answers health checks
// and redirects, and outbound calls are skipped.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.TelegramRatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %v", EnvTelegramRate, c.TelegramRatePerSecond))
	}
	if c.TelegramTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvTelegramTimeout, c.TelegramTimeout))
	}
	if c.AnalyticsTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvAnalyticsTimeout, c.AnalyticsTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendSQLite:
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite session backend", EnvDataDir))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", EnvSessionBackend, SessionBackendMemory, SessionBackendSQLite, c.SessionBackend))
	}
	if c.RedirectMode != RedirectModeRedirect && c.RedirectMode != RedirectModeBanner {
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", EnvRedirectMode, RedirectModeRedirect, RedirectModeBanner, c.RedirectMode))
	}
	if c.CatalogR2Key != "" && !c.R2.Enabled() {
		errs = append(errs, fmt.Errorf("%s requires %s, %s, %s and %s", EnvCatalogR2Key, EnvR2Endpoint, EnvR2AccessKeyID, EnvR2SecretAccessKey, EnvR2Bucket))
	}
	if c.CatalogR2Key == "" && c.CatalogPath == "" {
		errs = append(errs, fmt.Errorf("one of %s or %s is required", EnvCatalogPath, EnvCatalogR2Key))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	return errors.Join(errs...)
}

// HasBotToken reports whether outbound Telegram calls can be made.
func (c *Config) HasBotToken() bool {
	return c.TelegramBotToken != ""
}

// AnalyticsEnabled reports whether click events are pushed.
func (c *Config) AnalyticsEnabled() bool {
	return c.AnalyticsWebhook != "" && c.AnalyticsSecret != ""
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "portal.db")
}

// NormalizeNumber strips everything but digits, falling back when nothing is left.
func NormalizeNumber(raw, fallback string) string {
	if digits := nonDigits.ReplaceAllString(raw, ""); digits != "" {
		return digits
	}
	return fallback
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value.
// Plain integers are read as seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, trimming and lower-casing entries.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getInt64ListEnv parses a comma-separated list of chat IDs, skipping bad entries.
func getInt64ListEnv(key string) []int64 {
	var out []int64
	for _, part := range getListEnv(key, nil) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
