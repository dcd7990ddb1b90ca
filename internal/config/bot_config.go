package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Telegram Bot API limits.
const (
	// TelegramMaxCallbackData is the callback_data ceiling in bytes.
	TelegramMaxCallbackData = 64

	// TelegramMaxCaptionLength is the photo caption ceiling in characters.
	TelegramMaxCaptionLength = 1024

	// TelegramMaxMessageLength is the text message ceiling in characters.
	TelegramMaxMessageLength = 4096
)

// BotConfig holds the conversation and webhook processing settings.
type BotConfig struct {
	WebhookTimeout time.Duration
	IdempotencyTTL time.Duration

	// Per-chat token bucket
	UserRateLimitBurst        float64
	UserRateLimitRefillPerSec float64

	// Chat filtering. An empty AllowedChatIDs admits every chat.
	AllowedChatTypes []string
	AllowedChatIDs   []int64
	BlockedChatIDs   []int64

	MatchesPerResult  int // tutors sent per completed request
	MatchesPerSubject int
}

// DefaultBotConfig returns the defaults used when no environment overrides
// are present.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		WebhookTimeout:            WebhookProcessing,
		IdempotencyTTL:            IdempotencyWindow,
		UserRateLimitBurst:        20,
		UserRateLimitRefillPerSec: 1,
		AllowedChatTypes:          []string{"private"},
		MatchesPerResult:          4,
		MatchesPerSubject:         3,
	}
}

// ChatAllowed reports whether updates from the chat should be processed.
func (c BotConfig) ChatAllowed(chatID int64, chatType string) bool {
	if slices.Contains(c.BlockedChatIDs, chatID) {
		return false
	}
	if len(c.AllowedChatIDs) > 0 && !slices.Contains(c.AllowedChatIDs, chatID) {
		return false
	}
	if len(c.AllowedChatTypes) > 0 && chatType != "" && !slices.Contains(c.AllowedChatTypes, chatType) {
		return false
	}
	return true
}

// Validate checks if the configuration is valid.
func (c BotConfig) Validate() error {
	var errs []error
	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", c.WebhookTimeout))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Errorf("idempotency TTL must be positive, got %v", c.IdempotencyTTL))
	}
	if c.UserRateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("user rate limit burst must be positive, got %v", c.UserRateLimitBurst))
	}
	if c.UserRateLimitRefillPerSec <= 0 {
		errs = append(errs, fmt.Errorf("user rate limit refill must be positive, got %v", c.UserRateLimitRefillPerSec))
	}
	if c.MatchesPerResult < 1 {
		errs = append(errs, fmt.Errorf("matches per result must be positive, got %d", c.MatchesPerResult))
	}
	if c.MatchesPerSubject < 1 {
		errs = append(errs, fmt.Errorf("matches per subject must be positive, got %d", c.MatchesPerSubject))
	}
	for _, id := range c.BlockedChatIDs {
		if slices.Contains(c.AllowedChatIDs, id) {
			errs = append(errs, fmt.Errorf("chat %d is both allowed and blocked", id))
		}
	}
	return errors.Join(errs...)
}
