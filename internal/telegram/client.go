// Package telegram sends Bot API requests on a best-effort basis.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	domerrors "github.com/kwportal/igcse-tutor-bot/internal/errors"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
	"github.com/kwportal/igcse-tutor-bot/internal/ratelimit"
)

// Call results reported to metrics.
const (
	ResultOK        = "ok"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
	ResultSkipped   = "skipped"
)

// Config configures a Client.
type Config struct {
	Token   string
	Timeout time.Duration
	// Endpoint overrides tgbotapi.APIEndpoint, e.g. for tests.
	Endpoint string
	// RatePerSecond caps outbound calls across all chats; zero disables it.
	RatePerSecond float64
}

// Sender is the outbound surface used by the conversation engine.
type Sender interface {
	Send(ctx context.Context, c tgbotapi.Chattable) error
}

// Client wraps tgbotapi.BotAPI. Without a token every call is skipped.
type Client struct {
	api     *tgbotapi.BotAPI
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New creates a Client. It does not contact Telegram.
func New(cfg Config, m *metrics.Metrics, log *logger.Logger) *Client {
	c := &Client{metrics: m, log: log.WithModule("telegram")}
	if cfg.Token == "" {
		return c
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: cfg.Timeout},
	}
	api.SetAPIEndpoint(endpoint)
	c.api = api
	if cfg.RatePerSecond > 0 {
		c.limiter = ratelimit.New(max(cfg.RatePerSecond, 1), cfg.RatePerSecond)
	}
	return c
}

// Configured reports whether a bot token is set.
func (c *Client) Configured() bool {
	return c.api != nil
}

// Send performs one Bot API call. Failures are logged and counted, then
// returned so the caller can decide to carry on.
func (c *Client) Send(ctx context.Context, ch tgbotapi.Chattable) error {
	method := MethodName(ch)
	if c.api == nil {
		c.record(method, ResultSkipped, 0)
		c.log.DebugContext(ctx, "Telegram call skipped, no bot token", "method", method)
		return domerrors.ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		c.record(method, ResultSkipped, 0)
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.record(method, ResultSkipped, 0)
			return err
		}
	}

	start := time.Now()
	_, err := c.api.Request(ch)
	elapsed := time.Since(start).Seconds()
	if err == nil {
		c.record(method, ResultOK, elapsed)
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if strings.Contains(apiErr.Message, "message is not modified") {
			c.record(method, ResultUnchanged, elapsed)
			return nil
		}
		c.record(method, ResultError, elapsed)
		de := domerrors.NewDeliveryError(method, apiErr.Code, err)
		level := slog.LevelError
		if de.Rejected() {
			level = slog.LevelWarn
		}
		c.log.Log(ctx, level, "Telegram call rejected",
			"method", method,
			"code", apiErr.Code,
			"description", apiErr.Message,
		)
		return de
	}

	c.record(method, ResultError, elapsed)
	c.log.WithError(err).WarnContext(ctx, "Telegram call failed", "method", method)
	return domerrors.NewDeliveryError(method, 0, err)
}

// SetWebhook registers url with Telegram. A non-empty secret is sent as
// secret_token and comes back in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	const method = "setWebhook"
	if c.api == nil {
		return domerrors.ErrNotConfigured
	}
	if _, err := tgbotapi.NewWebhook(url); err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}

	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", []string{"message", "edited_message", "callback_query"}); err != nil {
		return err
	}

	start := time.Now()
	_, err := c.api.MakeRequest(method, params)
	if err != nil {
		c.record(method, ResultError, time.Since(start).Seconds())
		c.log.WithError(err).WarnContext(ctx, "Webhook registration failed")
		return domerrors.NewDeliveryError(method, 0, err)
	}
	c.record(method, ResultOK, time.Since(start).Seconds())
	return nil
}

func (c *Client) record(method, result string, seconds float64) {
	if c.metrics != nil {
		c.metrics.RecordTelegramCall(method, result, seconds)
	}
}

// MethodName returns the Bot API method a request maps to.
func MethodName(ch tgbotapi.Chattable) string {
	switch ch.(type) {
	case tgbotapi.MessageConfig:
		return "sendMessage"
	case tgbotapi.PhotoConfig:
		return "sendPhoto"
	case tgbotapi.EditMessageTextConfig:
		return "editMessageText"
	case tgbotapi.EditMessageReplyMarkupConfig:
		return "editMessageReplyMarkup"
	case tgbotapi.CallbackConfig:
		return "answerCallbackQuery"
	case tgbotapi.WebhookConfig:
		return "setWebhook"
	}
	return "other"
}

type botLogger struct {
	log *logger.Logger
}

func (b botLogger) Println(v ...any) {
	b.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (b botLogger) Printf(format string, v ...any) {
	b.log.Debugf(format, v...)
}

// InstallLogger routes the library's own log lines to log at debug level.
func InstallLogger(log *logger.Logger) error {
	return tgbotapi.SetLogger(botLogger{log: log.WithModule("tgbotapi")})
}
