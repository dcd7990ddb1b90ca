// Package webhook receives Telegram updates and hands them to the
// conversation engine.
//
// Telegram redelivers any update that is not answered with 200, so every
// request that passes the secret check is answered {"ok":true} whatever
// happens while processing it.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kwportal/igcse-tutor-bot/internal/config"
	"github.com/kwportal/igcse-tutor-bot/internal/ctxutil"
	"github.com/kwportal/igcse-tutor-bot/internal/flow"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
	"github.com/kwportal/igcse-tutor-bot/internal/ratelimit"
	"github.com/kwportal/igcse-tutor-bot/internal/sentry"
)

// SecretHeader carries the secret_token registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxBodyBytes bounds an update body; real updates are a few KB.
const maxBodyBytes = 1 << 20

// Results recorded per update.
const (
	ResultHandled     = "handled"
	ResultIgnored     = "ignored"
	ResultError       = "error"
	ResultRejected    = "rejected"
	ResultRateLimited = "rate_limited"
)

// Processor applies one update. *flow.Engine implements it.
type Processor interface {
	HandleUpdate(ctx context.Context, u tgbotapi.Update) (flow.Outcome, error)
}

// Handler handles Telegram webhook deliveries.
type Handler struct {
	secret    string
	processor Processor
	limiter   *ratelimit.KeyedLimiter
	bot       config.BotConfig
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	// Secret, when set, must match the SecretHeader of every delivery.
	Secret      string
	Processor   Processor
	UserLimiter *ratelimit.KeyedLimiter // optional
	BotConfig   config.BotConfig
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		secret:    cfg.Secret,
		processor: cfg.Processor,
		limiter:   cfg.UserLimiter,
		bot:       cfg.BotConfig,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.WithModule("webhook"),
	}
}

// Handle is the Gin handler for the webhook endpoint.
func (h *Handler) Handle(c *gin.Context) {
	if h.secret != "" {
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.WarnContext(c.Request.Context(), "Webhook secret mismatch", "client_ip", c.ClientIP())
			h.record(flow.KindOther, ResultRejected, 0)
			c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
			return
		}
	}

	var u tgbotapi.Update
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&u); err != nil {
		h.logger.WithError(err).WarnContext(c.Request.Context(), "Unreadable update body")
		h.record(flow.KindOther, ResultError, 0)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	h.process(c.Request.Context(), u)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// process applies u synchronously. It never panics.
func (h *Handler) process(reqCtx context.Context, u tgbotapi.Update) {
	start := time.Now()
	kind := updateKind(u)
	chat := updateChat(u)

	log := h.logger.WithField("update_id", u.UpdateID).WithField("kind", kind)
	if chat != nil {
		log = log.WithField("chat_id", chat.ID)
	}

	if chat != nil && !h.bot.ChatAllowed(chat.ID, chat.Type) {
		log.DebugContext(reqCtx, "Update from filtered chat", "chat_type", chat.Type)
		h.record(kind, ResultIgnored, time.Since(start).Seconds())
		return
	}
	if chat != nil && h.limiter != nil && !h.limiter.Allow(chat.ID) {
		log.InfoContext(reqCtx, "Update dropped by rate limit")
		h.record(kind, ResultRateLimited, time.Since(start).Seconds())
		return
	}

	// Keep going if Telegram hangs up; the deadline still bounds the work.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), h.bot.WebhookTimeout)
	defer cancel()
	if chat != nil {
		ctx = ctxutil.WithChatID(ctx, chat.ID)
	}
	if _, ok := ctxutil.GetRequestID(ctx); !ok {
		ctx = ctxutil.WithRequestID(ctx, fmt.Sprintf("update-%d", u.UpdateID))
	}

	defer func() {
		if r := recover(); r != nil {
			sentry.CapturePanic(ctx, kind, r, debug.Stack())
			log.WithField("panic", r).ErrorContext(ctx, "Panic while handling update")
			h.record(kind, ResultError, time.Since(start).Seconds())
		}
	}()

	out, err := h.processor.HandleUpdate(ctx, u)
	elapsed := time.Since(start)
	if err != nil {
		sentry.CaptureUpdateError(ctx, kind, err)
		log.WithError(err).ErrorContext(ctx, "Failed to handle update", "action", string(out.Action))
		h.record(kind, ResultError, elapsed.Seconds())
		return
	}

	result := ResultHandled
	if out.Action == flow.ActionIgnored {
		result = ResultIgnored
	}
	h.record(kind, result, elapsed.Seconds())
	log.InfoContext(ctx, "Update processed",
		"action", string(out.Action),
		"delivery_failures", out.DeliveryFailures,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (h *Handler) record(kind, result string, seconds float64) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(kind, result, seconds)
	}
}

func updateKind(u tgbotapi.Update) string {
	switch {
	case u.CallbackQuery != nil:
		return flow.KindCallback
	case u.Message != nil, u.EditedMessage != nil:
		return flow.KindMessage
	}
	return flow.KindOther
}

func updateChat(u tgbotapi.Update) *tgbotapi.Chat {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat
	case u.Message != nil:
		return u.Message.Chat
	case u.EditedMessage != nil:
		return u.EditedMessage.Chat
	}
	return nil
}
