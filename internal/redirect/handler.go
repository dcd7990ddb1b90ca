// Package redirect serves the signed contact links: it checks the token,
// logs the click and forwards the parent to WhatsApp.
package redirect

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/kwportal/igcse-tutor-bot/internal/analytics"
	"github.com/kwportal/igcse-tutor-bot/internal/config"
	"github.com/kwportal/igcse-tutor-bot/internal/contact"
	domerrors "github.com/kwportal/igcse-tutor-bot/internal/errors"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
	"github.com/kwportal/igcse-tutor-bot/internal/storage"
)

// Click results recorded in metrics.
const (
	ResultRedirected   = "redirected"
	ResultBadSignature = "bad_signature"
	ResultBadToken     = "bad_token"
)

// ClickRecorder stores clicks. *storage.DB implements it.
type ClickRecorder interface {
	RecordClick(ctx context.Context, c storage.Click) error
}

// Handler serves GET /api/wa?t=<token>&sig=<hex hmac>.
type Handler struct {
	signer       *contact.Signer
	portalNumber string
	banner       bool
	analytics    *analytics.Client
	clicks       ClickRecorder
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	Signer       *contact.Signer
	PortalNumber string // used when a token carries no number
	Mode         string // config.RedirectModeRedirect or config.RedirectModeBanner
	Analytics    *analytics.Client
	Clicks       ClickRecorder // optional
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
}

// NewHandler creates a redirect handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		signer:       cfg.Signer,
		portalNumber: cfg.PortalNumber,
		banner:       cfg.Mode == config.RedirectModeBanner,
		analytics:    cfg.Analytics,
		clicks:       cfg.Clicks,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.WithModule("redirect"),
		now:          time.Now,
	}
}

// Handle is the Gin handler for the redirect endpoint.
func (h *Handler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	tok, err := h.signer.Verify(c.Query("t"), c.Query("sig"))
	switch {
	case errors.Is(err, domerrors.ErrBadSignature):
		h.record(ResultBadSignature)
		h.logger.WarnContext(ctx, "Contact link with bad signature", "client_ip", clientIP(c))
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "bad signature"})
		return
	case err != nil:
		h.record(ResultBadToken)
		h.logger.WithError(err).InfoContext(ctx, "Contact link with bad token")
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad token"})
		return
	}

	number := contact.Digits(tok.WA)
	if number == "" {
		number = h.portalNumber
	}
	target := contact.Link(number, tok.Text)
	ip := clientIP(c)

	if h.analytics != nil {
		h.analytics.PushAsync(ctx, analytics.EventWhatsAppClick, map[string]any{
			"user_id":    tok.UserID,
			"username":   tok.Username,
			"teacher_id": tok.TeacherID,
			"ip":         ip,
		})
	}
	if h.clicks != nil {
		click := storage.Click{
			UserID:      strconv.FormatInt(tok.UserID, 10),
			Username:    tok.Username,
			TeacherID:   tok.TeacherID,
			Destination: number,
			IP:          ip,
			ClickedAt:   h.now(),
		}
		if err := h.clicks.RecordClick(ctx, click); err != nil {
			h.logger.WithError(err).WarnContext(ctx, "Failed to log contact click")
		}
	}
	h.record(ResultRedirected)
	h.logger.InfoContext(ctx, "Contact link opened", "teacher_id", tok.TeacherID, "user_id", tok.UserID)

	if !h.banner {
		c.Redirect(http.StatusFound, target)
		return
	}
	c.Header("Content-Security-Policy", bannerCSP)
	c.Render(http.StatusOK, render.HTML{Template: bannerTemplate, Name: "banner", Data: target})
}

func (h *Handler) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordContactClick(result)
	}
}

// clientIP is the first X-Forwarded-For hop, else the peer address.
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return c.RemoteIP()
}
