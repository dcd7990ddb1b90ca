package logger

import (
	"context"
	"log/slog"

	"github.com/kwportal/igcse-tutor-bot/internal/ctxutil"
)

// ContextHandler decorates records with the user_id, chat_id and request_id
// carried by the logging context, then hands them to the inner handler.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(traceAttrs(ctxutil.TraceOf(ctx))...)
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

func traceAttrs(t ctxutil.Trace) []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	if t.UserID != 0 {
		attrs = append(attrs, slog.Int64(FieldUserID, t.UserID))
	}
	if t.ChatID != 0 {
		attrs = append(attrs, slog.Int64(FieldChatID, t.ChatID))
	}
	if t.RequestID != "" {
		attrs = append(attrs, slog.String(FieldRequestID, t.RequestID))
	}
	return attrs
}
