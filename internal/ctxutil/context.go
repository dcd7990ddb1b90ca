// Package ctxutil carries per-update tracing values through a context.
package ctxutil

import (
	"context"
)

type key int

const (
	keyUser key = iota
	keyChat
	keyRequest
)

// Trace is the set of tracing values attached to a context. Zero fields are
// absent.
type Trace struct {
	UserID    int64
	ChatID    int64
	RequestID string
}

// TraceOf collects every tracing value present on ctx.
func TraceOf(ctx context.Context) Trace {
	var t Trace
	t.UserID, _ = GetUserID(ctx)
	t.ChatID, _ = GetChatID(ctx)
	t.RequestID, _ = GetRequestID(ctx)
	return t
}

func lookup[T comparable](ctx context.Context, k key) (T, bool) {
	var zero T
	v, ok := ctx.Value(k).(T)
	if !ok || v == zero {
		return zero, false
	}
	return v, true
}

// WithUserID records the Telegram user who sent the update.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, keyUser, userID)
}

// GetUserID reports the user id; zero counts as missing.
func GetUserID(ctx context.Context) (int64, bool) {
	return lookup[int64](ctx, keyUser)
}

// WithChatID records the chat the update belongs to. Sessions are keyed by it.
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, keyChat, chatID)
}

// GetChatID reports the chat id; zero counts as missing.
func GetChatID(ctx context.Context) (int64, bool) {
	return lookup[int64](ctx, keyChat)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequest, requestID)
}

// GetRequestID reports the HTTP request id; empty counts as missing.
func GetRequestID(ctx context.Context) (string, bool) {
	return lookup[string](ctx, keyRequest)
}
