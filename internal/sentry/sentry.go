// Package sentry wraps the Sentry Go SDK for error reporting at the
// service boundaries (webhook processing and HTTP panics).
package sentry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/kwportal/igcse-tutor-bot/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN is the project DSN. Empty disables reporting.
	DSN string

	// Environment identifies the deployment (e.g., "production", "staging").
	Environment string

	// Release identifies the application release version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0).
	SampleRate float64

	Debug bool
}

// Initialize sets up the Sentry SDK. An empty DSN leaves Sentry disabled.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	return nil
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureUpdateError reports an error raised while handling a Telegram
// update, tagged with the update kind and the chat/request found in ctx.
func CaptureUpdateError(ctx context.Context, kind string, err error) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		tagScope(ctx, scope)
		scope.SetTag("update_kind", kind)
		hub.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic with the stack captured at recovery.
func CapturePanic(ctx context.Context, kind string, recovered any, stack []byte) {
	if !IsEnabled() {
		return
	}
	hub := hubFrom(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		tagScope(ctx, scope)
		scope.SetTag("update_kind", kind)
		scope.SetExtra("stack", string(stack))
		hub.Recover(recovered)
	})
}

func hubFrom(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

func tagScope(ctx context.Context, scope *sentry.Scope) {
	if chatID, ok := ctxutil.GetChatID(ctx); ok {
		scope.SetTag("chat_id", strconv.FormatInt(chatID, 10))
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok {
		scope.SetTag("request_id", requestID)
	}
}
