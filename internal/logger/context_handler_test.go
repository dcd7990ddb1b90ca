package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/kwportal/igcse-tutor-bot/internal/ctxutil"
)

func TestContextHandler_Handle(t *testing.T) {
	tests := []struct {
		name         string
		setupContext func(context.Context) context.Context
		want         []string
		absent       []string
	}{
		{
			name: "extracts all context values",
			setupContext: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithUserID(ctx, 12345)
				ctx = ctxutil.WithChatID(ctx, 67890)
				return ctxutil.WithRequestID(ctx, "req-abc-123")
			},
			want: []string{`"user_id":12345`, `"chat_id":67890`, `"request_id":"req-abc-123"`},
		},
		{
			name: "skips zero ids",
			setupContext: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithUserID(ctx, 0)
				return ctxutil.WithChatID(ctx, 555)
			},
			want:   []string{`"chat_id":555`},
			absent: []string{`"user_id"`},
		},
		{
			name:         "handles empty context",
			setupContext: func(ctx context.Context) context.Context { return ctx },
			absent:       []string{`"user_id"`, `"chat_id"`, `"request_id"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewContextHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			slog.New(handler).InfoContext(tt.setupContext(context.Background()), "test message")

			output := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(output, s) {
					t.Errorf("expected %s in output: %s", s, output)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(output, s) {
					t.Errorf("unexpected %s in output: %s", s, output)
				}
			}
		})
	}
}

func TestContextHandler_Enabled(t *testing.T) {
	handler := NewContextHandler(slog.NewJSONHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	tests := []struct {
		level    slog.Level
		expected bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, true},
		{slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := handler.Enabled(context.Background(), tt.level); got != tt.expected {
				t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func TestContextHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewContextHandler(slog.NewJSONHandler(&buf, nil))

	log := slog.New(handler.WithAttrs([]slog.Attr{slog.String("service", "tutor-bot")}).WithGroup("match"))
	log.Info("ranked", "count", 3)

	output := buf.String()
	if !strings.Contains(output, `"service":"tutor-bot"`) {
		t.Errorf("expected service attribute in output: %s", output)
	}
	if !strings.Contains(output, `"match":{"count":3}`) {
		t.Errorf("expected grouped count in output: %s", output)
	}
}
