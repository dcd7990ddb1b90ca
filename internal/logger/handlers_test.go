package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestMultiHandler_FansOut(t *testing.T) {
	t.Parallel()

	var debugBuf, errorBuf bytes.Buffer
	mh := NewMultiHandler(
		nil,
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if len(mh.handlers) != 2 {
		t.Fatalf("expected nil handler to be dropped, got %d handlers", len(mh.handlers))
	}

	log := slog.New(mh).With("module", "webhook")
	log.Info("info line")
	log.Error("error line")

	if !strings.Contains(debugBuf.String(), "info line") || !strings.Contains(debugBuf.String(), "error line") {
		t.Errorf("debug handler missed records: %q", debugBuf.String())
	}
	if strings.Contains(errorBuf.String(), "info line") {
		t.Errorf("error handler received info record: %q", errorBuf.String())
	}
	if !strings.Contains(errorBuf.String(), `"module":"webhook"`) {
		t.Errorf("attrs not propagated: %q", errorBuf.String())
	}
}

type syncBuffer struct {
	ch chan string
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.ch <- string(p)
	return len(p), nil
}

func TestAsyncHandler_ShipsAndDrains(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{ch: make(chan string, 4)}
	async := NewAsyncHandler(slog.NewJSONHandler(out, nil), AsyncOptions{BufferSize: 4, FlushTimeout: time.Second})

	slog.New(async).Info("shipped")
	if err := async.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	select {
	case line := <-out.ch:
		if !strings.Contains(line, "shipped") {
			t.Errorf("unexpected line %q", line)
		}
	default:
		t.Fatal("record was not shipped before Shutdown returned")
	}

	// Second shutdown is a no-op and records after close are ignored.
	slog.New(async).Info("late")
	if err := async.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() = %v", err)
	}
	if async.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", async.Dropped())
	}
}
