// Package analytics forwards click events to an external collection
// webhook (a Google Apps Script endpoint in production).
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	domerrors "github.com/kwportal/igcse-tutor-bot/internal/errors"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
)

// EventWhatsAppClick is sent when a contact link is opened.
const EventWhatsAppClick = "whatsapp_click"

// Client posts events as JSON. It is disabled unless both the URL and the
// shared secret are set.
type Client struct {
	url        string
	secret     string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
	inflight   sync.WaitGroup
}

// New creates a Client.
func New(url, secret string, timeout time.Duration, m *metrics.Metrics, log *logger.Logger) *Client {
	return &Client{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		metrics:    m,
		log:        log.WithModule("analytics"),
		now:        time.Now,
	}
}

// Enabled reports whether events are forwarded.
func (c *Client) Enabled() bool {
	return c.url != "" && c.secret != ""
}

// Push sends one event. The record is fields plus ts, event and _secret.
func (c *Client) Push(ctx context.Context, event string, fields map[string]any) error {
	if !c.Enabled() {
		return domerrors.ErrNotConfigured
	}

	rec := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		rec[k] = v
	}
	rec["ts"] = c.now().Unix()
	rec["event"] = event
	rec["_secret"] = c.secret

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("error")
		return fmt.Errorf("push %s: %w", event, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		c.record("error")
		return fmt.Errorf("push %s: status %d", event, resp.StatusCode)
	}
	c.record("ok")
	return nil
}

// PushAsync sends the event in the background, logging any failure. Wait
// blocks until background pushes finish.
func (c *Client) PushAsync(ctx context.Context, event string, fields map[string]any) {
	if !c.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.inflight.Go(func() {
		if err := c.Push(ctx, event, fields); err != nil {
			c.log.WithError(err).WarnContext(ctx, "Analytics push failed", "event", event)
		}
	})
}

// Wait blocks until every PushAsync call has finished.
func (c *Client) Wait() {
	c.inflight.Wait()
}

func (c *Client) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordAnalyticsPush(result)
	}
}
