// Package ratelimit provides token bucket rate limiters: a single bucket for
// outbound Bot API calls and a keyed set of buckets for inbound chats.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. It is safe for concurrent use.
//
// The bucket holds at most capacity tokens, gains rate tokens per second and
// every admitted request takes one.
type Limiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
	now      func() time.Time
}

// New creates a limiter that starts full.
//
//	// Telegram allows about 30 messages per second per bot
//	limiter := ratelimit.New(30, 30)
func New(capacity, rate float64) *Limiter {
	return newWithClock(capacity, rate, time.Now)
}

func newWithClock(capacity, rate float64, now func() time.Time) *Limiter {
	return &Limiter{
		tokens:   capacity,
		capacity: capacity,
		rate:     rate,
		last:     now(),
		now:      now,
	}
}

// advance credits tokens for the time since the last call. mu must be held.
func (l *Limiter) advance() {
	now := l.now()
	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.tokens = min(l.capacity, l.tokens+elapsed.Seconds()*l.rate)
	}
	l.last = now
}

// take removes one token, or reports how long until one is due.
// A zero rate never refills and reports a negative delay.
func (l *Limiter) take() (ok bool, delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, -1
	}
	return false, time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
}

// Allow takes a token if one is available. It never blocks.
func (l *Limiter) Allow() bool {
	ok, _ := l.take()
	return ok
}

// Wait blocks until it can take a token or ctx is done, in which case it
// returns ctx.Err().
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, delay := l.take()
		if ok {
			return nil
		}
		if delay < 0 {
			<-ctx.Done()
			return ctx.Err()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the current number of tokens.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	return l.tokens
}

// IsFull reports whether the bucket has refilled completely, i.e. its key
// has been idle long enough to forget.
func (l *Limiter) IsFull() bool {
	return l.Available() >= l.capacity
}
