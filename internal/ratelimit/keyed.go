package ratelimit

import (
	"sync"
	"time"

	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "chat")
	Name string

	Burst      float64 // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// Optional metrics reporter
	Metrics *metrics.Metrics
}

// KeyedLimiter keeps one token bucket per chat. Buckets that have refilled
// completely are dropped by Prune, which the scheduler calls periodically.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[int64]*Limiter
	config  KeyedConfig
	onDrop  func() // Optional callback when request is dropped
	now     func() time.Time
}

// NewKeyedLimiter creates a new per-chat rate limiter.
//
// Example:
//
//	limiter := NewKeyedLimiter(KeyedConfig{
//	    Name:       "chat",
//	    Burst:      20,
//	    RefillRate: 1,
//	})
//
//	if limiter.Allow(chatID) {
//	    // Process update
//	}
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	kl := &KeyedLimiter{
		entries: make(map[int64]*Limiter),
		config:  cfg,
		now:     time.Now,
	}
	if cfg.Metrics != nil {
		kl.onDrop = func() {
			cfg.Metrics.RecordRateLimiterDrop(cfg.Name)
		}
	}
	return kl
}

// Allow takes a token from the chat's bucket. A zero key is never limited.
func (kl *KeyedLimiter) Allow(key int64) bool {
	if key == 0 {
		return true
	}
	if kl.getOrCreate(key).Allow() {
		return true
	}
	if kl.onDrop != nil {
		kl.onDrop()
	}
	return false
}

// getOrCreate returns the bucket for a key, creating it if needed.
func (kl *KeyedLimiter) getOrCreate(key int64) *Limiter {
	kl.mu.RLock()
	l, exists := kl.entries[key]
	kl.mu.RUnlock()

	if exists {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// Double-check after acquiring write lock
	if l, exists = kl.entries[key]; exists {
		return l
	}
	l = newWithClock(kl.config.Burst, kl.config.RefillRate, kl.now)
	kl.entries[key] = l
	return l
}

// Available returns the tokens left for a key, or Burst for unseen keys.
func (kl *KeyedLimiter) Available(key int64) float64 {
	kl.mu.RLock()
	l, exists := kl.entries[key]
	kl.mu.RUnlock()

	if !exists {
		return kl.config.Burst
	}
	return l.Available()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

// Prune forgets every key whose bucket is full and returns how many went.
func (kl *KeyedLimiter) Prune() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	removed := 0
	for key, l := range kl.entries {
		if l.IsFull() {
			delete(kl.entries, key)
			removed++
		}
	}
	return removed
}
