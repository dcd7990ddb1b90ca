package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
)

func TestKeyedLimiter_Basic(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "chat", Burst: 1, RefillRate: 0.001})

	// First update allowed
	if !kl.Allow(1001) {
		t.Error("chat 1001 first update denied")
	}
	// Second update denied (Burst 1)
	if kl.Allow(1001) {
		t.Error("chat 1001 second update allowed (should limit)")
	}
	// Different chat allowed
	if !kl.Allow(1002) {
		t.Error("chat 1002 first update denied")
	}
	// Zero key is never limited
	for range 3 {
		if !kl.Allow(0) {
			t.Error("zero key limited")
		}
	}
}

func TestKeyedLimiter_DropMetric(t *testing.T) {
	t.Parallel()
	m := metrics.New(prometheus.NewRegistry())
	kl := NewKeyedLimiter(KeyedConfig{Name: "chat", Burst: 1, RefillRate: 0.001, Metrics: m})

	kl.Allow(7)
	kl.Allow(7)
	kl.Allow(7)

	if got := testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("chat")); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}
}

func TestKeyedLimiter_Prune(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "prune", Burst: 2, RefillRate: 0.001})

	kl.Allow(1)
	_ = kl.Available(2) // reading does not create an entry
	if count := kl.ActiveCount(); count != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", count)
	}

	// Bucket of chat 1 is not full yet
	if removed := kl.Prune(); removed != 0 {
		t.Errorf("Prune() = %d, want 0", removed)
	}

	clock := newFakeClock()
	refill := NewKeyedLimiter(KeyedConfig{Name: "prune_refill", Burst: 1, RefillRate: 1})
	refill.now = clock.Now
	refill.Allow(1)
	refill.Allow(2)
	if removed := refill.Prune(); removed != 0 {
		t.Errorf("Prune() = %d, want 0 before refill", removed)
	}

	clock.Add(time.Second)
	if removed := refill.Prune(); removed != 2 {
		t.Errorf("Prune() = %d, want 2 after refill", removed)
	}
	if count := refill.ActiveCount(); count != 0 {
		t.Errorf("ActiveCount() = %d, want 0 after prune", count)
	}
}

func TestKeyedLimiter_ThreadSafety(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "concurrency_test", Burst: 1000, RefillRate: 1})

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Go(func() {
			key := int64(i % 10) // 10 distinct keys, 0 unlimited
			kl.Allow(key)
			kl.Available(key)
		})
	}
	wg.Go(func() { kl.Prune() })
	wg.Wait()
}

func TestKeyedLimiter_Available(t *testing.T) {
	t.Parallel()
	kl := NewKeyedLimiter(KeyedConfig{Name: "avail", Burst: 10, RefillRate: 1})

	if v := kl.Available(42); v != 10 {
		t.Errorf("new key available = %f, want 10", v)
	}

	kl.Allow(43)
	if v := kl.Available(43); v >= 10 {
		t.Errorf("used key available = %f, want < 10", v)
	}
}
