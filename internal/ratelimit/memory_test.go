package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newLimiter(t *testing.T, rate float64, burst int) *MemoryLimiter {
	t.Helper()
	m := NewMemoryLimiter(rate, burst)
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close error: %v", err)
		}
	})
	return m
}

func TestMemoryLimiterBurstThenDeny(t *testing.T) {
	m := newLimiter(t, 10, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "analyze:203.0.113.7")
		if err != nil {
			t.Fatalf("Allow error on request %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}

	ok, err := m.Allow(ctx, "analyze:203.0.113.7")
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if ok {
		t.Fatal("request past the burst should be denied")
	}
}

func TestMemoryLimiterRefillsOverTime(t *testing.T) {
	// 1000 tokens/s is one per millisecond, so a short sleep after
	// exhausting burst=2 refills at least one token.
	m := newLimiter(t, 1000, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = m.Allow(ctx, "analyze:203.0.113.7")
	}
	if ok, _ := m.Allow(ctx, "analyze:203.0.113.7"); ok {
		t.Fatal("bucket should be empty right after the burst")
	}

	time.Sleep(5 * time.Millisecond)

	ok, err := m.Allow(ctx, "analyze:203.0.113.7")
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if !ok {
		t.Fatal("token should have refilled after waiting")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	// The server keys buckets by endpoint and client address; exhausting
	// one client's analyze budget must not touch another's, nor the same
	// client's save budget.
	m := newLimiter(t, 10, 1)
	ctx := context.Background()

	if ok, _ := m.Allow(ctx, "analyze:203.0.113.7"); !ok {
		t.Fatal("first analyze request should be allowed")
	}
	if ok, _ := m.Allow(ctx, "analyze:203.0.113.7"); ok {
		t.Fatal("second analyze request should be denied")
	}
	if ok, _ := m.Allow(ctx, "analyze:198.51.100.2"); !ok {
		t.Fatal("a different client's bucket should be untouched")
	}
	if ok, _ := m.Allow(ctx, "save:203.0.113.7"); !ok {
		t.Fatal("the same client's save bucket should be untouched")
	}
}

func TestMemoryLimiterConcurrentAllow(t *testing.T) {
	m := newLimiter(t, 100, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make([]int, 10)
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				ok, err := m.Allow(ctx, "analyze:203.0.113.7")
				if err != nil {
					t.Errorf("goroutine %d: Allow error: %v", idx, err)
					return
				}
				if ok {
					allowed[idx]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, c := range allowed {
		total += c
	}
	// 100 requests against burst 50 inside one burst window.
	if total < 1 || total > 50 {
		t.Fatalf("allowed %d requests, want between 1 and 50", total)
	}
}

func TestMemoryLimiterRefillCapsAtBurst(t *testing.T) {
	m := newLimiter(t, 1000, 3)
	ctx := context.Background()

	_, _ = m.Allow(ctx, "analyze:203.0.113.7")

	// Backdate so the refill computation would overflow the capacity.
	m.mu.Lock()
	m.buckets["analyze:203.0.113.7"].last = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	for i := 0; i < 3; i++ {
		if ok, _ := m.Allow(ctx, "analyze:203.0.113.7"); !ok {
			t.Fatalf("request %d after long idle should be allowed", i)
		}
	}
	if ok, _ := m.Allow(ctx, "analyze:203.0.113.7"); ok {
		t.Fatal("idle time must not grow the bucket past burst")
	}
}

func TestMemoryLimiterEviction(t *testing.T) {
	m := newLimiter(t, 10, 5)
	ctx := context.Background()

	_, _ = m.Allow(ctx, "analyze:203.0.113.7")
	_, _ = m.Allow(ctx, "save:198.51.100.2")

	m.mu.Lock()
	m.buckets["analyze:203.0.113.7"].last = time.Now().Add(-15 * time.Minute)
	m.mu.Unlock()

	m.evictStale()

	m.mu.Lock()
	_, stale := m.buckets["analyze:203.0.113.7"]
	_, recent := m.buckets["save:198.51.100.2"]
	m.mu.Unlock()

	if stale {
		t.Error("idle bucket should have been evicted")
	}
	if !recent {
		t.Error("recently used bucket should survive eviction")
	}
}

func TestMemoryLimiterCloseIsIdempotent(t *testing.T) {
	m := NewMemoryLimiter(10, 5)
	if err := m.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestNoopLimiterAlwaysAllows(t *testing.T) {
	var l NoopLimiter
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(ctx, fmt.Sprintf("analyze:client-%d", i))
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if !ok {
			t.Fatal("NoopLimiter must always allow")
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}
