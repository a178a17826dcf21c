package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucket tracks the token balance for one key.
type bucket struct {
	tokens float64
	last   time.Time // last Allow call, also drives eviction
}

// MemoryLimiter is a per-key token bucket held entirely in process memory.
// Tokens refill continuously at the configured rate up to the burst
// capacity; a background goroutine drops keys that have gone quiet so the
// map stays bounded even under address-churning clients.
type MemoryLimiter struct {
	rate  float64 // tokens added per second
	burst float64 // bucket capacity

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryLimiter creates a token bucket limiter allowing rate sustained
// requests per second per key, with bursts up to burst. Call Close to stop
// the eviction goroutine.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go m.evictLoop()
	return m
}

// Allow consumes one token from key's bucket, reporting whether one was
// available. A key never seen before starts with a full bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok {
		m.buckets[key] = &bucket{tokens: m.burst - 1, last: now}
		return true, nil
	}

	b.tokens += now.Sub(b.last).Seconds() * m.rate
	if b.tokens > m.burst {
		b.tokens = m.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// Close stops the eviction goroutine. Safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

const (
	evictEvery = time.Minute
	staleAfter = 10 * time.Minute
)

func (m *MemoryLimiter) evictLoop() {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

// evictStale drops buckets idle past staleAfter. A dropped key simply
// starts over with a full bucket on its next request.
func (m *MemoryLimiter) evictStale() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-staleAfter)
	for key, b := range m.buckets {
		if b.last.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
