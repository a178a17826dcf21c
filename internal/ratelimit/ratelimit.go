// Package ratelimit throttles analysis traffic per client. Running a
// snippet through the interpreter is the expensive path, so the HTTP layer
// buckets requests by endpoint and client address before any code executes.
//
// The default is an in-memory token bucket (MemoryLimiter); embedders can
// supply their own Limiter implementation through the server options.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed. The key is opaque
	// to the limiter; the server builds it from the endpoint and client
	// address (e.g. "analyze:203.0.113.7" or "save:203.0.113.7").
	// An error signals a limiter malfunction; callers treat errors as
	// fail-open and permit the request rather than blocking traffic.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
