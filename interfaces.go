package kaiseki

import "context"

// Limiter decides whether a request identified by key should be allowed.
// When provided via WithLimiter, replaces the built-in in-memory token
// bucket — a Redis-backed implementation slots in here for multi-instance
// deployments. The method set mirrors the internal rate limiting contract,
// so implementations satisfy both without an adapter.
//
// Implementations must be safe for concurrent use. Errors fail open: a
// malfunctioning limiter permits the request rather than blocking traffic.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// allowAll is the Limiter used by WithRateLimitDisabled.
type allowAll struct{}

func (allowAll) Allow(context.Context, string) (bool, error) { return true, nil }
func (allowAll) Close() error                                { return nil }
