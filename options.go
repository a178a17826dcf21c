package kaiseki

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port            int
	savedDir        string
	databasePath    string
	execTimeout     time.Duration
	stepLimit       int
	logger          *slog.Logger
	version         string
	limiter         Limiter
	routeRegistrars []func(mux *http.ServeMux)
	middlewares     []func(http.Handler) http.Handler
}

// WithPort overrides the TCP port from config (KAISEKI_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithSavedDir overrides the directory saved snippets are written to
// (KAISEKI_SAVED_DIR env var).
func WithSavedDir(dir string) Option {
	return func(o *resolvedOptions) { o.savedDir = dir }
}

// WithDatabasePath overrides the SQLite index path (KAISEKI_DB_PATH env var).
func WithDatabasePath(path string) Option {
	return func(o *resolvedOptions) { o.databasePath = path }
}

// WithExecTimeout overrides the wall-clock limit for analysed snippets
// (KAISEKI_EXEC_TIMEOUT env var).
func WithExecTimeout(d time.Duration) Option {
	return func(o *resolvedOptions) { o.execTimeout = d }
}

// WithStepLimit overrides the interpreter step budget for analysed
// snippets (KAISEKI_STEP_LIMIT env var).
func WithStepLimit(n int) Option {
	return func(o *resolvedOptions) { o.stepLimit = n }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithLimiter replaces the built-in in-memory rate limiter.
func WithLimiter(l Limiter) Option {
	return func(o *resolvedOptions) { o.limiter = l }
}

// WithRateLimitDisabled turns rate limiting off entirely.
func WithRateLimitDisabled() Option {
	return func(o *resolvedOptions) { o.limiter = allowAll{} }
}

// WithExtraRoutes registers additional routes on the shared HTTP mux.
// Extra routes share the request ID, tracing, and logging chain with the
// built-in routes. May be passed multiple times.
func WithExtraRoutes(register func(mux *http.ServeMux)) Option {
	return func(o *resolvedOptions) {
		o.routeRegistrars = append(o.routeRegistrars, register)
	}
}

// WithMiddleware wraps the whole handler chain with mw, outermost first
// across repeated calls.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(o *resolvedOptions) {
		o.middlewares = append(o.middlewares, mw)
	}
}
