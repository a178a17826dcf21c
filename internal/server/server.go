package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/kaiseki/internal/ratelimit"
	"github.com/ashita-ai/kaiseki/internal/runner"
	"github.com/ashita-ai/kaiseki/internal/storage"
)

// Server is the Kaiseki HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. Optional fields (nil-safe): Limiter, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	Store  *storage.Store
	Runner *runner.Runner
	Logger *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter     ratelimit.Limiter
	MCPServer   *mcpserver.MCPServer
	UIFS        fs.FS  // embedded frontend; nil skips mounting at /
	OpenAPISpec []byte // served at /openapi.yaml when non-empty

	// Extension points for embedders. ExtraRoutes run after the built-in
	// routes are registered; ExtraMiddlewares wrap the whole chain, first
	// entry outermost.
	ExtraRoutes      []func(mux *http.ServeMux)
	ExtraMiddlewares []func(http.Handler) http.Handler

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Runner:              cfg.Runner,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Analysis executes user code, so it gets its own bucket separate
	// from the cheap save/list endpoints.
	analyzeRL := ratelimit.Middleware(cfg.Limiter, "analyze", ratelimit.IPKeyFunc, reqIDFunc)
	saveRL := ratelimit.Middleware(cfg.Limiter, "save", ratelimit.IPKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	mux.Handle("POST /v1/analyze", analyzeRL(http.HandlerFunc(h.HandleAnalyze)))

	mux.Handle("POST /v1/snippets", saveRL(http.HandlerFunc(h.HandleSaveCode)))
	mux.Handle("POST /v1/reports", saveRL(http.HandlerFunc(h.HandleSaveReport)))
	mux.Handle("GET /v1/snippets", http.HandlerFunc(h.HandleListSnippets))
	mux.Handle("GET /v1/snippets/{filename}", http.HandlerFunc(h.HandleGetSnippet))
	mux.Handle("GET /v1/analyses", http.HandlerFunc(h.HandleListAnalyses))

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)

	for _, register := range cfg.ExtraRoutes {
		register(mux)
	}

	// Embedded frontend catch-all. API routes above take priority.
	if cfg.UIFS != nil {
		mux.Handle("/", newSPAHandler(cfg.UIFS))
		cfg.Logger.Info("ui enabled, serving frontend at /")
	}

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)
	for i := len(cfg.ExtraMiddlewares) - 1; i >= 0; i-- {
		handler = cfg.ExtraMiddlewares[i](handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
