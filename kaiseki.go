// Package kaiseki is the public API for embedding the Kaiseki code
// analysis server.
//
// Consumers import this package to construct and extend the server
// without forking it:
//
//	app, err := kaiseki.New(
//	    kaiseki.WithVersion(version),
//	    kaiseki.WithLogger(logger),
//	    kaiseki.WithExtraRoutes(myRoutes),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: kaiseki (root)
// imports internal/*, but internal/* never imports kaiseki (root).
// Public types (Analysis, Snippet) are standalone structs with no
// internal imports; conversion helpers live here because this is the
// only file that sees both sides of the boundary.
package kaiseki

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/kaiseki/api"
	"github.com/ashita-ai/kaiseki/internal/config"
	"github.com/ashita-ai/kaiseki/internal/mcp"
	"github.com/ashita-ai/kaiseki/internal/model"
	"github.com/ashita-ai/kaiseki/internal/ratelimit"
	"github.com/ashita-ai/kaiseki/internal/runner"
	"github.com/ashita-ai/kaiseki/internal/server"
	"github.com/ashita-ai/kaiseki/internal/storage"
	"github.com/ashita-ai/kaiseki/internal/telemetry"
	"github.com/ashita-ai/kaiseki/ui"
)

// App is the Kaiseki server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	store        *storage.Store
	runner       *runner.Runner
	srv          *server.Server
	limiter      ratelimit.Limiter
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New initialises the Kaiseki server. It opens the snippet store, runs
// schema migrations, wires all subsystems, and returns a ready-to-run App.
// It does NOT start any goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.savedDir != "" {
		cfg.SavedDir = o.savedDir
	}
	if o.databasePath != "" {
		cfg.DatabasePath = o.databasePath
	}
	if o.execTimeout > 0 {
		cfg.ExecTimeout = o.execTimeout
	}
	if o.stepLimit > 0 {
		cfg.StepLimit = o.stepLimit
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("kaiseki starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, err := storage.Open(cfg.SavedDir, cfg.DatabasePath)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	run := runner.New(cfg.ExecTimeout, cfg.StepLimit, logger)

	mcpSrv := mcp.New(run, store, version, logger)

	var limiter ratelimit.Limiter
	if o.limiter != nil {
		limiter = o.limiter
	} else if cfg.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewMemoryLimiter(float64(cfg.RateLimitPerMinute)/60.0, cfg.RateLimitPerMinute)
	} else {
		limiter = ratelimit.NoopLimiter{}
	}

	uiFS, err := ui.DistFS()
	if err != nil {
		_ = store.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("ui: %w", err)
	}

	srv := server.New(server.ServerConfig{
		Store:               store,
		Runner:              run,
		Logger:              logger,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		UIFS:                uiFS,
		OpenAPISpec:         api.OpenAPISpec,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		ExtraRoutes:         o.routeRegistrars,
		ExtraMiddlewares:    o.middlewares,
	})

	return &App{
		cfg:          cfg,
		store:        store,
		runner:       run,
		srv:          srv,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails. On cancellation it shuts down gracefully with a 10s
// deadline and releases all resources.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)
	a.close()
	return err
}

// Handler returns the root HTTP handler, for embedding Kaiseki under a
// larger mux or in tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// AnalyzeCode runs the full analysis pipeline on a code snippet without
// going through HTTP.
func (a *App) AnalyzeCode(ctx context.Context, code string) Analysis {
	return toPublicAnalysis(a.runner.Analyze(ctx, code))
}

// Snippets returns the most recently saved snippets, newest first.
func (a *App) Snippets(ctx context.Context, limit int) ([]Snippet, error) {
	saved, err := a.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Snippet, len(saved))
	for i, s := range saved {
		out[i] = toPublicSnippet(s)
	}
	return out, nil
}

func (a *App) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
	if err := a.limiter.Close(); err != nil {
		a.logger.Warn("limiter close failed", "error", err)
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
}

func toPublicAnalysis(in model.Analysis) Analysis {
	return Analysis{
		Success:         in.Success,
		Error:           in.Error,
		ExecutionTime:   in.ExecutionTime,
		MemoryUsed:      in.MemoryUsed,
		TimeComplexity:  in.TimeComplexity,
		SpaceComplexity: in.SpaceComplexity,
		Issues:          in.Issues,
		Recommendations: in.Recommendations,
		PerformancePlot: in.PerformancePlot,
		Output:          in.Output,
		ExecutionSteps:  in.ExecutionSteps,
		ASTTree:         in.ASTTree,
		MemoryMap:       in.MemoryMap,
	}
}

func toPublicSnippet(in model.SavedSnippet) Snippet {
	return Snippet{
		ID:          in.ID,
		Filename:    in.Filename,
		Kind:        string(in.Kind),
		SizeBytes:   in.SizeBytes,
		ContentHash: in.ContentHash,
		CreatedAt:   in.CreatedAt,
	}
}
