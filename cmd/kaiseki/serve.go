package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/kaiseki/api"
	"github.com/ashita-ai/kaiseki/internal/config"
	"github.com/ashita-ai/kaiseki/internal/mcp"
	"github.com/ashita-ai/kaiseki/internal/ratelimit"
	"github.com/ashita-ai/kaiseki/internal/runner"
	"github.com/ashita-ai/kaiseki/internal/server"
	"github.com/ashita-ai/kaiseki/internal/storage"
	"github.com/ashita-ai/kaiseki/internal/telemetry"
	"github.com/ashita-ai/kaiseki/ui"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Start the HTTP API server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		slog.SetDefault(logger)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := run(ctx, logger); err != nil {
			logger.Error("fatal error", "error", err)
			return err
		}
		return nil
	},
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("KAISEKI_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("kaiseki starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Open the snippet store.
	store, err := storage.Open(cfg.SavedDir, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	// Create the analysis runner (shared by HTTP and MCP handlers).
	r := runner.New(cfg.ExecTimeout, cfg.StepLimit, logger)

	// Create MCP server.
	mcpSrv := mcp.New(r, store, version, logger)

	// Create rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewMemoryLimiter(
			float64(cfg.RateLimitPerMinute)/60, cfg.RateLimitPerMinute)
		defer func() { _ = limiter.Close() }()
		logger.Info("rate limiting: memory (in-process token bucket)",
			"per_minute", cfg.RateLimitPerMinute)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	uiFS, err := ui.DistFS()
	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}

	// Create and start HTTP server (MCP mounted at /mcp, frontend at /).
	srv := server.New(server.ServerConfig{
		Store:               store,
		Runner:              r,
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
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("kaiseki shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	return nil
}
