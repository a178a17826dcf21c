// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Storage settings.
	SavedDir     string // Directory for saved snippets and reports.
	DatabasePath string // Sqlite file indexing saved snippets.

	// Execution settings.
	ExecTimeout time.Duration // Wall-clock budget for one snippet run.
	StepLimit   int           // Interpreter step budget for one snippet run.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.
	RateLimitPerMinute  int   // Analyze requests allowed per client per minute.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("KAISEKI_PORT", 8080),
		ReadTimeout:         envDuration("KAISEKI_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("KAISEKI_WRITE_TIMEOUT", 30*time.Second),
		SavedDir:            envStr("KAISEKI_SAVED_DIR", "saved_code"),
		DatabasePath:        envStr("KAISEKI_DB_PATH", "kaiseki.db"),
		ExecTimeout:         envDuration("KAISEKI_EXEC_TIMEOUT", 5*time.Second),
		StepLimit:           envInt("KAISEKI_STEP_LIMIT", 1_000_000),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "kaiseki"),
		LogLevel:            envStr("KAISEKI_LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(envInt("KAISEKI_MAX_REQUEST_BODY_BYTES", 1*1024*1024)), // 1 MB default
		RateLimitPerMinute:  envInt("KAISEKI_RATE_LIMIT_PER_MINUTE", 60),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: KAISEKI_PORT must be a valid port")
	}
	if c.SavedDir == "" {
		return fmt.Errorf("config: KAISEKI_SAVED_DIR is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("config: KAISEKI_DB_PATH is required")
	}
	if c.ExecTimeout <= 0 {
		return fmt.Errorf("config: KAISEKI_EXEC_TIMEOUT must be positive")
	}
	if c.StepLimit <= 0 {
		return fmt.Errorf("config: KAISEKI_STEP_LIMIT must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: KAISEKI_MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
