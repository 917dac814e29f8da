// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp and service tag
	logger := zerolog.New(output).With().Timestamp().Str("service", "toast-etl").Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Token cache hits and refresh decisions
//   - Rate limit waits (key, interval, slept duration)
//   - Page-by-page fetch progress
//   - Staging table lifecycle (create, drop)
//
// Info: Normal operation events
//   - Pipeline run start/finish with row counts
//   - Completed fetches (tenant, pages, records)
//   - Load results (inserted, duplicates skipped)
//   - Dimension refreshes
//
// Warn: Warning conditions that don't prevent operation
//   - 429 responses and Retry-After sleeps
//   - Retry attempts on server/network errors
//   - Records dropped by validation
//   - Page cap reached before the API was exhausted
//
// Error: Error conditions requiring attention
//   - Authentication failures (fatal for the run)
//   - Fetches abandoned after retry exhaustion
//   - Load failures (soft, but zero rows landed)
//   - Configuration errors
//
// Context Fields:
//   - tenant: restaurant GUID the event belongs to
//   - endpoint_class: rate-limit class (orders, cash, labor, menus, config)
//   - page: page index during pagination
//   - status_code: HTTP status code
//   - error_class: error classification (client, server, rate_limit, network)
//   - table: warehouse table name
//   - rows: record/row count for the event
//   - duration: elapsed time
