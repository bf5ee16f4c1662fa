// Package logger provides structured logging with configurable levels.
// It wraps log/slog: JSON output in production, text output elsewhere.
package logger
