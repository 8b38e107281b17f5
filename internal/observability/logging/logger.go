// Package logging builds the process-wide slog logger. Every service logs
// JSON to stdout with a fixed service attribute so retrieval sessions can be
// correlated across api logs and published run events.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

const defaultService = "fusionrag"

// NewJSONLogger returns a JSON logger tagged with the service name. An
// unknown level string falls back to info rather than failing startup.
func NewJSONLogger(service, level string) *slog.Logger {
	if strings.TrimSpace(service) == "" {
		service = defaultService
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// ParseLevel maps a config-supplied level string onto slog levels.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
