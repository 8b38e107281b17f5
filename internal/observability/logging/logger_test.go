package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"  WARN ": slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewJSONLoggerDefaultsServiceName(t *testing.T) {
	if logger := NewJSONLogger("", "info"); logger == nil {
		t.Fatal("expected logger")
	}
	if logger := NewJSONLogger("api", "debug"); logger == nil {
		t.Fatal("expected logger")
	}
}
