// Package log configures the process-wide structured logger for the wisp
// appliance runtime.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// envMode selects the handler format. The appliance's service unit sets
// WISP_ENV=production so journald ingests one JSON object per line;
// anything else gets human-readable text for terminal development.
const envMode = "WISP_ENV"

var (
	logger *slog.Logger
	once   sync.Once
)

// Init configures and installs the process logger and returns it. Later
// calls are no-ops: the first caller's level wins.
func Init(level string) *slog.Logger {
	once.Do(func() {
		logger = build(os.Stdout, ParseLevel(level))
		slog.SetDefault(logger)
	})
	return logger
}

// ParseLevel maps a config string to a slog level. Unknown or empty
// strings fall back to info so a bad config never silences the device.
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

func build(w io.Writer, lvl slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}
	if os.Getenv(envMode) == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// L returns the process logger, initializing it at info level if Init was
// never called.
func L() *slog.Logger {
	return Init("info")
}
