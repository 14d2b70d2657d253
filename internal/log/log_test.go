package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildHonorsProductionMode(t *testing.T) {
	t.Run("json in production", func(t *testing.T) {
		t.Setenv(envMode, "production")
		var buf bytes.Buffer
		build(&buf, slog.LevelInfo).Info("boot", "board", "mock")
		if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
			t.Errorf("production logs should be JSON, got %q", buf.String())
		}
	})

	t.Run("text elsewhere", func(t *testing.T) {
		t.Setenv(envMode, "")
		var buf bytes.Buffer
		build(&buf, slog.LevelInfo).Info("boot", "board", "mock")
		if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
			t.Errorf("development logs should be text, got %q", buf.String())
		}
	})
}

func TestInitFirstCallerWins(t *testing.T) {
	first := Init("debug")
	second := Init("error")
	if first != second {
		t.Error("Init should return the same logger on every call")
	}
	if L() != first {
		t.Error("L should return the installed logger")
	}
}
