package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server url", func(c *Config) { c.ServerURL = "" }},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"stereo capture", func(c *Config) { c.Channels = 2 }},
		{"odd chunk size", func(c *Config) { c.StreamChunkBytes = 1023 }},
		{"ring smaller than chunk", func(c *Config) { c.StreamBufferBytes = 1024; c.StreamChunkBytes = 2048 }},
		{"zero silence frames", func(c *Config) { c.SilenceFrames = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wisp.yaml")
		data := "server_url: ws://backend:9000/ws\nsilence_frames: 30\nlog_level: debug\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.ServerURL != "ws://backend:9000/ws" {
			t.Errorf("server_url = %q", cfg.ServerURL)
		}
		if cfg.SilenceFrames != 30 {
			t.Errorf("silence_frames = %d", cfg.SilenceFrames)
		}
		if cfg.SampleRate != 16000 {
			t.Errorf("untouched field changed: sample_rate = %d", cfg.SampleRate)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("WISP_SERVER_URL", "ws://env:1234/ws")
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.ServerURL != "ws://env:1234/ws" {
			t.Errorf("server_url = %q", cfg.ServerURL)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := Load("/nonexistent/wisp.yaml"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestDerivedValues(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.FrameSamples(); got != 480 {
		t.Errorf("FrameSamples = %d, want 480 for 30ms at 16kHz", got)
	}
	if got := cfg.RecordingCapacity(); got != 160000 {
		t.Errorf("RecordingCapacity = %d, want 160000", got)
	}
	if got := cfg.PrerollSamples(); got != 8000 {
		t.Errorf("PrerollSamples = %d, want 8000 for 500ms", got)
	}
	if got := cfg.MinUtteranceSamples(); got != 4000 {
		t.Errorf("MinUtteranceSamples = %d, want 4000 for 250ms", got)
	}

	cfg.FrameDuration = 20 * time.Millisecond
	if got := cfg.FrameSamples(); got != 320 {
		t.Errorf("FrameSamples = %d, want 320 for 20ms", got)
	}
}
