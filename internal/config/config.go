// Package config provides runtime configuration for the wisp appliance.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables, so a provisioned device can ship a baked-in file
// while development overrides stay out of the image.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the full runtime configuration.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`

	// ServerURL is the websocket endpoint of the assistant backend.
	ServerURL string `yaml:"server_url"`

	// Audio format. The whole pipeline is PCM16 mono.
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`

	// FrameDuration is the duration of one microphone block. VAD expects
	// this exact frame size.
	FrameDuration time.Duration `yaml:"frame_duration"`

	// RecordingSeconds caps a single utterance. The recording buffer is
	// allocated once at this capacity.
	RecordingSeconds int `yaml:"recording_seconds"`

	// ResponseSeconds caps the legacy buffered-response path.
	ResponseSeconds int `yaml:"response_seconds"`

	// StreamBufferBytes is the streaming playback ring capacity.
	StreamBufferBytes int `yaml:"stream_buffer_bytes"`

	// StreamChunkBytes is the granularity the playback worker drains at.
	StreamChunkBytes int `yaml:"stream_chunk_bytes"`

	// Preroll is the look-back window resent to the server when speech
	// onset is detected.
	Preroll time.Duration `yaml:"preroll"`

	// BackfillChunkSamples bounds a single backfill send.
	BackfillChunkSamples int `yaml:"backfill_chunk_samples"`

	// BackfillSendTimeout bounds each backfill chunk send.
	BackfillSendTimeout time.Duration `yaml:"backfill_send_timeout"`

	// BackfillPacing is the inter-chunk delay during backfill.
	BackfillPacing time.Duration `yaml:"backfill_pacing"`

	// SilenceFrames is the consecutive-silence run that ends an utterance.
	SilenceFrames int `yaml:"silence_frames"`

	// MinUtterance discards shorter recordings as noise.
	MinUtterance time.Duration `yaml:"min_utterance"`

	// NoSpeechTimeout exits continuous conversation when nothing is said.
	NoSpeechTimeout time.Duration `yaml:"no_speech_timeout"`

	// SettleDelay lets the speaker hardware quiesce after a drain before
	// the microphone is trusted again.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// KeepAliveInterval paces protocol pings while awaiting a response.
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`

	// Board selects the hardware backend: "malgo" or "mock".
	Board string `yaml:"board"`

	// ClipsDir holds the fixed greeting/farewell PCM clips.
	ClipsDir string `yaml:"clips_dir"`
}

// DefaultConfig returns the device defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:             "info",
		ServerURL:            "ws://127.0.0.1:8888/ws/device",
		SampleRate:           16000,
		Channels:             1,
		FrameDuration:        30 * time.Millisecond,
		RecordingSeconds:     10,
		ResponseSeconds:      32,
		StreamBufferBytes:    64 * 1024,
		StreamChunkBytes:     2048,
		Preroll:              500 * time.Millisecond,
		BackfillChunkSamples: 1000,
		BackfillSendTimeout:  500 * time.Millisecond,
		BackfillPacing:       20 * time.Millisecond,
		SilenceFrames:        20,
		MinUtterance:         250 * time.Millisecond,
		NoSpeechTimeout:      10 * time.Second,
		SettleDelay:          500 * time.Millisecond,
		KeepAliveInterval:    5 * time.Second,
		Board:                "malgo",
		ClipsDir:             "/usr/share/wisp/clips",
	}
}

// Load reads the YAML file at path (if non-empty), applies environment
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WISP_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("WISP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("WISP_BOARD"); v != "" {
		c.Board = v
	}
	if v := os.Getenv("WISP_CLIPS_DIR"); v != "" {
		c.ClipsDir = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("config: server_url is required")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("config: only mono capture is supported, got %d channels", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("config: frame_duration must be positive, got %v", c.FrameDuration)
	}
	if c.RecordingSeconds <= 0 {
		return fmt.Errorf("config: recording_seconds must be positive, got %d", c.RecordingSeconds)
	}
	if c.StreamChunkBytes <= 0 || c.StreamChunkBytes%2 != 0 {
		return fmt.Errorf("config: stream_chunk_bytes must be a positive even number, got %d", c.StreamChunkBytes)
	}
	if c.StreamBufferBytes <= c.StreamChunkBytes {
		return fmt.Errorf("config: stream_buffer_bytes (%d) must exceed stream_chunk_bytes (%d)",
			c.StreamBufferBytes, c.StreamChunkBytes)
	}
	if c.SilenceFrames <= 0 {
		return fmt.Errorf("config: silence_frames must be positive, got %d", c.SilenceFrames)
	}
	return nil
}

// FrameSamples returns the number of samples in one microphone block.
func (c *Config) FrameSamples() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// RecordingCapacity returns the recording buffer capacity in samples.
func (c *Config) RecordingCapacity() int {
	return c.SampleRate * c.RecordingSeconds
}

// PrerollSamples returns the pre-roll look-back window in samples.
func (c *Config) PrerollSamples() int {
	return int(float64(c.SampleRate) * c.Preroll.Seconds())
}

// MinUtteranceSamples returns the shortest utterance worth forwarding.
func (c *Config) MinUtteranceSamples() int {
	return int(float64(c.SampleRate) * c.MinUtterance.Seconds())
}
