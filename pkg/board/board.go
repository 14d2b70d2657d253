// Package board abstracts the appliance audio hardware: a microphone that
// yields fixed-size PCM16 blocks and a speaker that accepts blocking writes.
//
// Two backends are provided:
//   - malgo (miniaudio) for real devices and development machines
//   - mock for tests and CI without hardware
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Common errors returned by boards.
var (
	// ErrNotStarted indicates the board has not been started.
	ErrNotStarted = errors.New("board: not started")

	// ErrClosed indicates the board has been closed.
	ErrClosed = errors.New("board: closed")
)

// Board is the hardware contract consumed by the runtime. All audio is
// PCM16 mono at the configured sample rate.
type Board interface {
	// Start powers up capture and playback.
	Start(ctx context.Context) error

	// ReadBlock fills buf with the next microphone block, blocking until a
	// full block is available or the context is done. It is expected to
	// return promptly under normal operation.
	ReadBlock(ctx context.Context, buf []int16) error

	// Play renders an entire clip, blocking until it has been handed to
	// the output device.
	Play(ctx context.Context, pcm []byte) error

	// PlayStream renders one streaming chunk. It blocks, which is
	// acceptable only off the network and capture paths.
	PlayStream(pcm []byte) error

	// StopOutput silences the output device, discarding anything buffered.
	StopOutput() error

	// Name returns the backend name (e.g. "malgo", "mock").
	Name() string

	// Close releases all resources. After Close the board cannot restart.
	io.Closer
}

// Config holds hardware parameters shared by all backends.
type Config struct {
	// SampleRate in Hz, PCM16 mono.
	SampleRate int

	// BlockSamples is the fixed microphone block size in samples.
	BlockSamples int
}

// Validate checks the hardware parameters.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("board: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.BlockSamples <= 0 {
		return fmt.Errorf("board: block_samples must be positive, got %d", c.BlockSamples)
	}
	return nil
}
