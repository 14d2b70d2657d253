package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Legacy buffered-response playback errors.
var (
	// ErrResponseTooLarge indicates the reply exceeds the fixed buffer.
	ErrResponseTooLarge = errors.New("audio: response exceeds buffer capacity")

	// ErrNoResponse indicates Play was called with nothing buffered.
	ErrNoResponse = errors.New("audio: no response audio buffered")
)

const (
	responsePlayRetries = 3
	responsePlayBackoff = 100 * time.Millisecond
)

// ResponsePlayer is the legacy non-streaming reply path: the full reply is
// accumulated into a fixed buffer and rendered as one blocking call with
// bounded retries. The streaming flow does not use it.
type ResponsePlayer struct {
	brd    boardPlayer
	logger *slog.Logger

	buf    []byte
	length int
	played bool
}

// boardPlayer is the slice of the board contract this path needs.
type boardPlayer interface {
	Play(ctx context.Context, pcm []byte) error
}

// NewResponsePlayer allocates the fixed response buffer once.
func NewResponsePlayer(brd boardPlayer, capacity int, logger *slog.Logger) *ResponsePlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponsePlayer{
		brd:    brd,
		logger: logger.With("component", "audio.response"),
		buf:    make([]byte, capacity),
	}
}

// Begin resets the buffer for a fresh reply.
func (r *ResponsePlayer) Begin() {
	r.length = 0
	r.played = false
}

// SetResponse stores a complete reply, rejecting one that does not fit.
func (r *ResponsePlayer) SetResponse(data []byte) error {
	if len(data) > len(r.buf) {
		return fmt.Errorf("%w: %d > %d", ErrResponseTooLarge, len(data), len(r.buf))
	}
	copy(r.buf, data)
	r.length = len(data)
	return nil
}

// Play renders the buffered reply, retrying on hardware failure with a
// fixed backoff.
func (r *ResponsePlayer) Play(ctx context.Context) error {
	if r.length == 0 {
		return ErrNoResponse
	}

	var err error
	for attempt := 1; attempt <= responsePlayRetries; attempt++ {
		err = r.brd.Play(ctx, r.buf[:r.length])
		if err == nil {
			r.played = true
			r.logger.Info("response played", "bytes", r.length, "attempt", attempt)
			return nil
		}
		r.logger.Error("response playback failed", "attempt", attempt, "error", err)
		if attempt < responsePlayRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(responsePlayBackoff):
			}
		}
	}
	return fmt.Errorf("audio: response playback failed after %d attempts: %w", responsePlayRetries, err)
}

// Played reports whether the buffered reply has been rendered.
func (r *ResponsePlayer) Played() bool { return r.played }

// ResetPlayed clears the played flag ahead of the next reply.
func (r *ResponsePlayer) ResetPlayed() { r.played = false }
