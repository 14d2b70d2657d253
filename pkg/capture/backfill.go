package capture

import (
	"log/slog"
	"time"

	"github.com/wisplabs/go-wisp/pkg/audio"
)

// BinarySender is the slice of the transport contract backfill needs: a
// bounded-timeout binary send.
type BinarySender interface {
	SendBinaryTimeout(data []byte, timeout time.Duration) error
}

// BackfillOptions bounds a pre-roll resend.
type BackfillOptions struct {
	// ChunkSamples caps a single send.
	ChunkSamples int
	// Pacing is the delay between chunks, giving the server room.
	Pacing time.Duration
	// SendTimeout bounds each individual send.
	SendTimeout time.Duration
}

// Backfill resends already-recorded samples preceding the VAD trigger so
// speech onset is not lost to detection latency. It sends in bounded chunks
// and aborts the remainder on the first failure; the recording session
// itself continues either way. Returns the number of samples sent.
func Backfill(sender BinarySender, samples []int16, opts BackfillOptions, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ChunkSamples <= 0 {
		opts.ChunkSamples = 1000
	}

	sent := 0
	for sent < len(samples) {
		n := len(samples) - sent
		if n > opts.ChunkSamples {
			n = opts.ChunkSamples
		}

		chunk := audio.PCM16ToBytes(samples[sent : sent+n])
		if err := sender.SendBinaryTimeout(chunk, opts.SendTimeout); err != nil {
			logger.Warn("backfill chunk send failed, aborting remainder",
				"sent", sent, "total", len(samples), "error", err)
			return sent, err
		}
		sent += n

		if sent < len(samples) && opts.Pacing > 0 {
			time.Sleep(opts.Pacing)
		}
	}

	logger.Info("pre-roll backfill complete", "samples", sent)
	return sent, nil
}
