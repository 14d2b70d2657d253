package audio

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wisplabs/go-wisp/pkg/board"
)

const (
	// workerIdlePoll is how long the worker sleeps while inactive.
	workerIdlePoll = 100 * time.Millisecond
	// workerDataPoll is how long the worker sleeps waiting for more bytes.
	workerDataPoll = 10 * time.Millisecond
)

// StreamPlayer drains network-delivered audio to the speaker through a
// bounded ring. The network callback is the sole producer (Push), a
// dedicated worker goroutine is the sole consumer. Completion and
// abandonment are communicated purely through the flags.
type StreamPlayer struct {
	ring   *Ring
	brd    board.Board
	logger *slog.Logger

	chunkSize int

	active    atomic.Bool
	finishing atomic.Bool
	discard   atomic.Bool

	// aecRef receives played samples for the echo canceller, best effort.
	aecRef chan []int16

	stop chan struct{}
}

// NewStreamPlayer allocates the ring and starts the worker. The worker
// lives for the player's lifetime; streams are started and finished
// through the flags, never by restarting the goroutine.
func NewStreamPlayer(brd board.Board, capacity, chunkSize int, logger *slog.Logger) *StreamPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	p := &StreamPlayer{
		ring:      NewRing(capacity),
		brd:       brd,
		logger:    logger.With("component", "audio.stream"),
		chunkSize: chunkSize,
		aecRef:    make(chan []int16, 16),
		stop:      make(chan struct{}),
	}
	go p.worker()
	return p
}

// Start arms a new stream. It is idempotent: the compare-and-swap makes
// this the single authoritative owner of "streaming active", so concurrent
// callers racing on the first chunk cannot double-initialize the cursors.
// Returns true if this call started the stream.
func (p *StreamPlayer) Start() bool {
	if !p.active.CompareAndSwap(false, true) {
		return false
	}
	p.finishing.Store(false)
	p.discard.Store(false)
	p.logger.Info("streaming playback started", "capacity", p.ring.Capacity(), "chunk_size", p.chunkSize)
	return true
}

// IsActive reports whether a stream is in flight (pushed or draining).
func (p *StreamPlayer) IsActive() bool { return p.active.Load() }

// Push appends one network chunk. It never blocks and never writes
// partially: false means the chunk was dropped by the caller's contract
// (live audio has no replay value). Pushes are rejected once the stream
// is finishing or cancelled, so the worker's shutdown races no producer.
func (p *StreamPlayer) Push(data []byte) bool {
	if !p.active.Load() || p.finishing.Load() {
		return false
	}
	ok := p.ring.Push(data)
	if !ok {
		p.logger.Warn("stream ring full, dropping chunk", "size", len(data), "free", p.ring.Free())
	}
	return ok
}

// Finish tells the worker no more pushes will arrive: drain what is
// buffered (including a final sub-chunk tail) and quiesce.
func (p *StreamPlayer) Finish() {
	if !p.active.Load() {
		return
	}
	p.logger.Info("streaming playback finishing", "buffered", p.ring.Available())
	p.finishing.Store(true)
}

// Cancel abandons the stream: buffered bytes are dropped instead of played
// and the engine quiesces. Used when a reply is preempted or the backend
// fails mid-stream, so stale audio cannot surface at the head of the next
// stream.
func (p *StreamPlayer) Cancel() {
	if !p.active.Load() {
		return
	}
	p.logger.Info("streaming playback cancelled", "buffered", p.ring.Available())
	p.discard.Store(true)
	p.finishing.Store(true)
}

// Available reports buffered bytes, for logging and tests.
func (p *StreamPlayer) Available() int { return p.ring.Available() }

// AECReference returns the channel carrying played samples for the echo
// canceller. Sends are non-blocking; a slow consumer loses samples, never
// audio.
func (p *StreamPlayer) AECReference() <-chan []int16 { return p.aecRef }

// Close stops the worker goroutine. The player cannot be reused.
func (p *StreamPlayer) Close() error {
	close(p.stop)
	return nil
}

func (p *StreamPlayer) worker() {
	chunk := make([]byte, p.chunkSize)

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		if !p.active.Load() {
			time.Sleep(workerIdlePoll)
			continue
		}

		if p.discard.Load() {
			p.shutdownStream()
			continue
		}

		available := p.ring.Available()
		switch {
		case available >= p.chunkSize:
			n := p.ring.ReadChunk(chunk[:p.chunkSize])
			p.playChunk(chunk[:n])

		case p.finishing.Load() && available > 0:
			// Tail shorter than one chunk: flush it exactly.
			n := p.ring.ReadChunk(chunk[:available])
			p.playChunk(chunk[:n])
			p.shutdownStream()

		case p.finishing.Load():
			p.shutdownStream()

		default:
			time.Sleep(workerDataPoll)
		}
	}
}

// playChunk writes one chunk to the hardware and forwards it as an AEC
// reference. A failed write is logged and skipped; retrying would stall
// the real-time consumer.
func (p *StreamPlayer) playChunk(data []byte) {
	if err := p.brd.PlayStream(data); err != nil {
		p.logger.Error("stream chunk write failed", "size", len(data), "error", err)
	}

	samples := BytesToPCM16(data)
	select {
	case p.aecRef <- samples:
	default:
		// AEC reference is best effort; drop under backpressure.
	}
}

// shutdownStream quiesces the engine. Leftovers (everything on a cancel,
// nothing on a normal drain) are dropped by advancing the read cursor;
// the worker never writes the producer's cursor, so a push racing the
// shutdown cannot corrupt the ring.
func (p *StreamPlayer) shutdownStream() {
	if dropped := p.ring.Drain(); dropped > 0 {
		p.logger.Debug("dropping buffered audio", "bytes", dropped)
	}
	p.discard.Store(false)
	p.finishing.Store(false)
	p.active.Store(false)
	if err := p.brd.StopOutput(); err != nil {
		p.logger.Warn("stop output failed", "error", err)
	}
	p.logger.Info("streaming playback drained")
}
