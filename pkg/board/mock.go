package board

import (
	"context"
	"log/slog"
	"sync"
)

// MockBoard is an in-memory board for tests. Microphone blocks are scripted
// with FeedBlock; everything written to the speaker is recorded.
type MockBoard struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool

	mic chan []int16

	// Recorded output, guarded by mu.
	Played        [][]byte // full clips via Play
	StreamWrites  [][]byte // chunks via PlayStream
	OutputStopped int      // StopOutput call count

	// PlayStreamErr, when set, is returned by every PlayStream call.
	PlayStreamErr error
}

// NewMockBoard creates a mock board.
func NewMockBoard(cfg Config, logger *slog.Logger) *MockBoard {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockBoard{
		cfg:    cfg,
		logger: logger.With("component", "board.mock"),
		mic:    make(chan []int16, 256),
	}
}

// FeedBlock queues one scripted microphone block.
func (m *MockBoard) FeedBlock(samples []int16) {
	cp := make([]int16, len(samples))
	copy(cp, samples)
	m.mic <- cp
}

// FeedSilence queues n all-zero microphone blocks.
func (m *MockBoard) FeedSilence(n int) {
	for i := 0; i < n; i++ {
		m.FeedBlock(make([]int16, m.cfg.BlockSamples))
	}
}

// Start marks the board as running.
func (m *MockBoard) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.started = true
	return nil
}

// ReadBlock returns the next scripted block.
func (m *MockBoard) ReadBlock(ctx context.Context, buf []int16) error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case block := <-m.mic:
		copy(buf, block)
		return nil
	}
}

// Play records a full-clip write.
func (m *MockBoard) Play(ctx context.Context, pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	m.Played = append(m.Played, cp)
	return nil
}

// PlayStream records a streaming chunk write.
func (m *MockBoard) PlayStream(pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.PlayStreamErr != nil {
		return m.PlayStreamErr
	}
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	m.StreamWrites = append(m.StreamWrites, cp)
	return nil
}

// StopOutput counts the stop call.
func (m *MockBoard) StopOutput() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OutputStopped++
	return nil
}

// StreamedBytes concatenates every PlayStream write in order.
func (m *MockBoard) StreamedBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.StreamWrites {
		out = append(out, w...)
	}
	return out
}

// Name returns "mock".
func (m *MockBoard) Name() string { return "mock" }

// Close releases the mock.
func (m *MockBoard) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.started = false
	return nil
}

// Ensure MockBoard implements Board.
var _ Board = (*MockBoard)(nil)
