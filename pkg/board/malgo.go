package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoBoard drives real audio hardware through miniaudio. Capture blocks
// arrive on a device callback and are assembled into fixed-size microphone
// blocks; playback keeps a pending buffer the device callback drains.
type MalgoBoard struct {
	cfg    Config
	logger *slog.Logger

	audioContext *malgo.AllocatedContext
	capture      *malgo.Device
	playback     *malgo.Device

	mu      sync.Mutex
	started bool
	closed  bool

	// mic receives raw capture callback bytes.
	mic chan []byte
	// partial holds capture bytes left over from block assembly.
	partial []byte

	outMu   sync.Mutex
	outCond *sync.Cond
	// pending is the playback backlog the device callback consumes.
	pending []byte
}

// NewMalgoBoard initializes the miniaudio context and both devices.
func NewMalgoBoard(cfg Config, logger *slog.Logger) (*MalgoBoard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &MalgoBoard{
		cfg:    cfg,
		logger: logger.With("component", "board.malgo"),
		mic:    make(chan []byte, 64),
	}
	b.outCond = sync.NewCond(&b.outMu)

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("board: malgo context init: %w", err)
	}
	b.audioContext = audioCtx

	if err := b.initCapture(); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.initPlayback(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *MalgoBoard) initCapture() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = uint32(b.cfg.SampleRate)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.Alsa.NoMMap = 1
	cfg.PerformanceProfile = malgo.LowLatency
	cfg.PeriodSizeInFrames = uint32(b.cfg.BlockSamples)
	cfg.Periods = 3

	dev, err := malgo.InitDevice(b.audioContext.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * 2
			if n == 0 || len(pInput) < n {
				return
			}
			cp := make([]byte, n)
			copy(cp, pInput[:n])
			select {
			case b.mic <- cp:
			default:
				// Capture overrun: the control loop fell behind, drop.
			}
		},
	})
	if err != nil {
		return fmt.Errorf("board: capture device init: %w", err)
	}
	b.capture = dev
	return nil
}

func (b *MalgoBoard) initPlayback() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = uint32(b.cfg.SampleRate)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = uint32(b.cfg.SampleRate / 10)
	cfg.Periods = 4

	dev, err := malgo.InitDevice(b.audioContext.Context, cfg, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, _ uint32) {
			// Whatever pending does not cover stays zeroed (silence).
			b.outMu.Lock()
			n := copy(pOutput, b.pending)
			b.pending = b.pending[n:]
			if len(b.pending) == 0 {
				b.pending = nil
			}
			b.outMu.Unlock()
			b.outCond.Broadcast()
		},
	})
	if err != nil {
		return fmt.Errorf("board: playback device init: %w", err)
	}
	b.playback = dev
	return nil
}

// Start powers up both devices.
func (b *MalgoBoard) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.started {
		return nil
	}
	if err := b.capture.Start(); err != nil {
		return fmt.Errorf("board: start capture: %w", err)
	}
	if err := b.playback.Start(); err != nil {
		return fmt.Errorf("board: start playback: %w", err)
	}
	b.started = true
	b.logger.Info("audio hardware started",
		"sample_rate", b.cfg.SampleRate,
		"block_samples", b.cfg.BlockSamples,
	)
	return nil
}

// ReadBlock assembles the next fixed-size microphone block.
func (b *MalgoBoard) ReadBlock(ctx context.Context, buf []int16) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return ErrNotStarted
	}
	b.mu.Unlock()

	need := len(buf) * 2
	for len(b.partial) < need {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-b.mic:
			b.partial = append(b.partial, data...)
		}
	}

	for i := range buf {
		buf[i] = int16(b.partial[i*2]) | int16(b.partial[i*2+1])<<8
	}
	b.partial = b.partial[need:]
	return nil
}

// Play queues an entire clip and blocks until the device has consumed it.
func (b *MalgoBoard) Play(ctx context.Context, pcm []byte) error {
	if err := b.enqueue(pcm); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		b.outMu.Lock()
		for len(b.pending) > 0 {
			b.outCond.Wait()
		}
		b.outMu.Unlock()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// PlayStream queues one streaming chunk, blocking while the device backlog
// exceeds roughly two chunks so the caller is paced at playback speed.
func (b *MalgoBoard) PlayStream(pcm []byte) error {
	if err := b.enqueue(pcm); err != nil {
		return err
	}

	limit := 2 * len(pcm)
	b.outMu.Lock()
	for len(b.pending) > limit {
		b.outCond.Wait()
	}
	b.outMu.Unlock()
	return nil
}

func (b *MalgoBoard) enqueue(pcm []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if !b.started {
		b.mu.Unlock()
		return ErrNotStarted
	}
	b.mu.Unlock()

	b.outMu.Lock()
	b.pending = append(b.pending, pcm...)
	b.outMu.Unlock()
	return nil
}

// StopOutput discards everything queued for the speaker.
func (b *MalgoBoard) StopOutput() error {
	b.outMu.Lock()
	b.pending = nil
	b.outMu.Unlock()
	b.outCond.Broadcast()
	return nil
}

// Name returns "malgo".
func (b *MalgoBoard) Name() string { return "malgo" }

// Close stops and releases both devices and the context.
func (b *MalgoBoard) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.started = false
	b.mu.Unlock()

	b.StopOutput()
	if b.capture != nil {
		b.capture.Uninit()
		b.capture = nil
	}
	if b.playback != nil {
		b.playback.Uninit()
		b.playback = nil
	}
	if b.audioContext != nil {
		_ = b.audioContext.Uninit()
		b.audioContext.Free()
		b.audioContext = nil
	}

	// Give in-flight device callbacks a moment before buffers go away.
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Ensure MalgoBoard implements Board.
var _ Board = (*MalgoBoard)(nil)
