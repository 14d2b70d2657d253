// Wisp - on-device voice assistant runtime.
// Wake-word gated recording with VAD, streamed to an assistant backend
// over a websocket, with gapless streaming playback of the reply.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wisplabs/go-wisp/internal/config"
	"github.com/wisplabs/go-wisp/internal/log"
	"github.com/wisplabs/go-wisp/pkg/audio"
	"github.com/wisplabs/go-wisp/pkg/board"
	"github.com/wisplabs/go-wisp/pkg/bridge"
	"github.com/wisplabs/go-wisp/pkg/clips"
	"github.com/wisplabs/go-wisp/pkg/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wisp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	logger := log.Init(cfg.LogLevel)
	logger.Info("wisp starting",
		"server", cfg.ServerURL,
		"board", cfg.Board,
		"sample_rate", cfg.SampleRate,
	)

	clipSet, err := clips.Load(cfg.ClipsDir)
	if err != nil {
		return err
	}

	brd, err := newBoard(cfg, logger)
	if err != nil {
		return err
	}
	defer brd.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := brd.Start(ctx); err != nil {
		return fmt.Errorf("start board: %w", err)
	}

	br := bridge.NewWebSocket(cfg.ServerURL, bridge.WithLogger(logger))
	defer br.Close()

	player := audio.NewStreamPlayer(brd, cfg.StreamBufferBytes, cfg.StreamChunkBytes, logger)
	defer player.Close()

	// The AEC reference has no consumer yet; keep the channel drained so
	// playback never drops samples for a stalled reader.
	go func() {
		for range player.AECReference() {
		}
	}()

	machine, err := session.New(session.Options{
		Config: cfg,
		Board:  brd,
		Bridge: br,
		Player: player,
		Clips:  clipSet,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	// The first wake redials, so a failed initial connect is not fatal.
	if err := br.Connect(ctx); err != nil {
		logger.Warn("initial connect failed, will retry on wake", "error", err)
	}

	if err := machine.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("wisp stopped")
	return nil
}

func parseFlags() (config.Config, error) {
	configPath := flag.String("config", "", "Path to YAML config file")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	serverURL := flag.String("server-url", "", "Backend websocket URL (overrides config)")
	boardName := flag.String("board", "", "Audio backend: malgo or mock")
	clipsDir := flag.String("clips-dir", "", "Directory holding the prompt clips")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	if *debug {
		cfg.LogLevel = "debug"
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *boardName != "" {
		cfg.Board = *boardName
	}
	if *clipsDir != "" {
		cfg.ClipsDir = *clipsDir
	}
	return cfg, nil
}

func newBoard(cfg config.Config, logger *slog.Logger) (board.Board, error) {
	bcfg := board.Config{
		SampleRate:   cfg.SampleRate,
		BlockSamples: cfg.FrameSamples(),
	}
	switch cfg.Board {
	case "mock":
		return board.NewMockBoard(bcfg, logger), nil
	case "malgo":
		return board.NewMalgoBoard(bcfg, logger)
	default:
		return nil, fmt.Errorf("unknown board backend %q", cfg.Board)
	}
}
