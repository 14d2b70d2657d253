package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wisplabs/go-wisp/internal/config"
	"github.com/wisplabs/go-wisp/pkg/audio"
	"github.com/wisplabs/go-wisp/pkg/board"
	"github.com/wisplabs/go-wisp/pkg/bridge"
	"github.com/wisplabs/go-wisp/pkg/capture"
	"github.com/wisplabs/go-wisp/pkg/clips"
)

const (
	// connectTimeout bounds the single reconnect attempt on wake.
	connectTimeout = 5 * time.Second

	// connectSettle gives the freshly dialed connection a moment before
	// the greeting and the first audio go out.
	connectSettle = 100 * time.Millisecond

	// micRetryDelay avoids a hot loop when the microphone read fails.
	micRetryDelay = 10 * time.Millisecond

	// playerCancelTimeout bounds the wait for the playback engine to
	// quiesce after a stream is abandoned.
	playerCancelTimeout = 2 * time.Second

	// commandTimeout is reserved for bounding a whole backend turn. No
	// transition uses it yet.
	commandTimeout = 5 * time.Second
)

// Option errors.
var (
	ErrMissingBoard  = errors.New("session: board is required")
	ErrMissingBridge = errors.New("session: bridge is required")
	ErrMissingPlayer = errors.New("session: stream player is required")
	ErrMissingClips  = errors.New("session: clips are required")
)

// eventKind tags a queued transport event.
type eventKind int

const (
	evText eventKind = iota
	evPing
	evError
	evDisconnected
)

type event struct {
	kind eventKind
	text bridge.TextEvent
	err  error
}

// Options wires the Machine's collaborators.
type Options struct {
	Config config.Config
	Board  board.Board
	Bridge bridge.Bridge
	Player *audio.StreamPlayer
	Clips  *clips.Set

	// Wake, VAD, and NS default to the bundled energy-based
	// implementations when nil.
	Wake capture.WakeDetector
	VAD  capture.VAD
	NS   capture.NoiseSuppressor

	Logger *slog.Logger
}

// Machine is the conversation orchestrator. It owns the conversation state
// and all mode flags; the step loop is the only writer.
type Machine struct {
	cfg    config.Config
	logger *slog.Logger

	brd    board.Board
	bridge bridge.Bridge
	player *audio.StreamPlayer
	clips  *clips.Set

	wake       capture.WakeDetector
	ns         capture.NoiseSuppressor
	vadSession *capture.Session
	recorder   *capture.Recorder

	// state is read by the transport goroutine to gate binary pushes, so
	// it is published atomically even though only the step loop writes it.
	state atomic.Int32

	events chan event

	convo              convoContext
	recordingStartedAt time.Time
	lastKeepAlive      time.Time
	lastCountdownLog   time.Time

	conversationID string
}

// New builds a Machine and registers its transport callbacks.
func New(opts Options) (*Machine, error) {
	if opts.Board == nil {
		return nil, ErrMissingBoard
	}
	if opts.Bridge == nil {
		return nil, ErrMissingBridge
	}
	if opts.Player == nil {
		return nil, ErrMissingPlayer
	}
	if opts.Clips == nil {
		return nil, ErrMissingClips
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Wake == nil {
		opts.Wake = capture.NewEnergyWake(0, 0)
	}
	if opts.VAD == nil {
		opts.VAD = capture.NewEnergyVAD(0)
	}
	if opts.NS == nil {
		opts.NS = capture.PassthroughNS{}
	}

	m := &Machine{
		cfg:        opts.Config,
		logger:     opts.Logger.With("component", "session"),
		brd:        opts.Board,
		bridge:     opts.Bridge,
		player:     opts.Player,
		clips:      opts.Clips,
		wake:       opts.Wake,
		ns:         opts.NS,
		vadSession: capture.NewSession(opts.VAD, opts.Config.SilenceFrames),
		recorder:   capture.NewRecorder(opts.Config.RecordingCapacity(), opts.Config.SampleRate),
		events:     make(chan event, 32),
	}
	m.state.Store(int32(StateWaitingWakeup))

	m.bridge.OnBinary(m.handleBinary)
	m.bridge.OnText(func(ev bridge.TextEvent) { m.enqueue(event{kind: evText, text: ev}) })
	m.bridge.OnPing(func() { m.enqueue(event{kind: evPing}) })
	m.bridge.OnError(func(err error) { m.enqueue(event{kind: evError, err: err}) })
	m.bridge.OnDisconnected(func() { m.enqueue(event{kind: evDisconnected}) })

	return m, nil
}

// State returns the current conversation state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

func (m *Machine) setState(next State) {
	prev := m.State()
	if prev == next {
		return
	}
	m.state.Store(int32(next))
	m.logger.Info("state transition", "from", prev.String(), "to", next.String())
}

// Run drives the control loop: read one microphone block, drain queued
// transport events, advance the state machine, repeat until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Info("conversation loop starting",
		"board", m.brd.Name(),
		"sample_rate", m.cfg.SampleRate,
		"frame_samples", m.cfg.FrameSamples(),
	)

	frame := make([]int16, m.cfg.FrameSamples())
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		default:
		}

		m.drainEvents()

		if err := m.brd.ReadBlock(ctx, frame); err != nil {
			if ctx.Err() != nil {
				m.shutdown()
				return ctx.Err()
			}
			m.logger.Error("microphone read failed", "error", err)
			time.Sleep(micRetryDelay)
			continue
		}

		m.step(ctx, frame)
	}
}

func (m *Machine) shutdown() {
	m.recorder.Stop()
	if err := m.bridge.Disconnect(); err != nil {
		m.logger.Warn("disconnect on shutdown failed", "error", err)
	}
	m.logger.Info("conversation loop stopped")
}

// step advances the machine by one microphone block.
func (m *Machine) step(ctx context.Context, frame []int16) {
	frame = m.ns.Process(frame)

	switch m.State() {
	case StateWaitingWakeup:
		if m.wake.Detect(frame) {
			m.onWake(ctx)
		}

	case StateRecording:
		m.stepRecording(frame)

	case StateWaitingResponse:
		m.stepWaitingResponse()

	case StatePlayingFinishedWaiting:
		if !m.player.IsActive() {
			m.settle()
			m.logger.Info("reply playback drained, rearming recording")
			if err := m.bridge.SendEvent(bridge.EventRecordingStarted); err != nil {
				m.logger.Error("recording_started send failed", "error", err)
			}
			m.enterRecording(true)
		}

	case StatePlayingWeather:
		m.stepPlayingWeather()
	}
}

// onWake handles wake-word detection: reconnect if needed, greet, announce
// the recording, and start capturing.
func (m *Machine) onWake(ctx context.Context) {
	if !m.bridge.IsConnected() {
		dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := m.bridge.Connect(dialCtx)
		cancel()
		if err != nil {
			m.logger.Error("reconnect on wake failed", "error", err)
			return
		}
		time.Sleep(connectSettle)
	}

	m.conversationID = uuid.NewString()
	m.logger.Info("wake word detected", "conversation_id", m.conversationID)

	if err := m.bridge.SendEvent(bridge.EventRecordingStarted); err != nil {
		m.logger.Error("recording_started send failed", "error", err)
	}

	if err := m.brd.Play(ctx, m.clips.Greeting); err != nil {
		m.logger.Warn("greeting clip failed", "error", err)
	}

	m.convo.reset()
	m.enterRecording(false)
}

// enterRecording arms a fresh capture session. continuous arms the
// no-speech timeout, used for every turn after the first reply.
func (m *Machine) enterRecording(continuous bool) {
	m.recorder.Start()
	m.vadSession.Reset()
	m.convo.continuous = continuous
	m.convo.streaming = false
	m.recordingStartedAt = time.Now()
	m.lastCountdownLog = time.Now()
	m.setState(StateRecording)
}

func (m *Machine) stepRecording(frame []int16) {
	wasStreaming := m.convo.streaming

	if err := m.recorder.Append(frame); errors.Is(err, capture.ErrRecordingFull) {
		// Overflow ends the session; the accumulated audio is the
		// utterance.
		m.logger.Warn("recording buffer full, forwarding utterance",
			"duration", m.recorder.Duration())
		m.finishUtterance()
		return
	}

	if wasStreaming {
		m.sendLive(frame)
	}

	switch m.vadSession.Observe(frame) {
	case capture.EventSpeechStart:
		m.onSpeechStart()
		return

	case capture.EventEndOfSpeech:
		m.onEndOfSpeech()
		return
	}

	if m.convo.continuous && !m.vadSession.StartedSpeaking() {
		waited := time.Since(m.recordingStartedAt)
		if waited >= m.cfg.NoSpeechTimeout {
			m.logger.Info("no speech within timeout, leaving conversation",
				"timeout", m.cfg.NoSpeechTimeout)
			m.exitConversation()
			return
		}
		if time.Since(m.lastCountdownLog) >= time.Second {
			m.lastCountdownLog = time.Now()
			m.logger.Info("waiting for speech",
				"remaining", (m.cfg.NoSpeechTimeout - waited).Round(time.Second))
		}
	}
}

// onSpeechStart backfills the pre-roll window and switches to live
// forwarding. A short backfill does not abort the session.
func (m *Machine) onSpeechStart() {
	window := m.recorder.Tail(m.cfg.PrerollSamples())
	m.logger.Info("speech onset detected",
		"conversation_id", m.conversationID,
		"preroll_samples", len(window),
	)

	_, err := capture.Backfill(m.bridge, window, capture.BackfillOptions{
		ChunkSamples: m.cfg.BackfillChunkSamples,
		Pacing:       m.cfg.BackfillPacing,
		SendTimeout:  m.cfg.BackfillSendTimeout,
	}, m.logger)
	if err != nil {
		m.logger.Warn("pre-roll backfill incomplete", "error", err)
	}

	m.convo.streaming = true
}

func (m *Machine) onEndOfSpeech() {
	if m.recorder.Len() >= m.cfg.MinUtteranceSamples() {
		m.logger.Info("end of speech",
			"conversation_id", m.conversationID,
			"duration", m.recorder.Duration(),
		)
		m.finishUtterance()
		return
	}

	// Too short to be a command; discard and listen again.
	m.logger.Info("utterance below minimum, rerecording",
		"duration", m.recorder.Duration())
	if err := m.bridge.SendEvent(bridge.EventRecordingCancelled); err != nil {
		m.logger.Error("recording_cancelled send failed", "error", err)
	}
	m.recorder.Start()
	m.vadSession.Reset()
	m.convo.streaming = !m.convo.continuous
	m.recordingStartedAt = time.Now()
}

// finishUtterance closes the capture session and hands the turn to the
// backend.
func (m *Machine) finishUtterance() {
	m.recorder.Stop()
	if err := m.bridge.SendEvent(bridge.EventRecordingEnded); err != nil {
		m.logger.Error("recording_ended send failed", "error", err)
	}
	m.lastKeepAlive = time.Now()
	m.setState(StateWaitingResponse)
}

func (m *Machine) stepWaitingResponse() {
	if time.Since(m.lastKeepAlive) < m.cfg.KeepAliveInterval {
		return
	}
	m.lastKeepAlive = time.Now()
	if err := m.bridge.SendPing(); err != nil {
		m.logger.Warn("keep-alive ping failed", "error", err)
	}
}

func (m *Machine) stepPlayingWeather() {
	if !m.convo.weatherFinishSignaled || m.player.IsActive() {
		return
	}

	m.logger.Info("weather broadcast drained",
		"triggered_by", m.convo.weatherTriggeredBy)
	if err := m.bridge.SendEvent(bridge.EventWeatherPlayed); err != nil {
		m.logger.Error("weather_played send failed", "error", err)
	}
	m.settle()

	m.convo.weatherActive = false
	m.convo.weatherTriggeredBy = ""
	m.convo.weatherFinishSignaled = false
	m.setState(StateWaitingWakeup)
}

// sendLive forwards one microphone block to the backend in streaming mode.
// A failed send is logged and skipped; live audio has no replay value.
func (m *Machine) sendLive(frame []int16) {
	if err := m.bridge.SendBinary(audio.PCM16ToBytes(frame)); err != nil {
		m.logger.Warn("live audio send failed", "error", err)
	}
}

// exitConversation plays the farewell, closes the transport, and returns
// to idle wake listening. Timing out is a normal exit, not an error.
func (m *Machine) exitConversation() {
	m.recorder.Stop()

	if err := m.brd.Play(context.Background(), m.clips.Farewell); err != nil {
		m.logger.Warn("farewell clip failed", "error", err)
	}
	if err := m.bridge.Disconnect(); err != nil {
		m.logger.Warn("disconnect failed", "error", err)
	}

	m.convo.reset()
	m.setState(StateWaitingWakeup)
}

// cancelPlayback abandons any in-flight reply stream, waits for the
// engine to quiesce, and settles, so stale audio neither surfaces in the
// next turn's reply nor bleeds into a fresh recording.
func (m *Machine) cancelPlayback() {
	if !m.player.IsActive() {
		return
	}
	m.player.Cancel()

	deadline := time.Now().Add(playerCancelTimeout)
	for m.player.IsActive() {
		if time.Now().After(deadline) {
			m.logger.Error("playback engine did not quiesce after cancel")
			return
		}
		time.Sleep(time.Millisecond)
	}
	m.settle()
}

// settle waits out the hardware quiesce window after a drain so the
// microphone does not pick up residual playback.
func (m *Machine) settle() {
	if m.cfg.SettleDelay > 0 {
		time.Sleep(m.cfg.SettleDelay)
	}
}

// --- transport event handling ---

// handleBinary runs on the transport goroutine. It is the sole producer
// into the playback ring; everything else it needs is the atomically
// published state.
func (m *Machine) handleBinary(data []byte) {
	switch m.State() {
	case StateWaitingResponse, StatePlayingWeather:
		if m.player.Start() {
			m.logger.Debug("playback stream started", "first_chunk", len(data))
		}
		m.player.Push(data)

	default:
		m.logger.Debug("dropping audio chunk outside playback states",
			"state", m.State().String(), "size", len(data))
	}
}

func (m *Machine) enqueue(ev event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("event queue full, dropping event", "kind", ev.kind)
	}
}

// drainEvents applies queued transport events synchronously, so all state
// transitions happen on the step loop.
func (m *Machine) drainEvents() {
	for {
		select {
		case ev := <-m.events:
			m.applyEvent(ev)
		default:
			return
		}
	}
}

func (m *Machine) applyEvent(ev event) {
	switch ev.kind {
	case evText:
		m.applyTextEvent(ev.text)

	case evPing:
		// A raw transport ping doubles as an end-of-stream marker.
		m.onResponseFinished()

	case evError:
		m.logger.Warn("transport error", "error", ev.err)

	case evDisconnected:
		m.onDisconnected()
	}
}

func (m *Machine) applyTextEvent(ev bridge.TextEvent) {
	switch ev.Kind {
	case bridge.KindResponseFinished:
		m.onResponseFinished()

	case bridge.KindError:
		m.onServerError()

	case bridge.KindPlayWeather:
		m.onPlayWeather(ev.TriggeredBy)

	case bridge.KindPing:
		m.logger.Debug("server heartbeat")

	default:
		m.logger.Debug("unrecognized text event", "payload", string(ev.Raw))
	}
}

// onResponseFinished handles the backend's end-of-stream signal.
func (m *Machine) onResponseFinished() {
	switch m.State() {
	case StateWaitingResponse:
		if m.player.IsActive() {
			m.player.Finish()
			m.setState(StatePlayingFinishedWaiting)
			return
		}
		// Empty reply: nothing was ever streamed, listen again without
		// touching the conversation mode.
		m.logger.Info("response finished with no audio")
		m.enterRecording(m.convo.continuous)

	case StatePlayingWeather:
		if m.player.IsActive() {
			m.player.Finish()
			m.convo.weatherFinishSignaled = true
			return
		}
		// Broadcast with no audio: back to idle, nothing to report.
		m.logger.Warn("weather broadcast carried no audio")
		m.convo.weatherActive = false
		m.convo.weatherTriggeredBy = ""
		m.setState(StateWaitingWakeup)

	default:
		m.logger.Debug("response_finished ignored", "state", m.State().String())
	}
}

// onServerError treats a backend failure as "ask again".
func (m *Machine) onServerError() {
	switch m.State() {
	case StateWaitingResponse, StatePlayingFinishedWaiting:
		m.logger.Warn("server reported an error, rerecording")
		m.cancelPlayback()
		m.enterRecording(m.convo.continuous)

	default:
		m.logger.Debug("server error ignored", "state", m.State().String())
	}
}

// onPlayWeather preempts whatever is happening with a priority broadcast.
func (m *Machine) onPlayWeather(triggeredBy string) {
	m.logger.Info("weather broadcast requested",
		"triggered_by", triggeredBy, "state", m.State().String())

	if m.State() == StateRecording {
		m.recorder.Stop()
	}
	m.recorder.Reset()

	// A preempted reply is abandoned, not drained: its remaining audio
	// would otherwise play ahead of the broadcast.
	m.cancelPlayback()

	m.convo.continuous = false
	m.convo.streaming = false
	m.convo.weatherActive = true
	m.convo.weatherTriggeredBy = triggeredBy
	m.convo.weatherFinishSignaled = false
	m.setState(StatePlayingWeather)
}

// onDisconnected aborts any in-flight conversation; the next wake will
// redial.
func (m *Machine) onDisconnected() {
	if m.State() == StateWaitingWakeup {
		return
	}
	m.logger.Warn("transport dropped, abandoning conversation",
		"state", m.State().String())
	m.cancelPlayback()
	m.recorder.Stop()
	m.convo.reset()
	m.setState(StateWaitingWakeup)
}
