// Package session implements the conversation orchestrator: the state
// machine that turns wake detection, VAD verdicts, playback completion,
// and inbound backend events into a multi-turn voice conversation.
//
// The machine is the sole owner of the conversation state and mode flags.
// Inbound text events are enqueued as typed messages and drained
// synchronously by the step loop; only the binary audio path touches the
// playback engine from the transport goroutine.
package session

// State is the conversation state. Exactly one value is active at a time,
// owned exclusively by the Machine.
type State int32

const (
	// StateWaitingWakeup is idle listening for the wake phrase.
	StateWaitingWakeup State = iota
	// StateRecording captures and gates an utterance.
	StateRecording
	// StateWaitingResponse streams reply audio from the backend.
	StateWaitingResponse
	// StatePlayingFinishedWaiting waits for the speaker to drain buffered
	// reply audio after the backend signalled completion. The network can
	// say "done" before the hardware has rendered everything; returning to
	// Recording early would capture residual playback.
	StatePlayingFinishedWaiting
	// StatePlayingWeather plays an out-of-band weather broadcast.
	StatePlayingWeather
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateWaitingWakeup:
		return "waiting_wakeup"
	case StateRecording:
		return "recording"
	case StateWaitingResponse:
		return "waiting_response"
	case StatePlayingFinishedWaiting:
		return "playing_finished_waiting"
	case StatePlayingWeather:
		return "playing_weather"
	default:
		return "unknown"
	}
}

// convoContext consolidates the per-conversation mode flags. The Machine
// mutates it only from the step loop.
type convoContext struct {
	// continuous re-arms recording after a reply without a new wake word,
	// bounded by the no-speech timeout.
	continuous bool

	// streaming means pre-roll backfill has run and subsequent microphone
	// blocks are forwarded to the backend live.
	streaming bool

	// weatherActive and weatherTriggeredBy describe an in-flight broadcast.
	weatherActive      bool
	weatherTriggeredBy string

	// weatherFinishSignaled is set once the backend signals end of the
	// broadcast stream; drain completion is then the only remaining gate.
	weatherFinishSignaled bool
}

func (c *convoContext) reset() {
	*c = convoContext{}
}
