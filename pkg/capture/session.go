package capture

// Event is the hysteresis outcome for one observed frame.
type Event int

const (
	// EventNone means nothing changed this frame.
	EventNone Event = iota
	// EventSpeechStart fires on the first speech frame of the session.
	EventSpeechStart
	// EventEndOfSpeech fires on the frame completing the silence run.
	EventEndOfSpeech
)

// Session runs voice-activity hysteresis over a recording session: speech
// is latched on the first SPEECH frame, and end-of-speech requires a run of
// consecutive SILENCE frames so brief pauses do not cut the utterance.
type Session struct {
	vad VAD

	silenceRequired int

	speechDetected  bool
	silenceRun      int
	startedSpeaking bool
	ended           bool
}

// NewSession wraps a frame classifier with run-length hysteresis.
// silenceRequired is the consecutive-silence frame count that ends speech.
func NewSession(vad VAD, silenceRequired int) *Session {
	return &Session{vad: vad, silenceRequired: silenceRequired}
}

// Observe classifies one frame and advances the hysteresis.
func (s *Session) Observe(frame []int16) Event {
	if s.ended {
		return EventNone
	}

	switch s.vad.Classify(frame) {
	case FrameSpeech:
		s.speechDetected = true
		s.silenceRun = 0
		if !s.startedSpeaking {
			s.startedSpeaking = true
			return EventSpeechStart
		}

	case FrameSilence:
		if !s.speechDetected {
			break
		}
		s.silenceRun++
		if s.silenceRun >= s.silenceRequired {
			s.ended = true
			return EventEndOfSpeech
		}
	}
	return EventNone
}

// StartedSpeaking reports whether any speech frame has been observed.
func (s *Session) StartedSpeaking() bool { return s.startedSpeaking }

// SilenceRun returns the current consecutive-silence count, for logging.
func (s *Session) SilenceRun() int { return s.silenceRun }

// Reset rearms the session for a new recording turn.
func (s *Session) Reset() {
	s.speechDetected = false
	s.silenceRun = 0
	s.startedSpeaking = false
	s.ended = false
	s.vad.Reset()
}
