package capture

import "testing"

// scriptVAD replays a fixed verdict sequence.
type scriptVAD struct {
	classes []FrameClass
	pos     int
	resets  int
}

func (s *scriptVAD) Classify(_ []int16) FrameClass {
	c := s.classes[s.pos]
	s.pos++
	return c
}

func (s *scriptVAD) Reset() { s.resets++ }

func frames(pattern string) []FrameClass {
	out := make([]FrameClass, 0, len(pattern))
	for _, r := range pattern {
		if r == 'S' {
			out = append(out, FrameSpeech)
		} else {
			out = append(out, FrameSilence)
		}
	}
	return out
}

func runSession(t *testing.T, s *Session, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	frame := make([]int16, 480)
	for i := 0; i < n; i++ {
		events = append(events, s.Observe(frame))
	}
	return events
}

func TestSessionHysteresis(t *testing.T) {
	t.Run("end of speech fires on exactly the Kth silence frame", func(t *testing.T) {
		const k = 20
		script := frames("SSS") // speech...
		for i := 0; i < 25; i++ {
			script = append(script, FrameSilence)
		}
		s := NewSession(&scriptVAD{classes: script}, k)

		events := runSession(t, s, len(script))

		if events[0] != EventSpeechStart {
			t.Error("first speech frame should emit EventSpeechStart")
		}
		endAt := -1
		for i, e := range events {
			if e == EventEndOfSpeech {
				if endAt != -1 {
					t.Fatalf("end of speech fired twice (frames %d and %d)", endAt, i)
				}
				endAt = i
			}
		}
		// 3 speech frames then the 20th silence frame is index 3+20-1.
		if want := 3 + k - 1; endAt != want {
			t.Errorf("end of speech at frame %d, want %d", endAt, want)
		}
	})

	t.Run("intervening speech resets the silence run", func(t *testing.T) {
		const k = 5
		// 4 silences, one speech, then the run must start over.
		script := frames("S" + "____" + "S" + "_____")
		s := NewSession(&scriptVAD{classes: script}, k)

		events := runSession(t, s, len(script))

		endAt := -1
		for i, e := range events {
			if e == EventEndOfSpeech {
				endAt = i
			}
		}
		if want := len(script) - 1; endAt != want {
			t.Errorf("end of speech at frame %d, want %d", endAt, want)
		}
	})

	t.Run("silence before any speech never ends the session", func(t *testing.T) {
		script := make([]FrameClass, 100)
		s := NewSession(&scriptVAD{classes: script}, 5)

		for _, e := range runSession(t, s, len(script)) {
			if e != EventNone {
				t.Fatalf("unexpected event %v with no speech observed", e)
			}
		}
		if s.StartedSpeaking() {
			t.Error("startedSpeaking should be false")
		}
	})

	t.Run("speech start fires once per session and again after reset", func(t *testing.T) {
		vad := &scriptVAD{classes: frames("SSSS")}
		s := NewSession(vad, 5)

		events := runSession(t, s, 2)
		if events[0] != EventSpeechStart || events[1] != EventNone {
			t.Errorf("unexpected events %v", events)
		}

		s.Reset()
		if vad.resets != 1 {
			t.Error("reset should propagate to the classifier")
		}
		events = runSession(t, s, 2)
		if events[0] != EventSpeechStart {
			t.Error("speech start should fire again after reset")
		}
	})
}

func TestRecorder(t *testing.T) {
	t.Run("append and overflow", func(t *testing.T) {
		r := NewRecorder(1000, 16000)
		r.Start()

		if err := r.Append(make([]int16, 600)); err != nil {
			t.Fatalf("append: %v", err)
		}
		if err := r.Append(make([]int16, 600)); err != ErrRecordingFull {
			t.Errorf("expected ErrRecordingFull, got %v", err)
		}
		if r.Len() != 600 {
			t.Errorf("rejected append must not change length, got %d", r.Len())
		}
	})

	t.Run("ignores appends while stopped", func(t *testing.T) {
		r := NewRecorder(1000, 16000)
		if err := r.Append(make([]int16, 10)); err != nil {
			t.Fatalf("append while stopped: %v", err)
		}
		if r.Len() != 0 {
			t.Errorf("expected empty buffer, got %d", r.Len())
		}
	})

	t.Run("tail returns min of window and length", func(t *testing.T) {
		r := NewRecorder(1000, 16000)
		r.Start()

		samples := make([]int16, 300)
		for i := range samples {
			samples[i] = int16(i)
		}
		_ = r.Append(samples)

		if got := len(r.Tail(500)); got != 300 {
			t.Errorf("window larger than recording: got %d want 300", got)
		}

		tail := r.Tail(100)
		if len(tail) != 100 {
			t.Fatalf("got %d want 100", len(tail))
		}
		if tail[0] != 200 || tail[99] != 299 {
			t.Errorf("tail should be the most recent samples, got [%d..%d]", tail[0], tail[99])
		}
	})

	t.Run("start resets length", func(t *testing.T) {
		r := NewRecorder(1000, 16000)
		r.Start()
		_ = r.Append(make([]int16, 100))
		r.Start()
		if r.Len() != 0 {
			t.Errorf("start should reset, got %d", r.Len())
		}
	})
}
