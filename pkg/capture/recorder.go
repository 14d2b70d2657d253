package capture

import (
	"errors"
	"time"
)

// ErrRecordingFull indicates an append would exceed the recording buffer.
// The block is not written; the caller must treat the session as complete.
var ErrRecordingFull = errors.New("capture: recording buffer full")

// Recorder is the linear utterance buffer. It is allocated once and only
// its fill length is reset between conversation turns.
type Recorder struct {
	buf        []int16
	length     int
	recording  bool
	sampleRate int
}

// NewRecorder allocates a buffer holding capacity samples.
func NewRecorder(capacity, sampleRate int) *Recorder {
	return &Recorder{
		buf:        make([]int16, capacity),
		sampleRate: sampleRate,
	}
}

// Start begins a fresh recording session, discarding previous contents.
func (r *Recorder) Start() {
	r.recording = true
	r.length = 0
}

// Stop ends the session; buffered samples stay readable.
func (r *Recorder) Stop() {
	r.recording = false
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool { return r.recording }

// Append adds one microphone block. It rejects the whole block when it
// would overflow; nothing is silently truncated.
func (r *Recorder) Append(samples []int16) error {
	if !r.recording {
		return nil
	}
	if r.length+len(samples) > len(r.buf) {
		return ErrRecordingFull
	}
	copy(r.buf[r.length:], samples)
	r.length += len(samples)
	return nil
}

// Full reports whether the buffer has no room for another block.
func (r *Recorder) Full() bool {
	return r.length >= len(r.buf)
}

// Len returns the recorded length in samples.
func (r *Recorder) Len() int { return r.length }

// Duration returns the recorded length as wall time.
func (r *Recorder) Duration() time.Duration {
	if r.sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(r.length) / float64(r.sampleRate) * float64(time.Second))
}

// Samples returns a view of the recorded samples. The slice aliases the
// internal buffer and is valid until the next Start or Reset.
func (r *Recorder) Samples() []int16 {
	return r.buf[:r.length]
}

// Tail returns the most recent window samples, or everything recorded when
// less than window is held: len(Tail(w)) == min(w, Len()).
func (r *Recorder) Tail(window int) []int16 {
	start := 0
	if r.length > window {
		start = r.length - window
	}
	return r.buf[start:r.length]
}

// Reset discards buffered samples without changing the recording flag.
func (r *Recorder) Reset() {
	r.length = 0
}
