// Package capture implements the microphone side of the wisp runtime: the
// linear recording buffer, voice-activity hysteresis over fixed frames, and
// the pre-roll backfill that compensates for detection latency.
//
// Model inference is external: wake-word, VAD, and noise-suppression
// engines are consumed through narrow interfaces and only their outputs
// drive the pipeline. Energy-based reference implementations are bundled
// for development and tests.
package capture

import "math"

// FrameClass is the per-frame VAD verdict.
type FrameClass int

const (
	// FrameSilence marks a frame without voice activity.
	FrameSilence FrameClass = iota
	// FrameSpeech marks a frame with voice activity.
	FrameSpeech
)

// VAD classifies one fixed-duration frame at a time.
type VAD interface {
	// Classify returns the verdict for one frame.
	Classify(frame []int16) FrameClass

	// Reset clears any internal model state between recording sessions.
	Reset()
}

// WakeDetector detects the wake phrase in the microphone stream.
type WakeDetector interface {
	// Detect consumes one frame and reports whether the wake phrase
	// completed on it.
	Detect(frame []int16) bool
}

// NoiseSuppressor denoises one frame. Implementations may return the input
// slice when no processing is needed.
type NoiseSuppressor interface {
	Process(frame []int16) []int16
}

// rms returns the normalized root-mean-square level of a frame, 0..1.
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// EnergyVAD is a pure-Go frame classifier based on RMS energy. It stands in
// for a real model during development; run-length hysteresis lives in
// Session, not here.
type EnergyVAD struct {
	threshold float64
}

// NewEnergyVAD returns an energy classifier. A zero threshold selects a
// default suitable for 16 kHz close-talk capture.
func NewEnergyVAD(threshold float64) *EnergyVAD {
	if threshold <= 0 {
		threshold = 0.015
	}
	return &EnergyVAD{threshold: threshold}
}

// Classify returns FrameSpeech when the frame energy crosses the threshold.
func (v *EnergyVAD) Classify(frame []int16) FrameClass {
	if rms(frame) >= v.threshold {
		return FrameSpeech
	}
	return FrameSilence
}

// Reset is a no-op; the classifier is stateless.
func (v *EnergyVAD) Reset() {}

// EnergyWake is a development stand-in for a wake-word model: it fires
// after a run of consecutive loud frames.
type EnergyWake struct {
	threshold float64
	required  int
	run       int
}

// NewEnergyWake returns a wake detector that triggers after required
// consecutive frames above threshold.
func NewEnergyWake(threshold float64, required int) *EnergyWake {
	if threshold <= 0 {
		threshold = 0.03
	}
	if required <= 0 {
		required = 5
	}
	return &EnergyWake{threshold: threshold, required: required}
}

// Detect reports true on the frame completing the loud run.
func (w *EnergyWake) Detect(frame []int16) bool {
	if rms(frame) >= w.threshold {
		w.run++
		if w.run >= w.required {
			w.run = 0
			return true
		}
		return false
	}
	w.run = 0
	return false
}

// PassthroughNS is the no-op noise suppressor used when no model is
// configured.
type PassthroughNS struct{}

// Process returns the frame unchanged.
func (PassthroughNS) Process(frame []int16) []int16 { return frame }
