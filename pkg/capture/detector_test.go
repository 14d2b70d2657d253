package capture

import "testing"

func toneFrame(amplitude int16, n int) []int16 {
	f := make([]int16, n)
	for i := range f {
		f[i] = amplitude
	}
	return f
}

func TestEnergyVAD(t *testing.T) {
	vad := NewEnergyVAD(0)

	if got := vad.Classify(make([]int16, 480)); got != FrameSilence {
		t.Error("all-zero frame must be silence")
	}
	if got := vad.Classify(toneFrame(3000, 480)); got != FrameSpeech {
		t.Error("loud frame must be speech")
	}
	if got := vad.Classify(toneFrame(100, 480)); got != FrameSilence {
		t.Error("near-silent frame must be silence")
	}
}

func TestEnergyWake(t *testing.T) {
	t.Run("fires after the required run", func(t *testing.T) {
		w := NewEnergyWake(0, 3)
		loud := toneFrame(5000, 480)

		if w.Detect(loud) || w.Detect(loud) {
			t.Fatal("fired before the run completed")
		}
		if !w.Detect(loud) {
			t.Fatal("should fire on the third consecutive loud frame")
		}
		// Run resets after firing.
		if w.Detect(loud) {
			t.Error("should not refire immediately")
		}
	})

	t.Run("quiet frame resets the run", func(t *testing.T) {
		w := NewEnergyWake(0, 3)
		loud := toneFrame(5000, 480)
		quiet := make([]int16, 480)

		w.Detect(loud)
		w.Detect(loud)
		w.Detect(quiet)
		if w.Detect(loud) || w.Detect(loud) {
			t.Error("run must restart after a quiet frame")
		}
	})
}
