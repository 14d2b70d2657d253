// Package clips loads the fixed prompt sounds the device plays locally:
// the wake greeting, the end-of-recording acknowledgement, and the
// conversation farewell. Clips are opaque PCM byte buffers produced
// offline at the device sample rate.
package clips

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyClip indicates a clip file exists but holds no audio.
var ErrEmptyClip = errors.New("clips: empty clip")

// File names expected under the clips directory.
const (
	GreetingFile    = "greeting.pcm"
	AcknowledgeFile = "acknowledge.pcm"
	FarewellFile    = "farewell.pcm"
)

// Set holds the loaded prompt clips.
type Set struct {
	// Greeting plays after wake-word detection, before recording.
	Greeting []byte
	// Acknowledge plays when an utterance has been accepted.
	Acknowledge []byte
	// Farewell plays when a conversation times out and the device
	// returns to waiting for the wake word.
	Farewell []byte
}

// Load reads all three clips from dir. Every clip must be present and
// non-empty; a device without its prompts is misconfigured.
func Load(dir string) (*Set, error) {
	s := &Set{}
	for _, c := range []struct {
		name string
		dst  *[]byte
	}{
		{GreetingFile, &s.Greeting},
		{AcknowledgeFile, &s.Acknowledge},
		{FarewellFile, &s.Farewell},
	} {
		data, err := os.ReadFile(filepath.Join(dir, c.name))
		if err != nil {
			return nil, fmt.Errorf("clips: load %s: %w", c.name, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyClip, c.name)
		}
		*c.dst = data
	}
	return s, nil
}
