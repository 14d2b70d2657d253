package capture

import (
	"errors"
	"testing"
	"time"
)

type recordingSender struct {
	sent    [][]byte
	failAt  int // 1-based send index to fail on, 0 = never
	timeout time.Duration
}

func (r *recordingSender) SendBinaryTimeout(data []byte, timeout time.Duration) error {
	r.timeout = timeout
	if r.failAt > 0 && len(r.sent)+1 == r.failAt {
		return errors.New("send timed out")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	r.sent = append(r.sent, cp)
	return nil
}

func TestBackfill(t *testing.T) {
	opts := BackfillOptions{ChunkSamples: 1000, SendTimeout: 500 * time.Millisecond}

	t.Run("splits into bounded chunks", func(t *testing.T) {
		sender := &recordingSender{}
		samples := make([]int16, 2500)

		sent, err := Backfill(sender, samples, opts, nil)
		if err != nil {
			t.Fatalf("backfill: %v", err)
		}
		if sent != 2500 {
			t.Errorf("sent %d want 2500", sent)
		}
		if len(sender.sent) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(sender.sent))
		}
		if len(sender.sent[0]) != 2000 || len(sender.sent[2]) != 1000 {
			t.Errorf("chunk byte sizes wrong: %d, %d", len(sender.sent[0]), len(sender.sent[2]))
		}
		if sender.timeout != 500*time.Millisecond {
			t.Errorf("per-chunk timeout not applied: %v", sender.timeout)
		}
	})

	t.Run("aborts remainder on first failure", func(t *testing.T) {
		sender := &recordingSender{failAt: 2}
		samples := make([]int16, 3000)

		sent, err := Backfill(sender, samples, opts, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if sent != 1000 {
			t.Errorf("reported %d samples sent, want 1000", sent)
		}
		if len(sender.sent) != 1 {
			t.Errorf("no further chunks may be sent after a failure, got %d", len(sender.sent))
		}
	})

	t.Run("empty window sends nothing", func(t *testing.T) {
		sender := &recordingSender{}
		sent, err := Backfill(sender, nil, opts, nil)
		if err != nil || sent != 0 {
			t.Errorf("got sent=%d err=%v", sent, err)
		}
	})
}
