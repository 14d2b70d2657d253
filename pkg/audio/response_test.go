package audio

import (
	"context"
	"errors"
	"testing"
)

type flakyPlayer struct {
	failures int
	calls    int
	played   [][]byte
}

func (f *flakyPlayer) Play(_ context.Context, pcm []byte) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("i2s write failed")
	}
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	f.played = append(f.played, cp)
	return nil
}

func TestResponsePlayer(t *testing.T) {
	t.Run("rejects oversized response", func(t *testing.T) {
		r := NewResponsePlayer(&flakyPlayer{}, 8, nil)
		if err := r.SetResponse(make([]byte, 9)); !errors.Is(err, ErrResponseTooLarge) {
			t.Errorf("expected ErrResponseTooLarge, got %v", err)
		}
	})

	t.Run("play without data", func(t *testing.T) {
		r := NewResponsePlayer(&flakyPlayer{}, 8, nil)
		if err := r.Play(context.Background()); !errors.Is(err, ErrNoResponse) {
			t.Errorf("expected ErrNoResponse, got %v", err)
		}
	})

	t.Run("retries up to three attempts", func(t *testing.T) {
		fp := &flakyPlayer{failures: 2}
		r := NewResponsePlayer(fp, 64, nil)
		r.Begin()
		if err := r.SetResponse([]byte{1, 2, 3}); err != nil {
			t.Fatalf("set response: %v", err)
		}

		if err := r.Play(context.Background()); err != nil {
			t.Fatalf("play should succeed on third attempt: %v", err)
		}
		if fp.calls != 3 {
			t.Errorf("expected 3 attempts, got %d", fp.calls)
		}
		if !r.Played() {
			t.Error("played flag not set")
		}
	})

	t.Run("gives up after three failures", func(t *testing.T) {
		fp := &flakyPlayer{failures: 5}
		r := NewResponsePlayer(fp, 64, nil)
		r.Begin()
		_ = r.SetResponse([]byte{1})

		if err := r.Play(context.Background()); err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if fp.calls != 3 {
			t.Errorf("expected exactly 3 attempts, got %d", fp.calls)
		}
		if r.Played() {
			t.Error("played flag should not be set")
		}
	})
}
