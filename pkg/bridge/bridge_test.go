package bridge

import (
	"context"
	"testing"
	"time"
)

func TestParseTextEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want TextKind
	}{
		{"response finished", `{"event":"response_finished"}`, KindResponseFinished},
		{"server error", `{"event":"error","message":"asr failed"}`, KindError},
		{"play weather", `{"event":"play_weather","triggered_by":"scheduler"}`, KindPlayWeather},
		{"json ping", `{"event":"ping"}`, KindPing},
		{"unknown event", `{"event":"totally_new"}`, KindUnknown},
		{"malformed", `{not json`, KindUnknown},
		{"empty", ``, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ParseTextEvent([]byte(tt.data))
			if ev.Kind != tt.want {
				t.Errorf("kind = %q, want %q", ev.Kind, tt.want)
			}
		})
	}

	t.Run("weather carries the originator", func(t *testing.T) {
		ev := ParseTextEvent([]byte(`{"event":"play_weather","triggered_by":"alice"}`))
		if ev.TriggeredBy != "alice" {
			t.Errorf("triggered_by = %q, want alice", ev.TriggeredBy)
		}
	})
}

func TestEncodeEvent(t *testing.T) {
	data, err := EncodeEvent(EventRecordingStarted)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != `{"event":"recording_started"}` {
		t.Errorf("unexpected payload %s", data)
	}
}

func TestMock(t *testing.T) {
	t.Run("sends require a connection", func(t *testing.T) {
		m := NewMock()
		if err := m.SendEvent(EventRecordingEnded); err != ErrNotConnected {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
		if err := m.Connect(context.Background()); err != nil {
			t.Fatalf("connect: %v", err)
		}
		if err := m.SendEvent(EventRecordingEnded); err != nil {
			t.Errorf("send after connect: %v", err)
		}
		if m.LastEvent() != EventRecordingEnded {
			t.Errorf("last event = %q", m.LastEvent())
		}
	})

	t.Run("binary sends record payload and timeout", func(t *testing.T) {
		m := NewMock()
		_ = m.Connect(context.Background())

		if err := m.SendBinaryTimeout([]byte{1, 2, 3}, 500*time.Millisecond); err != nil {
			t.Fatalf("send: %v", err)
		}
		if len(m.BinarySent) != 1 || len(m.BinarySent[0]) != 3 {
			t.Fatalf("unexpected capture %v", m.BinarySent)
		}
		if m.BinaryTimes[0] != 500*time.Millisecond {
			t.Errorf("timeout = %v", m.BinaryTimes[0])
		}
	})

	t.Run("simulated traffic reaches callbacks", func(t *testing.T) {
		m := NewMock()
		var gotBinary []byte
		var gotText TextEvent
		pings := 0
		m.OnBinary(func(data []byte) { gotBinary = data })
		m.OnText(func(ev TextEvent) { gotText = ev })
		m.OnPing(func() { pings++ })
		_ = m.Connect(context.Background())

		m.SimulateBinary([]byte{9, 9})
		m.SimulateText([]byte(`{"event":"response_finished"}`))
		m.SimulatePing()

		if len(gotBinary) != 2 {
			t.Error("binary callback not invoked")
		}
		if gotText.Kind != KindResponseFinished {
			t.Errorf("text kind = %q", gotText.Kind)
		}
		if pings != 1 {
			t.Errorf("pings = %d", pings)
		}
	})

	t.Run("drop fires disconnect callback once", func(t *testing.T) {
		m := NewMock()
		drops := 0
		m.OnDisconnected(func() { drops++ })
		_ = m.Connect(context.Background())

		m.SimulateDrop()
		if m.IsConnected() {
			t.Error("still connected after drop")
		}
		if drops != 1 {
			t.Errorf("disconnect callbacks = %d", drops)
		}
	})
}
