// Package bridge connects the wisp runtime to the assistant backend over a
// websocket. The runtime consumes inbound events (binary audio chunks, JSON
// text events, transport pings) through callbacks and emits small JSON
// event messages outward.
//
// Transport establishment details and retry policy live behind this
// contract; the conversation core only sees events.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the bridge package.
var (
	// ErrNotConnected indicates the bridge has no active connection.
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrAlreadyConnected indicates Connect was called twice.
	ErrAlreadyConnected = errors.New("bridge: already connected")

	// ErrSendFailed indicates an outbound write failed.
	ErrSendFailed = errors.New("bridge: send failed")
)

// Outbound event names understood by the backend.
const (
	EventRecordingStarted   = "recording_started"
	EventRecordingEnded     = "recording_ended"
	EventRecordingCancelled = "recording_cancelled"
	EventWeatherPlayed      = "weather_played"
)

// TextKind identifies a recognized inbound JSON payload.
type TextKind string

const (
	// KindResponseFinished signals the backend has sent all reply audio.
	KindResponseFinished TextKind = "response_finished"
	// KindError reports a server-side failure for the current turn.
	KindError TextKind = "error"
	// KindPlayWeather requests an out-of-band weather broadcast.
	KindPlayWeather TextKind = "play_weather"
	// KindPing is the backend's JSON heartbeat, informational only.
	KindPing TextKind = "ping"
	// KindUnknown covers payloads the runtime does not recognize.
	KindUnknown TextKind = ""
)

// TextEvent is a parsed inbound JSON payload.
type TextEvent struct {
	Kind TextKind

	// TriggeredBy identifies the originator of a weather broadcast.
	TriggeredBy string

	// Raw is the original payload, for logging.
	Raw []byte
}

// textPayload mirrors the wire shape of inbound JSON events.
type textPayload struct {
	Event       string `json:"event"`
	TriggeredBy string `json:"triggered_by"`
	Message     string `json:"message,omitempty"`
}

// ParseTextEvent decodes one inbound JSON payload. Unrecognized or
// malformed payloads come back as KindUnknown rather than an error: the
// protocol tolerates additions.
func ParseTextEvent(data []byte) TextEvent {
	var p textPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return TextEvent{Kind: KindUnknown, Raw: data}
	}

	ev := TextEvent{Raw: data, TriggeredBy: p.TriggeredBy}
	switch p.Event {
	case string(KindResponseFinished):
		ev.Kind = KindResponseFinished
	case string(KindError):
		ev.Kind = KindError
	case string(KindPlayWeather):
		ev.Kind = KindPlayWeather
	case string(KindPing):
		ev.Kind = KindPing
	default:
		ev.Kind = KindUnknown
	}
	return ev
}

// EncodeEvent builds an outbound {"event": name} message.
func EncodeEvent(name string) ([]byte, error) {
	data, err := json.Marshal(struct {
		Event string `json:"event"`
	}{Event: name})
	if err != nil {
		return nil, fmt.Errorf("bridge: encode event %q: %w", name, err)
	}
	return data, nil
}

// Bridge is the transport contract the conversation core drives.
type Bridge interface {
	// Connect establishes the connection. Call after setting callbacks.
	Connect(ctx context.Context) error

	// Disconnect closes the connection gracefully. The bridge may be
	// reconnected afterwards.
	Disconnect() error

	// IsConnected reports whether a connection is live.
	IsConnected() bool

	// SendEvent emits one outbound {"event": name} message.
	SendEvent(name string) error

	// SendBinary streams one audio chunk to the backend.
	SendBinary(data []byte) error

	// SendBinaryTimeout streams one chunk with an explicit per-send
	// deadline, used by pre-roll backfill.
	SendBinaryTimeout(data []byte, timeout time.Duration) error

	// SendPing emits a transport-level keep-alive ping.
	SendPing() error

	// Callback setters. All callbacks are invoked from the bridge's
	// read goroutine and must not block.
	OnConnected(fn func())
	OnDisconnected(fn func())
	OnBinary(fn func(data []byte))
	OnText(fn func(ev TextEvent))
	OnPing(fn func())
	OnError(fn func(err error))

	// Close tears the bridge down for good.
	Close() error
}
