package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultReadTimeout      = 120 * time.Second
)

// WebSocket implements Bridge over a gorilla/websocket connection.
type WebSocket struct {
	url    string
	logger *slog.Logger

	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	readTimeout      time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	cancelCtx context.CancelFunc

	onConnected    func()
	onDisconnected func()
	onBinary       func(data []byte)
	onText         func(ev TextEvent)
	onPing         func()
	onError        func(err error)

	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
}

var _ Bridge = (*WebSocket)(nil)

// WebSocketOption customizes a WebSocket bridge.
type WebSocketOption func(*WebSocket)

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) WebSocketOption {
	return func(w *WebSocket) { w.logger = logger }
}

// WithHandshakeTimeout bounds the dial handshake.
func WithHandshakeTimeout(d time.Duration) WebSocketOption {
	return func(w *WebSocket) { w.handshakeTimeout = d }
}

// WithWriteTimeout sets the default per-write deadline.
func WithWriteTimeout(d time.Duration) WebSocketOption {
	return func(w *WebSocket) { w.writeTimeout = d }
}

// WithReadTimeout sets the read inactivity deadline. The backend pings
// periodically, so a healthy connection never hits it.
func WithReadTimeout(d time.Duration) WebSocketOption {
	return func(w *WebSocket) { w.readTimeout = d }
}

// NewWebSocket creates a bridge that dials the given ws:// or wss:// URL.
func NewWebSocket(url string, opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		url:              url,
		handshakeTimeout: defaultHandshakeTimeout,
		writeTimeout:     defaultWriteTimeout,
		readTimeout:      defaultReadTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "bridge.websocket")
	return w
}

// Connect dials the backend and starts the read loop.
func (w *WebSocket) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.connected {
		w.mu.Unlock()
		return ErrAlreadyConnected
	}
	w.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: w.handshakeTimeout,
	}

	w.logger.Info("connecting to backend", "url", w.url)

	conn, resp, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("bridge: dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("bridge: dial failed: %w", err)
	}

	conn.SetPingHandler(func(appData string) error {
		w.emitPing()
		deadline := time.Now().Add(w.writeTimeout)
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), deadline)
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	readCtx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.cancelCtx = cancel
	w.mu.Unlock()

	go w.readLoop(readCtx)

	w.logger.Info("connected to backend")
	w.emitConnected()
	return nil
}

// Disconnect closes the connection gracefully.
func (w *WebSocket) Disconnect() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.connected {
		return nil
	}

	if w.cancelCtx != nil {
		w.cancelCtx()
	}

	if w.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		w.conn.Close()
		w.conn = nil
	}

	w.connected = false
	w.logger.Info("disconnected from backend")
	return nil
}

// Close is Disconnect; the bridge holds no other resources.
func (w *WebSocket) Close() error { return w.Disconnect() }

// IsConnected reports whether a connection is live.
func (w *WebSocket) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// SendEvent emits one outbound {"event": name} message.
func (w *WebSocket) SendEvent(name string) error {
	data, err := EncodeEvent(name)
	if err != nil {
		return err
	}
	if err := w.write(websocket.TextMessage, data, w.writeTimeout); err != nil {
		return err
	}
	w.logger.Debug("event sent", "event", name)
	return nil
}

// SendBinary streams one audio chunk with the default write deadline.
func (w *WebSocket) SendBinary(data []byte) error {
	return w.write(websocket.BinaryMessage, data, w.writeTimeout)
}

// SendBinaryTimeout streams one chunk with an explicit deadline.
func (w *WebSocket) SendBinaryTimeout(data []byte, timeout time.Duration) error {
	return w.write(websocket.BinaryMessage, data, timeout)
}

// SendPing writes a transport-level ping control frame.
func (w *WebSocket) SendPing() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.connected || w.conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(w.writeTimeout)
	if err := w.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrSendFailed, err)
	}
	return nil
}

func (w *WebSocket) write(messageType int, data []byte, timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.connected || w.conn == nil {
		return ErrNotConnected
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := w.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	w.messagesSent.Add(1)
	return nil
}

// readLoop pumps inbound frames into the callbacks until the connection
// drops or Disconnect cancels it.
func (w *WebSocket) readLoop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		wasConnected := w.connected
		w.connected = false
		w.mu.Unlock()
		if wasConnected {
			w.emitDisconnected()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(w.readTimeout))

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Info("connection closed normally")
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			w.logger.Error("read error", "error", err)
			w.emitError(fmt.Errorf("bridge: read failed: %w", err))
			return
		}

		w.messagesReceived.Add(1)

		switch messageType {
		case websocket.BinaryMessage:
			w.emitBinary(data)
		case websocket.TextMessage:
			w.emitText(ParseTextEvent(data))
		}
	}
}

// OnConnected sets the connect callback.
func (w *WebSocket) OnConnected(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onConnected = fn
}

// OnDisconnected sets the disconnect callback.
func (w *WebSocket) OnDisconnected(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDisconnected = fn
}

// OnBinary sets the audio chunk callback.
func (w *WebSocket) OnBinary(fn func(data []byte)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onBinary = fn
}

// OnText sets the text event callback.
func (w *WebSocket) OnText(fn func(ev TextEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onText = fn
}

// OnPing sets the transport ping callback.
func (w *WebSocket) OnPing(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onPing = fn
}

// OnError sets the error callback.
func (w *WebSocket) OnError(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

func (w *WebSocket) emitConnected() {
	w.mu.RLock()
	fn := w.onConnected
	w.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (w *WebSocket) emitDisconnected() {
	w.mu.RLock()
	fn := w.onDisconnected
	w.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (w *WebSocket) emitBinary(data []byte) {
	w.mu.RLock()
	fn := w.onBinary
	w.mu.RUnlock()
	if fn != nil {
		fn(data)
	}
}

func (w *WebSocket) emitText(ev TextEvent) {
	w.mu.RLock()
	fn := w.onText
	w.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (w *WebSocket) emitPing() {
	w.mu.RLock()
	fn := w.onPing
	w.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (w *WebSocket) emitError(err error) {
	w.mu.RLock()
	fn := w.onError
	w.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
