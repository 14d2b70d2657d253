package bridge

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Bridge for testing the conversation core.
type Mock struct {
	mu sync.RWMutex

	connected bool

	onConnected    func()
	onDisconnected func()
	onBinary       func(data []byte)
	onText         func(ev TextEvent)
	onPing         func()
	onError        func(err error)

	// Configurable behavior
	ConnectFunc    func(ctx context.Context) error
	SendEventFunc  func(name string) error
	SendBinaryFunc func(data []byte) error
	SendPingFunc   func() error

	// Captured calls for assertions
	EventsSent   []string
	BinarySent   [][]byte
	BinaryTimes  []time.Duration
	PingsSent    int
	ConnectCalls int
}

var _ Bridge = (*Mock)(nil)

// NewMock creates a connected-on-Connect mock bridge.
func NewMock() *Mock {
	return &Mock{}
}

// Connect implements Bridge.
func (m *Mock) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.ConnectCalls++
	m.mu.Unlock()
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	m.mu.Lock()
	m.connected = true
	fn := m.onConnected
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// Disconnect implements Bridge.
func (m *Mock) Disconnect() error {
	m.mu.Lock()
	was := m.connected
	m.connected = false
	fn := m.onDisconnected
	m.mu.Unlock()
	if was && fn != nil {
		fn()
	}
	return nil
}

// Close implements Bridge.
func (m *Mock) Close() error { return m.Disconnect() }

// IsConnected implements Bridge.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SendEvent implements Bridge.
func (m *Mock) SendEvent(name string) error {
	if m.SendEventFunc != nil {
		return m.SendEventFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.EventsSent = append(m.EventsSent, name)
	return nil
}

// SendBinary implements Bridge.
func (m *Mock) SendBinary(data []byte) error {
	return m.SendBinaryTimeout(data, 0)
}

// SendBinaryTimeout implements Bridge.
func (m *Mock) SendBinaryTimeout(data []byte, timeout time.Duration) error {
	if m.SendBinaryFunc != nil {
		return m.SendBinaryFunc(data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.BinarySent = append(m.BinarySent, cp)
	m.BinaryTimes = append(m.BinaryTimes, timeout)
	return nil
}

// SendPing implements Bridge.
func (m *Mock) SendPing() error {
	if m.SendPingFunc != nil {
		return m.SendPingFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.PingsSent++
	return nil
}

// OnConnected implements Bridge.
func (m *Mock) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected implements Bridge.
func (m *Mock) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnBinary implements Bridge.
func (m *Mock) OnBinary(fn func(data []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onBinary = fn
}

// OnText implements Bridge.
func (m *Mock) OnText(fn func(ev TextEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onText = fn
}

// OnPing implements Bridge.
func (m *Mock) OnPing(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPing = fn
}

// OnError implements Bridge.
func (m *Mock) OnError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// SimulateBinary delivers an inbound audio chunk.
func (m *Mock) SimulateBinary(data []byte) {
	m.mu.RLock()
	fn := m.onBinary
	m.mu.RUnlock()
	if fn != nil {
		fn(data)
	}
}

// SimulateText delivers a raw inbound JSON payload.
func (m *Mock) SimulateText(data []byte) {
	m.mu.RLock()
	fn := m.onText
	m.mu.RUnlock()
	if fn != nil {
		fn(ParseTextEvent(data))
	}
}

// SimulateEvent delivers an already-parsed text event.
func (m *Mock) SimulateEvent(ev TextEvent) {
	m.mu.RLock()
	fn := m.onText
	m.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// SimulatePing delivers a transport ping.
func (m *Mock) SimulatePing() {
	m.mu.RLock()
	fn := m.onPing
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SimulateError delivers a transport error.
func (m *Mock) SimulateError(err error) {
	m.mu.RLock()
	fn := m.onError
	m.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// SimulateDrop marks the bridge disconnected and fires the callback, as a
// read failure on the real transport would.
func (m *Mock) SimulateDrop() {
	m.mu.Lock()
	m.connected = false
	fn := m.onDisconnected
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// LastEvent returns the most recent outbound event name, or "".
func (m *Mock) LastEvent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.EventsSent) == 0 {
		return ""
	}
	return m.EventsSent[len(m.EventsSent)-1]
}
