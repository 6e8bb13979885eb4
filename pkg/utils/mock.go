// SPDX-License-Identifier: MIT
package utils

import "sync"

// MockTransport records everything sent to it instead of transmitting.
// It is safe for concurrent use.
type MockTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

// Send stores data for later inspection. Float slices are copied so the
// caller may reuse its buffer.
func (m *MockTransport) Send(data any) error {
	if f, ok := data.([]float64); ok {
		data = append([]float64(nil), f...)
	}
	m.mu.Lock()
	m.sent = append(m.sent, data)
	m.mu.Unlock()
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages received so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.sent...)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

// Closed reports whether Close has been called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
