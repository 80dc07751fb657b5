// SPDX-License-Identifier: MIT
package utils

import "sync"

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu     sync.Mutex
	events []any
	closed bool
}

// Send stores the event for later inspection instead of transmitting.
func (m *MockTransport) Send(event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of everything sent so far.
func (m *MockTransport) Events() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.events))
	copy(out, m.events)
	return out
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
