package notify

import (
	"context"
	"sync"
)

// MockAdapter is an in-memory Adapter used by tests across packages.
type MockAdapter struct {
	mu      sync.Mutex
	name    string
	events  []Event
	SendErr error // returned by Send when set
	closed  bool
}

// NewMockAdapter creates a MockAdapter with the given platform name.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{name: name}
}

func (m *MockAdapter) Name() string { return m.name }

func (m *MockAdapter) Send(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of all recorded events.
func (m *MockAdapter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Closed reports whether Close has been called.
func (m *MockAdapter) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
