package services

import (
	"context"
	"sync"
)

// MockEventPublisher records published events for testing
type MockEventPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	Err    error
}

// NewMockEventPublisher creates a new mock publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records the event, or fails with Err when it is set
func (m *MockEventPublisher) Publish(_ context.Context, event OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (m *MockEventPublisher) Events() []OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]OrderEvent, len(m.events))
	copy(events, m.events)
	return events
}

// EventsOfType returns the recorded events with the given routing key
func (m *MockEventPublisher) EventsOfType(eventType string) []OrderEvent {
	var matching []OrderEvent
	for _, event := range m.Events() {
		if event.Type == eventType {
			matching = append(matching, event)
		}
	}
	return matching
}
