package services

import (
	"context"
	"fmt"
	"sync"
)

// MockArchive is an in-memory PayloadArchive for testing
type MockArchive struct {
	objects map[string][]byte // map of key to payload
	mu      sync.RWMutex
	Err     error
}

// NewMockArchive creates a new mock archive
func NewMockArchive() *MockArchive {
	return &MockArchive{
		objects: make(map[string][]byte),
	}
}

// Store keeps a copy of the payload, or fails with Err when it is set
func (m *MockArchive) Store(_ context.Context, key string, payload []byte) error {
	if m.Err != nil {
		return fmt.Errorf("mock archive: %w", m.Err)
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)

	m.mu.Lock()
	m.objects[key] = stored
	m.mu.Unlock()
	return nil
}

// Get returns a stored payload
func (m *MockArchive) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.objects[key]
	return payload, ok
}

// Keys returns every stored key
func (m *MockArchive) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}
