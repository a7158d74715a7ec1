package docstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore holds documents in process memory. Used for tests and the
// memory backend.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]json.RawMessage
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]json.RawMessage)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if key == "" {
		return nil, ErrInvalidKey
	}
	v, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if key == "" {
		return ErrInvalidKey
	}
	m.docs[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
