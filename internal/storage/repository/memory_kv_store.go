// Package repository implements the platform key-value backends of the storage
// service. Backends persist opaque string values; encryption and JSON handling
// happen above them. Supported backends are in-memory, a JSON file, a Redis hash
// and a PostgreSQL or MySQL table.
package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryKVStore keeps entries in process memory. Used by tests and when no durable
// backend is configured.
type MemoryKVStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryKVStore creates an empty in-memory store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{entries: make(map[string][]byte)}
}

// Get returns the value for key and whether it exists.
func (m *MemoryKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// GetMany returns the values of the keys that exist.
func (m *MemoryKVStore) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := m.entries[key]; ok {
			out[key] = slices.Clone(v)
		}
	}
	return out, nil
}

// Set stores value under key.
func (m *MemoryKVStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = slices.Clone(value)
	return nil
}

// Delete removes the keys. Missing keys are ignored.
func (m *MemoryKVStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (m *MemoryKVStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Close is a no-op.
func (m *MemoryKVStore) Close() error {
	return nil
}
