// Package storage is the storefront's local key/value persistence: the
// equivalent of the browser's localStorage. Values are strings; structured
// values are JSON-encoded by the caller.
package storage

import (
	"context"
	"sync"
)

// Store persists string values by key.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// LastOrderIDKey holds the id of the last order submitted for a tenant.
func LastOrderIDKey(slug string) string { return "last_order_id_" + slug }

// LastViewedStatusKey holds the last order status the customer has seen.
func LastViewedStatusKey(slug string) string { return "last_viewed_status_" + slug }

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
