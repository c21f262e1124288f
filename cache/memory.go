package cache

import (
	"context"
	"sync"
	"time"

	"github.com/itsneelabh/storesync/core"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	store  map[string]memoryEntry
	logger core.Logger
	now    func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store:  make(map[string]memoryEntry),
		logger: &core.NoOpLogger{},
		now:    time.Now,
	}
}

// SetLogger configures the logger for this store
func (m *MemoryStore) SetLogger(logger core.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Get retrieves a value
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	entry, exists := m.store[key]
	m.mu.RUnlock()

	if !exists {
		m.logger.Debug("Cache miss", map[string]interface{}{
			"operation": "cache_get",
			"key":       key,
			"result":    "miss",
		})
		return "", false, nil
	}

	if entry.expired(m.now()) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := m.store[key]; ok && cur.expired(m.now()) {
			delete(m.store, key)
		}
		m.mu.Unlock()

		m.logger.Debug("Cache entry expired", map[string]interface{}{
			"operation": "cache_get",
			"key":       key,
			"result":    "expired",
		})
		return "", false, nil
	}

	m.logger.Debug("Cache hit", map[string]interface{}{
		"operation":  "cache_get",
		"key":        key,
		"result":     "hit",
		"value_size": len(entry.value),
	})
	return entry.value, true, nil
}

// Set stores a value with optional TTL
func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.store[key] = entry
	m.mu.Unlock()

	m.logger.Debug("Cache set", map[string]interface{}{
		"operation":   "cache_set",
		"key":         key,
		"value_size":  len(value),
		"ttl_seconds": ttl.Seconds(),
	})
	return nil
}

// Delete removes a key
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
