package tokenstore

import (
	"context"
	"sync"
	"time"
)

// Keys used by the session flow.
const (
	AccessKey  = "access"
	RefreshKey = "refresh"
)

// Store is a string-valued key/value store for session tokens.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	return entry.value, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, updatedAt: m.now()}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// CleanStale drops entries not written since the cutoff.
func (m *Memory) CleanStale(_ context.Context, olderThan time.Duration) (int64, error) {
	cutoff := m.now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, entry := range m.entries {
		if !entry.updatedAt.After(cutoff) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len is used by tests to assert nothing leaked.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Scoped namespaces one backend so it can hold many sessions.
type Scoped struct {
	inner     Store
	namespace string
}

func NewScoped(inner Store, namespace string) *Scoped {
	return &Scoped{inner: inner, namespace: namespace}
}

func (s *Scoped) key(key string) string {
	return s.namespace + ":" + key
}

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.key(key))
}

func (s *Scoped) Set(ctx context.Context, key string, value string) error {
	return s.inner.Set(ctx, s.key(key), value)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.key(key))
}
