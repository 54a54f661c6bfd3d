package cache

import (
	"sync"
	"time"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

type memoryEntry struct {
	dataset  *fiscal.Dataset
	storedAt time.Time
}

// memoryTier is the short-lived per-process tier. A zero TTL disables it.
type memoryTier struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func newMemoryTier(ttl time.Duration) *memoryTier {
	return &memoryTier{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *memoryTier) get(key string) (*fiscal.Dataset, bool) {
	if m.ttl <= 0 {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.storedAt) > m.ttl {
		delete(m.entries, key)
		return nil, false
	}
	return e.dataset, true
}

func (m *memoryTier) put(key string, ds *fiscal.Dataset) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{dataset: ds, storedAt: m.now()}
}

func (m *memoryTier) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}
