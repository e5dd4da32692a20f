package cache

import (
	"sync"
	"time"
)

type ttlEntry struct {
	value     string
	expiresAt time.Time
}

// TTLMap is a concurrency-safe string map with per-entry expiry. It backs
// the anonymization mapping store when the external backend is unreachable.
type TTLMap struct {
	mu         sync.RWMutex
	data       map[string]*ttlEntry
	defaultTTL time.Duration
}

func NewTTLMap(defaultTTL time.Duration) *TTLMap {
	return &TTLMap{
		data:       make(map[string]*ttlEntry),
		defaultTTL: defaultTTL,
	}
}

// Get returns the value for key if it exists and has not expired. Expired
// entries are removed lazily.
func (m *TTLMap) Get(key string) (string, bool) {
	m.mu.RLock()
	entry, exists := m.data[key]
	if !exists {
		m.mu.RUnlock()
		return "", false
	}
	expired := time.Now().After(entry.expiresAt)
	value := entry.value
	m.mu.RUnlock()

	if expired {
		m.mu.Lock()
		if current, ok := m.data[key]; ok && time.Now().After(current.expiresAt) {
			delete(m.data, key)
		}
		m.mu.Unlock()
		return "", false
	}

	return value, true
}

// Set stores value under key with the map's default TTL.
func (m *TTLMap) Set(key, value string) {
	m.SetWithTTL(key, value, m.defaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
func (m *TTLMap) SetWithTTL(key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = &ttlEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes a key.
func (m *TTLMap) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Len reports the number of entries, including any not yet evicted.
func (m *TTLMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
