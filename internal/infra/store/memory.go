package store

import (
	"strings"
	"sync"
)

// Memory is an in-process KV used when the database cannot be opened and in
// tests. It honours the same quota and ordering rules as DB.
type Memory struct {
	mu         sync.RWMutex
	values     map[string][]byte
	order      []string
	quotaBytes int64
}

// NewMemory creates an empty in-memory store. quotaBytes <= 0 means unlimited.
func NewMemory(quotaBytes int64) *Memory {
	return &Memory{
		values:     make(map[string][]byte),
		quotaBytes: quotaBytes,
	}
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set stores value under key.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quotaBytes > 0 {
		var others int64
		for k, v := range m.values {
			if k != key {
				others += int64(len(v))
			}
		}
		if others+int64(len(value)) > m.quotaBytes {
			return ErrQuotaExceeded
		}
	}

	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

// Delete removes key.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.values[key]; !exists {
		return nil
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Keys returns every key starting with prefix, oldest first.
func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for _, k := range m.order {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// GetStats returns store statistics.
func (m *Memory) GetStats() (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{Entries: len(m.values), QuotaBytes: m.quotaBytes}
	for _, v := range m.values {
		stats.Bytes += int64(len(v))
	}
	return stats, nil
}
