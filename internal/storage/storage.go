// Package storage provides the persistent key-value substrate that all
// shared state lives in, the stand-in for the browser's per-origin
// localStorage. Operations are synchronous and atomic at single-key
// granularity; multi-key sequences get no transactional guarantee,
// which upper layers depend on as observable behavior.
package storage

import "sync"

// Store is the substrate interface. Get returns the raw stored value
// and whether the key exists; Set and Delete are last-write-wins.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Keys() []string
}

// Memory is a map-backed Store for tests and ephemeral profiles.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
