package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache backed by a map. A positive maxEntries
// bounds the cache; once full, the oldest-inserted entries are evicted.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	order      []string
	maxEntries int
}

// NewMemory creates a Memory cache. maxEntries <= 0 means unbounded.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		entries:    make(map[string]Entry),
		maxEntries: maxEntries,
	}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return copyEntry(e), nil
}

func (m *Memory) Put(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		m.order = append(m.order, key)
	}
	m.entries[key] = copyEntry(entry)

	for m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	return nil
}

// Len reports the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats reports the entry count. Byte usage is not tracked in memory.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Entries: int64(len(m.entries))}, nil
}

// Purge drops every entry.
func (m *Memory) Purge(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	m.order = nil
	return nil
}

// copyEntry detaches the top-level fields map so callers on either side
// of the cache cannot mutate each other's view.
func copyEntry(e Entry) Entry {
	if e.Fields == nil {
		return e
	}
	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	return Entry{Fields: fields, Elapsed: e.Elapsed}
}
