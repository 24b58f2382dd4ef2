package ratelimit

import (
	"context"
	"sync"
	"time"
)

var _ CounterStore = (*MemoryCounter)(nil)

// MemoryCounter is an in-process CounterStore for dev mode and tests. It
// mirrors redis semantics: Incr creates at 1, Expire arms the TTL, expired
// keys reset on the next Incr.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

type memEntry struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{entries: make(map[string]*memEntry), now: time.Now}
}

func (m *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || (!e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)) {
		e = &memEntry{}
		m.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (m *MemoryCounter) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.expiresAt = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryCounter) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.expiresAt.IsZero() {
		return 0, nil
	}
	remaining := e.expiresAt.Sub(m.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}
