package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is the single-instance Store used by tests and small deployments.
// Expiring counters are reaped lazily on access, so no sweeper goroutine.
type Memory struct {
	mu       sync.Mutex
	sets     map[string]map[string]struct{}
	counters map[string]int64
	values   map[string][]byte
	expires  map[string]time.Time

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sets:     map[string]map[string]struct{}{},
		counters: map[string]int64{},
		values:   map[string][]byte{},
		expires:  map[string]time.Time{},
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) SetAdd(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	if s == nil {
		s = map[string]struct{}{}
		m.sets[key] = s
	}
	if _, ok := s[member]; ok {
		return false, nil
	}
	s[member] = struct{}{}
	return true, nil
}

func (m *Memory) SetRemove(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	if s == nil {
		return false, nil
	}
	if _, ok := s[member]; !ok {
		return false, nil
	}
	delete(s, member)
	if len(s) == 0 {
		delete(m.sets, key)
	}
	return true, nil
}

func (m *Memory) SetHas(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sets[key][member]
	return ok, nil
}

func (m *Memory) SetCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sets[key])), nil
}

func (m *Memory) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sets[key]
	out := make([]string, 0, len(s))
	for member := range s {
		out = append(out, member)
	}
	return out, nil
}

func (m *Memory) SetClear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, key)
	return nil
}

func (m *Memory) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] += delta
	return m.counters[key], nil
}

func (m *Memory) Counter(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reapLocked(key)
	return m.counters[key], nil
}

func (m *Memory) IncrWindow(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reapLocked(key)
	if _, ok := m.counters[key]; !ok {
		m.expires[key] = m.now().Add(ttl)
	}
	m.counters[key]++
	return m.counters[key], nil
}

func (m *Memory) reapLocked(key string) {
	if exp, ok := m.expires[key]; ok && !m.now().Before(exp) {
		delete(m.expires, key)
		delete(m.counters, key)
	}
}

func (m *Memory) PutValue(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(value))
	copy(b, value)
	m.values[key] = b
	return nil
}

func (m *Memory) GetValue(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	b := make([]byte, len(v))
	copy(b, v)
	return b, true, nil
}

func (m *Memory) DeleteValue(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) DeleteKeys(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.sets, key)
		delete(m.counters, key)
		delete(m.values, key)
		delete(m.expires, key)
	}
	return nil
}

func (m *Memory) WipePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.sets {
		if strings.HasPrefix(key, prefix) {
			delete(m.sets, key)
		}
	}
	for key := range m.counters {
		if strings.HasPrefix(key, prefix) {
			delete(m.counters, key)
		}
	}
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	for key := range m.expires {
		if strings.HasPrefix(key, prefix) {
			delete(m.expires, key)
		}
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}
