package logging

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Clock abstracts wall time so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Metrics is a registry of named uint64 counters and gauges shared by the
// router and the simulation.
type Metrics struct {
	mu     sync.RWMutex
	values map[string]*atomic.Uint64
}

func NewMetrics() *Metrics {
	return &Metrics{values: make(map[string]*atomic.Uint64)}
}

func (m *Metrics) slot(key string) *atomic.Uint64 {
	m.mu.RLock()
	value, ok := m.values[key]
	m.mu.RUnlock()
	if ok {
		return value
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if value, ok = m.values[key]; ok {
		return value
	}
	value = new(atomic.Uint64)
	m.values[key] = value
	return value
}

// TelemetryAdd increments a counter.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Add(delta)
}

// TelemetryStore overwrites a gauge.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.slot(key).Store(value)
}

// Value reads a single counter, zero when it was never touched.
func (m *Metrics) Value(key string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if value, ok := m.values[key]; ok {
		return value.Load()
	}
	return 0
}

// Snapshot copies every counter, keyed by name.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]uint64, len(m.values))
	for key, value := range m.values {
		out[key] = value.Load()
	}
	return out
}

// Keys lists the counter names in sorted order.
func (m *Metrics) Keys() []string {
	snapshot := m.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
