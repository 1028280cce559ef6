package stats

import (
	"sync"
)

// MemoryFactory keeps every stat in process memory, keyed by StatKey.
// Stats created twice with the same metric and tags share storage.
type MemoryFactory struct {
	mu        sync.Mutex
	values    map[string]*memoryValue
	summaries map[string]*memorySummary
}

func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{
		values:    make(map[string]*memoryValue),
		summaries: make(map[string]*memorySummary),
	}
}

type memoryValue struct {
	mu sync.Mutex
	v  float64
}

func (m *memoryValue) Inc()              { m.Add(1) }
func (m *memoryValue) Dec()              { m.Add(-1) }
func (m *memoryValue) Sub(delta float64) { m.Add(-delta) }

func (m *memoryValue) Add(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v += delta
}

func (m *memoryValue) Set(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v = v
}

func (m *memoryValue) Get() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v
}

// Summary of observed values.
type SummarySnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

type memorySummary struct {
	mu   sync.Mutex
	snap SummarySnapshot
}

func (m *memorySummary) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Count == 0 || v < m.snap.Min {
		m.snap.Min = v
	}
	if m.snap.Count == 0 || v > m.snap.Max {
		m.snap.Max = v
	}
	m.snap.Count++
	m.snap.Sum += v
}

func (f *MemoryFactory) value(metric string, tags map[string]string) *memoryValue {
	key := StatKey(metric, tags)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		v = &memoryValue{}
		f.values[key] = v
	}
	return v
}

func (f *MemoryFactory) NewCounter(
	metric string, tags map[string]string) CounterStat {

	return f.value(metric, tags)
}

func (f *MemoryFactory) NewGauge(
	metric string, tags map[string]string) GaugeStat {

	return f.value(metric, tags)
}

func (f *MemoryFactory) NewSummary(
	metric string, tags map[string]string) SummaryStat {

	key := StatKey(metric, tags)
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[key]
	if !ok {
		s = &memorySummary{}
		f.summaries[key] = s
	}
	return s
}

// Current value of a counter or gauge.  Returns false if nothing with that
// metric and tags was ever created.
func (f *MemoryFactory) Value(metric string, tags map[string]string) (float64, bool) {
	f.mu.Lock()
	v, ok := f.values[StatKey(metric, tags)]
	f.mu.Unlock()
	if !ok {
		return 0, false
	}
	return v.Get(), true
}

func (f *MemoryFactory) Summary(
	metric string, tags map[string]string) (SummarySnapshot, bool) {

	f.mu.Lock()
	s, ok := f.summaries[StatKey(metric, tags)]
	f.mu.Unlock()
	if !ok {
		return SummarySnapshot{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, true
}

// All counter and gauge values keyed by StatKey.
func (f *MemoryFactory) Values() map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.values))
	for k, v := range f.values {
		out[k] = v.Get()
	}
	return out
}
