package apm

import (
	"sort"
	"sync"
	"time"
)

// Stats aggregates the timings recorded under one metric name and scope.
type Stats struct {
	Count int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

type metricKey struct {
	name  string
	scope string
}

// Metrics is the per-transaction metric table filled when the transaction ends.
type Metrics struct {
	mu    sync.Mutex
	stats map[metricKey]*Stats
}

func newMetrics() *Metrics {
	return &Metrics{stats: map[metricKey]*Stats{}}
}

// Record adds one observation. An empty scope means unscoped.
func (m *Metrics) Record(name, scope string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := metricKey{name: name, scope: scope}
	s, ok := m.stats[k]
	if !ok {
		m.stats[k] = &Stats{Count: 1, Total: d, Min: d, Max: d}
		return
	}
	s.Count++
	s.Total += d
	if d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
}

func (m *Metrics) Get(name, scope string) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[metricKey{name: name, scope: scope}]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// Names returns the sorted unscoped metric names.
func (m *Metrics) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.stats {
		if k.scope == "" {
			out = append(out, k.name)
		}
	}
	sort.Strings(out)
	return out
}
