package apm

import "sync"

// Destination is a bit set naming where a trace attribute is reported.
type Destination uint8

const (
	// DestinationCommon attributes are shared by every event of the trace.
	DestinationCommon Destination = 1 << iota
	DestinationTransactionEvent
	DestinationSpanEvent
)

type traceAttribute struct {
	value any
	dest  Destination
}

// TraceAttributes is the attribute store shared by all segments of one transaction.
type TraceAttributes struct {
	mu    sync.RWMutex
	attrs map[string]traceAttribute
}

func newTraceAttributes() *TraceAttributes {
	return &TraceAttributes{attrs: map[string]traceAttribute{}}
}

// AddAttribute stores key for dest, replacing any earlier value.
func (a *TraceAttributes) AddAttribute(dest Destination, key string, value any) {
	a.mu.Lock()
	a.attrs[key] = traceAttribute{value: value, dest: dest}
	a.mu.Unlock()
}

// Get returns the value stored for key.
func (a *TraceAttributes) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.attrs[key]
	return v.value, ok
}

// ForDestination returns every attribute whose destination overlaps dest.
func (a *TraceAttributes) ForDestination(dest Destination) map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]any)
	for k, v := range a.attrs {
		if v.dest&dest != 0 {
			out[k] = v.value
		}
	}
	return out
}
