package apm

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// SpanLink records a link from the originating span to another span context.
type SpanLink struct {
	TraceID    trace.TraceID
	SpanID     trace.SpanID
	Attributes map[string]any
}

// TimedEvent is a span event copied onto a segment.
type TimedEvent struct {
	Name       string
	Timestamp  time.Time
	Attributes map[string]any
}

// SegmentOptions describes a segment to create with Transaction.CreateSegment.
type SegmentOptions struct {
	ID       string
	Name     string
	Parent   *Segment // nil attaches to the transaction root
	Recorder Recorder
	Start    time.Time
}

// Segment is one timed unit of work inside a transaction. It has exactly one parent
// and belongs to exactly one transaction.
type Segment struct {
	mu       sync.Mutex
	id       string
	name     string
	parent   *Segment
	children []*Segment
	tx       *Transaction
	recorder Recorder
	attrs    map[string]any
	start    time.Time
	duration time.Duration
	timed    bool
	links    []SpanLink
	events   []TimedEvent
}

func (s *Segment) ID() string                { return s.id }
func (s *Segment) Parent() *Segment          { return s.parent }
func (s *Segment) Transaction() *Transaction { return s.tx }
func (s *Segment) Start() time.Time          { return s.start }

func (s *Segment) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Segment) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *Segment) Recorder() Recorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder
}

func (s *Segment) SetRecorder(r Recorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

// Children returns a copy of the direct children.
func (s *Segment) Children() []*Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Segment(nil), s.children...)
}

func (s *Segment) addChild(c *Segment) {
	s.mu.Lock()
	s.children = append(s.children, c)
	s.mu.Unlock()
}

func (s *Segment) AddAttribute(key string, value any) {
	s.mu.Lock()
	if s.attrs == nil {
		s.attrs = map[string]any{}
	}
	s.attrs[key] = value
	s.mu.Unlock()
}

func (s *Segment) Attribute(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

// Attributes returns a copy of the segment attributes.
func (s *Segment) Attributes() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.attrs))
	for k, v := range s.attrs {
		out[k] = v
	}
	return out
}

func (s *Segment) SetDuration(d time.Duration) {
	s.mu.Lock()
	s.duration = d
	s.timed = true
	s.mu.Unlock()
}

// Timed reports whether the segment's duration has been set.
func (s *Segment) Timed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timed
}

func (s *Segment) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// DurationMillis is the duration in fractional milliseconds.
func (s *Segment) DurationMillis() float64 {
	return float64(s.Duration()) / float64(time.Millisecond)
}

func (s *Segment) AddSpanLink(l SpanLink) {
	s.mu.Lock()
	s.links = append(s.links, l)
	s.mu.Unlock()
}

func (s *Segment) SpanLinks() []SpanLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SpanLink(nil), s.links...)
}

func (s *Segment) AddTimedEvent(e TimedEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *Segment) TimedEvents() []TimedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TimedEvent(nil), s.events...)
}

// walk visits s and its descendants depth first.
func (s *Segment) walk(fn func(*Segment)) {
	fn(s)
	for _, c := range s.Children() {
		c.walk(fn)
	}
}
