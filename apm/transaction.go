package apm

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aalemi-dev/apmbridge/expr"
	"github.com/aalemi-dev/apmbridge/namestate"
)

// TransactionType classifies a transaction for naming and metrics.
type TransactionType string

const (
	TypeWeb        TransactionType = "web"
	TypeMessage    TransactionType = "message"
	TypeBackground TransactionType = "bg"
)

// Known fields accepted by SetField. Anything else is stored as a transaction attribute.
const (
	FieldStatusCode = "statusCode"
	FieldURL        = "url"
	FieldVerb       = "verb"
	FieldHost       = "host"
	FieldPort       = "port"
)

const rootSegmentName = "ROOT"

// Exception is an error reported against a transaction and scoped to a segment.
type Exception struct {
	Message   string
	Type      string
	Stack     string
	SegmentID string
	Time      time.Time
}

// InboundContext is the distributed trace context accepted when the transaction started.
type InboundContext struct {
	TraceID      trace.TraceID
	ParentSpanID trace.SpanID
	TraceFlags   trace.TraceFlags
	TraceState   string
	Remote       bool
	Transport    string
}

// TransactionSink receives every transaction once it has ended.
type TransactionSink interface {
	TransactionEnded(tx *Transaction)
}

// SinkFunc adapts a function to TransactionSink.
type SinkFunc func(tx *Transaction)

func (f SinkFunc) TransactionEnded(tx *Transaction) { f(tx) }

// TransactionOptions configures NewTransaction.
type TransactionOptions struct {
	TraceID trace.TraceID
	Start   time.Time
	Sink    TransactionSink
}

// Transaction is the root of one logical request or message. It ends exactly once.
type Transaction struct {
	mu          sync.Mutex
	id          string
	traceID     trace.TraceID
	typ         TransactionType
	nameState   *namestate.NameState
	root        *Segment
	base        *Segment
	name        string
	partialName string
	statusCode  int
	url         string
	verb        string
	host        string
	port        int
	attrs       map[string]any
	trace       *TraceAttributes
	exceptions  []Exception
	inbound     *InboundContext
	transport   string
	start       time.Time
	end         time.Time
	ended       bool
	metrics     *Metrics
	sink        TransactionSink
}

// NewTransaction creates an open transaction with an empty root segment.
func NewTransaction(opts TransactionOptions) *Transaction {
	start := opts.Start
	if start.IsZero() {
		start = time.Now()
	}
	tx := &Transaction{
		id:        uuid.NewString(),
		traceID:   opts.TraceID,
		typ:       TypeBackground,
		nameState: namestate.New("", "", namestate.DefaultDelimiter, ""),
		attrs:     map[string]any{},
		trace:     newTraceAttributes(),
		start:     start,
		metrics:   newMetrics(),
		sink:      opts.Sink,
	}
	tx.root = &Segment{id: tx.id, name: rootSegmentName, tx: tx, start: start}
	return tx
}

func (t *Transaction) ID() string                      { return t.id }
func (t *Transaction) TraceID() trace.TraceID          { return t.traceID }
func (t *Transaction) NameState() *namestate.NameState { return t.nameState }
func (t *Transaction) Root() *Segment                  { return t.root }
func (t *Transaction) Trace() *TraceAttributes         { return t.trace }
func (t *Transaction) Metrics() *Metrics               { return t.metrics }
func (t *Transaction) Start() time.Time                { return t.start }

// CreateSegment attaches a new segment under opts.Parent, or under the root when
// Parent is nil.
func (t *Transaction) CreateSegment(opts SegmentOptions) (*Segment, error) {
	parent := opts.Parent
	if parent == nil {
		parent = t.root
	}
	if parent.tx != t {
		return nil, ErrForeignSegment
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Now()
	}
	seg := &Segment{
		id:       opts.ID,
		name:     opts.Name,
		parent:   parent,
		tx:       t,
		recorder: opts.Recorder,
		start:    start,
	}
	parent.addChild(seg)
	return seg, nil
}

func (t *Transaction) Type() TransactionType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typ
}

func (t *Transaction) SetType(typ TransactionType) {
	t.mu.Lock()
	t.typ = typ
	t.mu.Unlock()
}

// IsWeb reports whether the transaction is web typed.
func (t *Transaction) IsWeb() bool { return t.Type() == TypeWeb }

func (t *Transaction) BaseSegment() *Segment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.base
}

// SetBaseSegment records seg as the transaction's entry segment. The transaction
// does not own it; seg stays a child of the root.
func (t *Transaction) SetBaseSegment(seg *Segment) {
	t.mu.Lock()
	t.base = seg
	t.mu.Unlock()
}

// Name is the final name, set during finalization.
func (t *Transaction) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// SetName stores the final name. It is ignored once the transaction has ended.
func (t *Transaction) SetName(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return false
	}
	t.name = name
	return true
}

func (t *Transaction) PartialName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.partialName
}

// SetPartialName sets a name that bypasses NameState for non-web transactions.
func (t *Transaction) SetPartialName(name string) {
	t.mu.Lock()
	t.partialName = name
	t.mu.Unlock()
}

// SetField assigns a known field, or a transaction attribute for unknown names.
func (t *Transaction) SetField(name string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch name {
	case FieldStatusCode:
		if code, ok := toInt(value); ok {
			t.statusCode = code
		}
	case FieldURL:
		t.url = expr.ToString(value)
	case FieldVerb:
		t.verb = expr.ToString(value)
	case FieldHost:
		t.host = expr.ToString(value)
	case FieldPort:
		if port, ok := toInt(value); ok {
			t.port = port
		}
	default:
		t.attrs[name] = value
	}
}

func (t *Transaction) StatusCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusCode
}

func (t *Transaction) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func (t *Transaction) Verb() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.verb
}

func (t *Transaction) Host() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.host
}

func (t *Transaction) Port() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port
}

// Attributes returns a copy of the transaction attributes.
func (t *Transaction) Attributes() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]any, len(t.attrs))
	for k, v := range t.attrs {
		out[k] = v
	}
	return out
}

// AddException records an error against the transaction.
func (t *Transaction) AddException(e Exception) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	t.mu.Lock()
	t.exceptions = append(t.exceptions, e)
	t.mu.Unlock()
}

func (t *Transaction) Exceptions() []Exception {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Exception(nil), t.exceptions...)
}

// AcceptTraceContext records the transport the transaction was received over and,
// when parent is valid, the span context it continues.
func (t *Transaction) AcceptTraceContext(parent trace.SpanContext, transport string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transport = transport
	if !parent.IsValid() {
		return
	}
	t.inbound = &InboundContext{
		TraceID:      parent.TraceID(),
		ParentSpanID: parent.SpanID(),
		TraceFlags:   parent.TraceFlags(),
		TraceState:   parent.TraceState().String(),
		Remote:       parent.IsRemote(),
		Transport:    transport,
	}
}

// Inbound returns the accepted trace context, or nil.
func (t *Transaction) Inbound() *InboundContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inbound
}

// TransportType is the transport label passed to AcceptTraceContext.
func (t *Transaction) TransportType() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transport
}

// IsActive reports whether the transaction is still open.
func (t *Transaction) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.ended
}

func (t *Transaction) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ended {
		return 0
	}
	return t.end.Sub(t.start)
}

// End closes the transaction at the given time: it freezes the NameState, records
// metrics for the segments that have a duration and hands the transaction to the sink.
// Segments still running are left out of the metrics. A second call returns
// ErrTransactionEnded and changes nothing.
func (t *Transaction) End(at time.Time) error {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return ErrTransactionEnded
	}
	t.ended = true
	t.end = at
	name := t.name
	sink := t.sink
	t.mu.Unlock()

	t.nameState.Freeze()

	t.root.walk(func(seg *Segment) {
		if r := seg.Recorder(); r != nil && seg.Timed() {
			record(t.metrics, r, seg, name, seg.Duration())
		}
	})

	if sink != nil {
		sink.TransactionEnded(t)
	}
	return nil
}

// Segments returns every segment below the root, depth first.
func (t *Transaction) Segments() []*Segment {
	var out []*Segment
	t.root.walk(func(seg *Segment) {
		if seg != t.root {
			out = append(out, seg)
		}
	})
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
