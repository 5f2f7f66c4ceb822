package processor

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/mapping"
	"github.com/aalemi-dev/apmbridge/observability"
	"github.com/aalemi-dev/apmbridge/synthesizer"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

// Segment attribute keys written when a span ends.
const (
	AttrStatusCode         = "status.code"
	AttrStatusDescription  = "status.description"
	AttrScopeName          = "otel.scope.name"
	AttrScopeVersion       = "otel.scope.version"
	AttrLibraryName        = "otel.library.name"
	AttrLibraryVersion     = "otel.library.version"
	exceptionEventName     = "exception"
	exceptionMessageKey    = "exception.message"
	exceptionTypeKey       = "exception.type"
	exceptionStacktraceKey = "exception.stacktrace"
)

var statusNames = map[codes.Code]string{
	codes.Unset: "unset",
	codes.Ok:    "ok",
	codes.Error: "error",
}

// entry is the state kept for a started span. result is nil for spans that matched
// no rule; ambient is what children of the span run inside.
type entry struct {
	result  *synthesizer.Result
	ambient apm.Ambient
}

// SpanProcessor converts spans into segments and transactions as they start and end.
// It implements sdktrace.SpanProcessor and apm.ContextManager.
type SpanProcessor struct {
	synth        *synthesizer.Synthesizer
	reconciler   *mapping.Reconciler
	namer        *urlnaming.Namer
	highSecurity bool
	fallback     apm.ContextManager
	logger       Logger
	observer     observability.Observer
	pending      PendingGauge

	mu    sync.Mutex
	spans map[trace.SpanID]*entry
}

// NewSpanProcessor returns a processor converting spans with synth. namer may be nil.
func NewSpanProcessor(cfg Config, synth *synthesizer.Synthesizer, namer *urlnaming.Namer) *SpanProcessor {
	return &SpanProcessor{
		synth:        synth,
		reconciler:   mapping.NewReconciler(cfg.Hostname),
		namer:        namer,
		highSecurity: cfg.HighSecurity,
		fallback:     apm.ContextValues{},
		spans:        make(map[trace.SpanID]*entry),
	}
}

// WithLogger attaches a logger to the processor.
func (p *SpanProcessor) WithLogger(l Logger) *SpanProcessor {
	p.logger = l
	return p
}

// WithObserver attaches an observer that receives one operation per converted span
// and per ended transaction.
func (p *SpanProcessor) WithObserver(o observability.Observer) *SpanProcessor {
	p.observer = o
	return p
}

// WithPendingGauge reports the number of open spans to g as spans start and end.
func (p *SpanProcessor) WithPendingGauge(g PendingGauge) *SpanProcessor {
	p.pending = g
	return p
}

// WithContextManager replaces the resolver used when the parent span is unknown to
// the processor. It defaults to apm.ContextValues.
func (p *SpanProcessor) WithContextManager(m apm.ContextManager) *SpanProcessor {
	if m != nil {
		p.fallback = m
	}
	return p
}

// Ambient resolves the transaction and segment active in ctx: the unit of work of the
// span in ctx when this processor started it, otherwise whatever the fallback context
// manager finds. Ended transactions are never returned.
func (p *SpanProcessor) Ambient(ctx context.Context) apm.Ambient {
	if ctx == nil {
		return apm.Ambient{}
	}
	if id := trace.SpanContextFromContext(ctx).SpanID(); id.IsValid() {
		p.mu.Lock()
		e, ok := p.spans[id]
		p.mu.Unlock()
		if ok {
			return apm.Active(e.ambient.Transaction, e.ambient.Segment)
		}
	}
	return p.fallback.Ambient(ctx)
}

// OnStart synthesizes the span and records the result until the span ends.
func (p *SpanProcessor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	start := time.Now()
	inherited := p.Ambient(parent)
	res := p.synth.Synthesize(parent, s, inherited)

	e := &entry{result: res, ambient: inherited}
	if res != nil {
		e.ambient = apm.Ambient{Transaction: res.Transaction, Segment: res.Segment}
	}

	p.mu.Lock()
	p.spans[s.SpanContext().SpanID()] = e
	p.reportPending()
	p.mu.Unlock()

	var metadata map[string]interface{}
	operation := "synthesize"
	resource := ""
	if res == nil {
		operation = "unmatched"
	} else {
		resource = string(res.Type)
		metadata = map[string]interface{}{"rule": res.Rule.Name, "owner": res.Owner}
	}
	p.observeOperation(operation, resource, s.SpanKind().String(), time.Since(start), nil, metadata)
}

// OnEnd completes the segment of a matched span and ends the transaction the span
// created, if any. Spans that matched no rule are only forgotten.
func (p *SpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	id := s.SpanContext().SpanID()

	p.mu.Lock()
	e, ok := p.spans[id]
	p.mu.Unlock()
	if !ok {
		return
	}
	if e.result == nil {
		p.forget(id)
		return
	}

	res := e.result
	seg := res.Segment

	status := s.Status()
	seg.AddAttribute(AttrStatusCode, statusNames[status.Code])
	if status.Description != "" {
		seg.AddAttribute(AttrStatusDescription, status.Description)
	}

	if scope := s.InstrumentationScope(); scope.Name != "" {
		seg.AddAttribute(AttrScopeName, scope.Name)
		seg.AddAttribute(AttrLibraryName, scope.Name)
		if scope.Version != "" {
			seg.AddAttribute(AttrScopeVersion, scope.Version)
			seg.AddAttribute(AttrLibraryVersion, scope.Version)
		}
	}

	seg.SetDuration(s.EndTime().Sub(s.StartTime()))

	if status.Code == codes.Error {
		p.recordExceptions(s, res)
	}

	for _, l := range s.Links() {
		seg.AddSpanLink(apm.SpanLink{
			TraceID:    l.SpanContext.TraceID(),
			SpanID:     l.SpanContext.SpanID(),
			Attributes: mapping.FromKeyValues(l.Attributes),
		})
	}

	for _, ev := range s.Events() {
		seg.AddTimedEvent(apm.TimedEvent{
			Name:       ev.Name,
			Timestamp:  ev.Time,
			Attributes: mapping.FromKeyValues(ev.Attributes),
		})
	}

	attrs := mapping.FromKeyValues(s.Attributes())
	consumed := mapping.KeySet{}
	dst := mapping.Destination{Segment: seg, Transaction: res.Transaction}
	if res.Demoted() {
		dst.Transaction = nil
	}
	mapping.ApplyDirectives(res.Rule.Attributes, attrs, consumed, dst, p.highSecurity)

	p.reconciler.Reconcile(attrs, consumed, seg)

	p.forget(id)

	if res.Owner {
		p.endTransaction(s, res, attrs)
	}
}

// recordExceptions reports every exception event of a failed span against the
// transaction, scoped to the span's segment.
func (p *SpanProcessor) recordExceptions(s sdktrace.ReadOnlySpan, res *synthesizer.Result) {
	seg := res.Segment
	for _, ev := range s.Events() {
		if ev.Name != exceptionEventName {
			continue
		}
		attrs := mapping.FromKeyValues(ev.Attributes)
		typ := stringAttr(attrs, exceptionTypeKey)
		msg := stringAttr(attrs, exceptionMessageKey)
		if msg == "" {
			msg = typ
		}
		if msg == "" {
			msg = "Error in segment " + seg.Name()
		}
		res.Transaction.AddException(apm.Exception{
			Message:   msg,
			Type:      typ,
			Stack:     stringAttr(attrs, exceptionStacktraceKey),
			SegmentID: seg.ID(),
			Time:      ev.Time,
		})
	}
}

func (p *SpanProcessor) endTransaction(s sdktrace.ReadOnlySpan, res *synthesizer.Result, attrs mapping.Attributes) {
	start := time.Now()
	tx := res.Transaction
	ctx := context.Background()

	name := p.finalize(ctx, tx, res.Rule.Transaction, attrs)
	err := tx.End(s.EndTime())
	if err != nil {
		p.logError(ctx, "failed to end transaction", err, map[string]interface{}{
			"transaction": name,
			"trace_id":    tx.TraceID().String(),
			"span_id":     s.SpanContext().SpanID().String(),
		})
	}
	p.observeOperation("end_transaction", string(tx.Type()), name, time.Since(start), err, map[string]interface{}{
		"segments":   len(tx.Segments()),
		"exceptions": len(tx.Exceptions()),
	})
}

func (p *SpanProcessor) forget(id trace.SpanID) {
	p.mu.Lock()
	delete(p.spans, id)
	p.reportPending()
	p.mu.Unlock()
}

// reportPending must be called with p.mu held.
func (p *SpanProcessor) reportPending() {
	if p.pending != nil {
		p.pending.Set(float64(len(p.spans)))
	}
}

// Pending is the number of started spans that have not ended.
func (p *SpanProcessor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.spans)
}

// Shutdown forgets spans that never ended. Their transactions stay open.
func (p *SpanProcessor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	leftover := len(p.spans)
	p.spans = make(map[trace.SpanID]*entry)
	p.reportPending()
	p.mu.Unlock()

	if leftover > 0 {
		p.logWarn(ctx, "span processor stopped with spans still open", nil, map[string]interface{}{
			"pending": leftover,
		})
	}
	return nil
}

// ForceFlush is a no-op: transactions are handed to the sink when they end.
func (p *SpanProcessor) ForceFlush(context.Context) error {
	return nil
}

func stringAttr(attrs mapping.Attributes, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}

func (p *SpanProcessor) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.DebugWithContext(ctx, msg, nil, fields)
	}
}

func (p *SpanProcessor) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (p *SpanProcessor) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (p *SpanProcessor) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
