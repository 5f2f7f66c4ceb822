package synthesizer

import (
	"context"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/mapping"
	"github.com/aalemi-dev/apmbridge/rules"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

const (
	// UnknownHost names external calls whose host cannot be derived.
	UnknownHost = "Unknown"

	// DefaultExternalTemplate names external segments when the rule has no template.
	DefaultExternalTemplate = "External/${host}${path}"

	// ServerTransport is the transport label of transactions started by server spans.
	ServerTransport = "HTTPS"

	defaultSystemKey = "messaging.system"
)

// build carries one span through one builder.
type build struct {
	s       *Synthesizer
	ctx     context.Context
	span    sdktrace.ReadOnlySpan
	rule    *rules.Rule
	attrs   mapping.Attributes
	ambient apm.Ambient
}

func (b *build) segmentTransform() *rules.SegmentTransform {
	if b.rule.Segment == nil {
		return &rules.SegmentTransform{}
	}
	return b.rule.Segment
}

// child attaches a segment under the ambient segment. It returns nil outside a
// transaction.
func (b *build) child(name string, rec apm.Recorder) *apm.Segment {
	tx := b.ambient.Transaction
	if tx == nil {
		return nil
	}
	seg, err := tx.CreateSegment(apm.SegmentOptions{
		ID:       b.span.SpanContext().SpanID().String(),
		Name:     name,
		Parent:   b.ambient.Segment,
		Recorder: rec,
		Start:    b.span.StartTime(),
	})
	if err != nil {
		b.s.logWarn(b.ctx, "failed to attach segment", err, map[string]interface{}{"span": b.span.Name()})
		return nil
	}
	return seg
}

func (b *build) result(typ rules.Type, seg *apm.Segment) *Result {
	if seg == nil {
		return nil
	}
	return &Result{Rule: b.rule, Type: typ, Segment: seg, Transaction: seg.Transaction()}
}

// transaction starts a transaction for server and consumer spans, or demotes the
// span to an internal segment when one is already active.
func (b *build) transaction() *Result {
	if b.ambient.Transaction != nil {
		return b.internal()
	}

	transform := b.rule.Transaction
	if transform == nil {
		transform = &rules.TransactionTransform{}
	}

	sc := b.span.SpanContext()
	tx := apm.NewTransaction(apm.TransactionOptions{
		TraceID: sc.TraceID(),
		Start:   b.span.StartTime(),
		Sink:    b.s.sink,
	})

	typ := transform.Type
	transport := ServerTransport
	if b.rule.Type == rules.TypeConsumer {
		if typ == "" {
			typ = apm.TypeMessage
		}
		key := transform.System
		if key == "" {
			key = defaultSystemKey
		}
		transport = attrString(b.attrs, key, UnknownHost)
	} else if typ == "" {
		typ = apm.TypeWeb
	}
	tx.SetType(typ)
	tx.AcceptTraceContext(b.span.Parent(), transport)

	name, ok := transform.Name.Render(b.attrs)
	if !ok {
		name, ok = b.segmentTransform().Name.Render(b.attrs)
	}
	if !ok {
		name = b.span.Name()
	}

	seg, err := tx.CreateSegment(apm.SegmentOptions{
		ID:       sc.SpanID().String(),
		Name:     name,
		Recorder: transactionRecorder(typ),
		Start:    b.span.StartTime(),
	})
	if err != nil {
		b.s.logWarn(b.ctx, "failed to create root segment", err, map[string]interface{}{"span": b.span.Name()})
		return nil
	}
	tx.SetBaseSegment(seg)

	return &Result{Rule: b.rule, Type: b.rule.Type, Segment: seg, Transaction: tx, Owner: true}
}

func transactionRecorder(typ apm.TransactionType) apm.Recorder {
	switch typ {
	case apm.TypeWeb:
		return apm.WebTransactionRecorder{}
	case apm.TypeMessage:
		return apm.MessageTransactionRecorder{}
	}
	return apm.BackgroundTransactionRecorder{}
}

// internal names the segment after the span.
func (b *build) internal() *Result {
	return b.result(rules.TypeInternal, b.child(b.span.Name(), apm.GenericRecorder{}))
}

// producer names the segment from the rule's segment name template.
func (b *build) producer() *Result {
	t := b.segmentTransform()
	name, ok := t.Name.Render(b.attrs)
	if !ok {
		name = b.span.Name()
	}
	system, _ := t.System.ResolveString(b.attrs)
	if system == "" {
		system = attrString(b.attrs, defaultSystemKey, UnknownHost)
	}
	return b.result(rules.TypeProducer, b.child(name, apm.ProducerRecorder{System: system}))
}

// external names outbound calls from their host and obfuscated URL path.
func (b *build) external() *Result {
	t := b.segmentTransform()

	host, ok := t.Host.ResolveString(b.attrs)
	if !ok {
		host = UnknownHost
	}

	var path string
	if raw, ok := t.URL.ResolveString(b.attrs); ok {
		p, err := b.s.namer.ParseAndObfuscate(raw)
		if err != nil {
			b.s.logDebug(b.ctx, "failed to parse external url", map[string]interface{}{
				"url":   raw,
				"error": err.Error(),
			})
		}
		path = p
	}

	template := DefaultExternalTemplate
	if t.Name != nil && t.Name.Template != "" {
		template = t.Name.Template
	}
	data := make(mapping.Attributes, len(b.attrs)+2)
	for k, v := range b.attrs {
		data[k] = v
	}
	data["host"] = host
	data["path"] = path
	name := mapping.TransformTemplate(template, data, externalTemplateRules)
	if t.Name != nil && t.Name.Value != "" {
		name = t.Name.Value
	}

	library := "http"
	if sys, ok := b.attrs["rpc.system"].(string); ok && sys != "" {
		library = sys
	}
	seg := b.child(name, apm.ExternalRecorder{Host: host, Library: library})
	if seg != nil && path != "" && path != urlnaming.UnknownPath {
		seg.AddAttribute("url.path.obfuscated", path)
	}
	return b.result(rules.TypeExternal, seg)
}

// An empty path is intentional; host and path are always derived values.
var externalTemplateRules = mapping.TemplateRules{
	"host": func(v any) any { return v },
	"path": func(v any) any { return v },
}

func attrString(attrs mapping.Attributes, key, fallback string) string {
	if s, ok := attrs[key].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}
