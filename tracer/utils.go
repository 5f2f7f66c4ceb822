package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	traceSpan "go.opentelemetry.io/otel/trace"
)

// Kind is the span kind. It decides which conversion rules a span is matched against.
type Kind = traceSpan.SpanKind

const (
	KindInternal = traceSpan.SpanKindInternal
	KindServer   = traceSpan.SpanKindServer
	KindClient   = traceSpan.SpanKindClient
	KindProducer = traceSpan.SpanKindProducer
	KindConsumer = traceSpan.SpanKindConsumer
)

// SpanOption configures StartSpan.
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind  Kind
	attrs map[string]interface{}
	links []traceSpan.Link
}

// WithKind sets the span kind. Spans are internal by default.
func WithKind(kind Kind) SpanOption {
	return func(c *spanConfig) { c.kind = kind }
}

// WithAttributes sets attributes at start. Rules only see attributes present when the
// span starts, so routing attributes such as http.request.method belong here.
func WithAttributes(attrs map[string]interface{}) SpanOption {
	return func(c *spanConfig) { c.attrs = attrs }
}

// WithLink links the span to the remote span carried by carrier. Invalid carriers
// are ignored.
func WithLink(carrier map[string]string) SpanOption {
	return func(c *spanConfig) {
		sc := traceSpan.SpanContextFromContext(propagator.Extract(context.Background(), propagation.MapCarrier(carrier)))
		if sc.IsValid() {
			c.links = append(c.links, traceSpan.Link{SpanContext: sc})
		}
	}
}

type spanImpl struct {
	span traceSpan.Span
}

func (s *spanImpl) End() {
	s.span.End()
}

func (s *spanImpl) SetAttributes(attrs map[string]interface{}) {
	if len(attrs) == 0 {
		return
	}
	s.span.SetAttributes(toAttributes(attrs)...)
}

func (s *spanImpl) AddEvent(name string, attrs map[string]interface{}) {
	s.span.AddEvent(name, traceSpan.WithAttributes(toAttributes(attrs)...))
}

func (s *spanImpl) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func toAttributes(attrs map[string]interface{}) []attribute.KeyValue {
	attributes := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			attributes = append(attributes, attribute.String(k, val))
		case int:
			attributes = append(attributes, attribute.Int(k, val))
		case int64:
			attributes = append(attributes, attribute.Int64(k, val))
		case float64:
			attributes = append(attributes, attribute.Float64(k, val))
		case bool:
			attributes = append(attributes, attribute.Bool(k, val))
		default:
			attributes = append(attributes, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return attributes
}

// StartSpan starts a span named name as a child of the span in ctx.
//
//	ctx, span := client.StartSpan(ctx, "orders process",
//	    tracer.WithKind(tracer.KindConsumer),
//	    tracer.WithAttributes(map[string]interface{}{
//	        "messaging.system":           "kafka",
//	        "messaging.destination.name": "orders",
//	    }),
//	)
//	defer span.End()
func (t *TracerClient) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	cfg := spanConfig{kind: KindInternal}
	for _, opt := range opts {
		opt(&cfg)
	}

	startOpts := []traceSpan.SpanStartOption{traceSpan.WithSpanKind(cfg.kind)}
	if len(cfg.attrs) > 0 {
		startOpts = append(startOpts, traceSpan.WithAttributes(toAttributes(cfg.attrs)...))
	}
	if len(cfg.links) > 0 {
		startOpts = append(startOpts, traceSpan.WithLinks(cfg.links...))
	}

	ctx, otSpan := t.tracer.Tracer(t.name).Start(ctx, name, startOpts...)
	return ctx, &spanImpl{span: otSpan}
}

// GetCarrier returns the traceparent, tracestate and baggage headers of ctx.
func (t *TracerClient) GetCarrier(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)
	return carrier
}

// SetCarrierOnContext continues the trace described by carrier. Spans started from
// the returned context are children of the remote span, which makes server and
// consumer spans accept the inbound trace context.
func (t *TracerClient) SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context {
	return propagator.Extract(ctx, propagation.MapCarrier(carrier))
}
