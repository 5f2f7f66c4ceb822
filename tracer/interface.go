package tracer

import (
	"context"
)

// Tracer creates spans on the bridge's TracerProvider and moves trace context across
// process boundaries.
type Tracer interface {
	// StartSpan starts a span as a child of the span in ctx, if any. The span must be
	// ended, usually with defer.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)

	// GetCarrier returns the W3C trace context headers of ctx.
	GetCarrier(ctx context.Context) map[string]string

	// SetCarrierOnContext returns ctx carrying the remote span described by carrier.
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

// Span is a started span.
type Span interface {
	// End completes the span. The span processors convert it at this point.
	End()

	// SetAttributes adds attributes. Values other than string, int, int64, float64
	// and bool are stored in their fmt.Sprint form.
	SetAttributes(attrs map[string]interface{})

	// AddEvent records a timed event.
	AddEvent(name string, attrs map[string]interface{})

	// RecordError adds an exception event and marks the span as failed.
	RecordError(err error)
}
