package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordedClient(t *testing.T) (*TracerClient, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	client, err := NewClient(Config{ServiceName: "test", AppEnv: "test"}, recorder)
	require.NoError(t, err)
	return client, recorder
}

func attributeMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func onlyEnded(t *testing.T, r *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	ended := r.Ended()
	require.Len(t, ended, 1)
	return ended[0]
}

func TestStartSpan_Defaults(t *testing.T) {
	t.Parallel()
	client, recorder := newRecordedClient(t)

	ctx, span := client.StartSpan(context.Background(), "test-op")
	assert.True(t, trace.SpanFromContext(ctx).IsRecording())
	span.End()

	assert.Equal(t, trace.SpanKindInternal, onlyEnded(t, recorder).SpanKind())
}

func TestStartSpan_KindAndAttributesAtStart(t *testing.T) {
	t.Parallel()
	client, recorder := newRecordedClient(t)

	_, span := client.StartSpan(context.Background(), "GET /users/:id",
		WithKind(KindServer),
		WithAttributes(map[string]interface{}{
			"http.request.method": "GET",
			"http.route":          "/users/:id",
		}),
	)

	started := recorder.Started()
	require.Len(t, started, 1)
	attrs := attributeMap(started[0].Attributes())
	assert.Equal(t, "GET", attrs["http.request.method"].AsString(), "visible to processors at start")
	span.End()

	assert.Equal(t, trace.SpanKindServer, onlyEnded(t, recorder).SpanKind())
}

func TestStartSpan_ChildInheritsParent(t *testing.T) {
	t.Parallel()
	client, _ := newRecordedClient(t)

	parentCtx, parent := client.StartSpan(context.Background(), "parent")
	defer parent.End()
	childCtx, child := client.StartSpan(parentCtx, "child")
	defer child.End()

	parentSC := trace.SpanFromContext(parentCtx).SpanContext()
	childSC := trace.SpanFromContext(childCtx).SpanContext()
	assert.Equal(t, parentSC.TraceID(), childSC.TraceID())
	assert.NotEqual(t, parentSC.SpanID(), childSC.SpanID())
}

func TestStartSpan_WithLink(t *testing.T) {
	t.Parallel()
	client, recorder := newRecordedClient(t)

	remoteCtx, remote := client.StartSpan(context.Background(), "orders publish", WithKind(KindProducer))
	carrier := client.GetCarrier(remoteCtx)
	remote.End()

	_, span := client.StartSpan(context.Background(), "orders process",
		WithKind(KindConsumer),
		WithLink(carrier),
		WithLink(map[string]string{"traceparent": "garbage"}),
	)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	links := ended[1].Links()
	require.Len(t, links, 1)
	assert.Equal(t, ended[0].SpanContext().SpanID(), links[0].SpanContext.SpanID())
}

func TestSetAttributes_AllTypes(t *testing.T) {
	t.Parallel()
	client, recorder := newRecordedClient(t)
	_, span := client.StartSpan(context.Background(), "attrs-op")

	span.SetAttributes(map[string]interface{}{
		"str":     "hello",
		"int":     42,
		"int64":   int64(100),
		"float64": 3.14,
		"bool":    true,
		"other":   []string{"a", "b"},
	})
	span.SetAttributes(map[string]interface{}{})
	span.End()

	attrs := attributeMap(onlyEnded(t, recorder).Attributes())
	assert.Equal(t, "hello", attrs["str"].AsString())
	assert.Equal(t, int64(42), attrs["int"].AsInt64())
	assert.Equal(t, int64(100), attrs["int64"].AsInt64())
	assert.InDelta(t, 3.14, attrs["float64"].AsFloat64(), 1e-9)
	assert.True(t, attrs["bool"].AsBool())
	assert.Equal(t, "[a b]", attrs["other"].AsString())
}

func TestRecordError(t *testing.T) {
	t.Parallel()
	client, recorder := newRecordedClient(t)
	_, span := client.StartSpan(context.Background(), "err-op")

	span.RecordError(nil)
	span.RecordError(errors.New("something went wrong"))
	span.AddEvent("retry", map[string]interface{}{"attempt": 2})
	span.End()

	ended := onlyEnded(t, recorder)
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "something went wrong", ended.Status().Description)

	events := ended.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "exception", events[0].Name)
	assert.Equal(t, "something went wrong", attributeMap(events[0].Attributes)["exception.message"].AsString())
	assert.Equal(t, "retry", events[1].Name)
}

func TestGetCarrier(t *testing.T) {
	t.Parallel()
	client, _ := newRecordedClient(t)

	assert.NotContains(t, client.GetCarrier(context.Background()), "traceparent")

	ctx, span := client.StartSpan(context.Background(), "carrier-op")
	defer span.End()
	assert.Contains(t, client.GetCarrier(ctx), "traceparent")
}

func TestSetCarrierOnContext_RoundTrip(t *testing.T) {
	t.Parallel()
	client, _ := newRecordedClient(t)

	ctx, span := client.StartSpan(context.Background(), "roundtrip-op")
	defer span.End()

	restored := client.SetCarrierOnContext(context.Background(), client.GetCarrier(ctx))

	original := trace.SpanFromContext(ctx).SpanContext()
	remote := trace.SpanContextFromContext(restored)
	assert.True(t, remote.IsValid())
	assert.True(t, remote.IsRemote())
	assert.Equal(t, original.TraceID(), remote.TraceID())
	assert.Equal(t, original.SpanID(), remote.SpanID())

	empty := client.SetCarrierOnContext(context.Background(), map[string]string{})
	assert.False(t, trace.SpanContextFromContext(empty).IsValid())
}
