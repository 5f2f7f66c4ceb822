package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewClient_NoExport(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{ServiceName: "test-service", AppEnv: "test"})
	require.NoError(t, err)
	require.NotNil(t, client.Provider())
	assert.NoError(t, client.Shutdown(context.Background()))
}

func TestNewClient_RunsProcessors(t *testing.T) {
	t.Parallel()
	first, second := tracetest.NewSpanRecorder(), tracetest.NewSpanRecorder()

	client, err := NewClient(Config{ServiceName: "checkout", AppEnv: "test"}, first, nil, second)
	require.NoError(t, err)

	_, span := client.StartSpan(context.Background(), "GET /users/:id")
	span.End()

	for _, r := range []*tracetest.SpanRecorder{first, second} {
		require.Len(t, r.Started(), 1)
		require.Len(t, r.Ended(), 1)
		ended := r.Ended()[0]
		assert.Equal(t, "GET /users/:id", ended.Name())
		assert.Equal(t, "checkout", ended.InstrumentationScope().Name)

		var service string
		for _, kv := range ended.Resource().Attributes() {
			if kv.Key == "service.name" {
				service = kv.Value.AsString()
			}
		}
		assert.Equal(t, "checkout", service)
	}
}

func TestNewClient_EnableExport_NoCollector(t *testing.T) {
	t.Parallel()

	// The OTLP HTTP exporter connects lazily, so NewClient succeeds without a collector.
	client, err := NewClient(Config{
		ServiceName:  "test-service",
		AppEnv:       "production",
		EnableExport: true,
		Endpoint:     "localhost:4318",
		Insecure:     true,
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClient_EnableExport_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, err := newClientWithContext(ctx, Config{ServiceName: "test-service", EnableExport: true})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "failed to initialize OTLP exporter")
}

func TestNewClient_SetGlobal(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	client, err := NewClient(Config{ServiceName: "global", SetGlobal: true})
	require.NoError(t, err)

	global, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok)
	assert.Same(t, client.Provider(), global)
}

func TestShutdown_NilProvider(t *testing.T) {
	t.Parallel()
	assert.NoError(t, (&TracerClient{}).Shutdown(context.Background()))
}
