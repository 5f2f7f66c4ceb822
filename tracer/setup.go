package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

// TracerClient owns the TracerProvider whose spans are converted by the registered
// span processors. It is safe for concurrent use.
type TracerClient struct {
	tracer *trace.TracerProvider
	name   string
}

// NewClient builds a TracerProvider running every processor in order on each span,
// plus a batching OTLP exporter when export is enabled.
//
//	p := processor.NewSpanProcessor(cfg, synth, namer)
//	client, err := tracer.NewClient(tracer.Config{ServiceName: "checkout"}, p)
//	ctx, span := client.StartSpan(ctx, "GET /users/:id", tracer.WithKind(tracer.KindServer))
func NewClient(cfg Config, processors ...trace.SpanProcessor) (*TracerClient, error) {
	return newClientWithContext(context.Background(), cfg, processors...)
}

func newClientWithContext(ctx context.Context, cfg Config, processors ...trace.SpanProcessor) (*TracerClient, error) {
	var options []trace.TracerProviderOption

	for _, p := range processors {
		if p != nil {
			options = append(options, trace.WithSpanProcessor(p))
		}
	}

	if cfg.EnableExport {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to initialize OTLP exporter: %w", err)
		}
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTLP exporter: %w", err)
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	options = append(options, trace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))

	tp := trace.NewTracerProvider(options...)

	if cfg.SetGlobal {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagator)
	}

	return &TracerClient{tracer: tp, name: cfg.ServiceName}, nil
}

// Provider returns the underlying TracerProvider, for instrumentation libraries that
// take one.
func (t *TracerClient) Provider() *trace.TracerProvider {
	return t.tracer
}

// Shutdown ends every span processor and flushes the exporter.
func (t *TracerClient) Shutdown(ctx context.Context) error {
	if t == nil || t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}
