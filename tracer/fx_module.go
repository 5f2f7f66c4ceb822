package tracer

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// FXModule provides the TracerProvider hosting every sdktrace.SpanProcessor in the
// "span_processors" group, in the order fx resolves the group.
//
// The module provides *TracerClient and Tracer. It requires a tracer.Config; the
// Logger is optional.
//
//	app := fx.New(
//	    config.FXModule,
//	    processor.FXModule,
//	    tracer.FXModule,
//	    fx.Invoke(func(t tracer.Tracer) { ... }),
//	)
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClientWithDI,
		fx.Annotate(
			func(t *TracerClient) Tracer { return t },
			fx.As(new(Tracer)),
		),
	),
	fx.Invoke(RegisterTracerLifecycle),
)

type TracerParams struct {
	fx.In

	Config     Config
	Processors []sdktrace.SpanProcessor `group:"span_processors"`
}

// NewClientWithDI builds the client from the fx graph.
func NewClientWithDI(params TracerParams) (*TracerClient, error) {
	return NewClient(params.Config, params.Processors...)
}

// Logger is the logging surface of the tracer lifecycle.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
}

type TracerLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *TracerClient
	Logger    Logger `optional:"true"`
}

// RegisterTracerLifecycle shuts the provider down on stop. Spans still open at that
// point are never converted.
func RegisterTracerLifecycle(params TracerLifeCycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if params.Logger != nil {
				params.Logger.Info("shutting down tracer", nil)
			}
			return params.Client.Shutdown(ctx)
		},
	})
}
