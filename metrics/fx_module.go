package metrics

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/observability"
)

// FXModule serves the bridge metrics.
//
// The module provides:
//  1. *Metrics and MetricsCollector
//  2. observability.Observer recording processor and rule source operations
//  3. apm.TransactionSink recording ended transactions and forwarding them to the
//     sink named "downstream", when one is provided
//  4. the Gauge named "pending_spans"
//
// It requires a metrics.Config. A Logger is optional.
//
//	app := fx.New(
//	    config.FXModule,
//	    metrics.FXModule,
//	    fx.Provide(fx.Annotate(newExporter, fx.As(new(apm.TransactionSink)), fx.ResultTags(`name:"downstream"`))),
//	)
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		fx.Annotate(
			func(m *Metrics) MetricsCollector { return m },
			fx.As(new(MetricsCollector)),
		),
		NewOperationObserver,
		fx.Annotate(
			func(o *OperationObserver) observability.Observer { return o },
			fx.As(new(observability.Observer)),
		),
		NewTransactionSinkWithDI,
		fx.Annotate(
			NewPendingSpansGauge,
			fx.ResultTags(`name:"pending_spans"`),
		),
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

type SinkParams struct {
	fx.In

	Collector  MetricsCollector
	Downstream apm.TransactionSink `name:"downstream" optional:"true"`
}

// NewTransactionSinkWithDI wraps the downstream sink with transaction metrics.
func NewTransactionSinkWithDI(params SinkParams) apm.TransactionSink {
	return NewTransactionSink(params.Collector, params.Downstream)
}

// Logger is the logging surface of the metrics servers.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

type MetricsLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Logger    Logger `optional:"true"`
}

// RegisterMetricsLifecycle starts the configured servers in the background and shuts
// them down on stop.
func RegisterMetricsLifecycle(params MetricsLifeCycleParams) {
	m, log := params.Metrics, params.Logger
	servers := map[string]*http.Server{
		"system":      m.SystemServer,
		"application": m.ApplicationServer,
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for kind, srv := range servers {
				if srv == nil {
					continue
				}
				go func() {
					logInfo(log, "starting metrics server", map[string]interface{}{"endpoint": kind, "address": srv.Addr})
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logError(log, "metrics server failed", err, map[string]interface{}{"endpoint": kind})
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			for kind, srv := range servers {
				if srv == nil {
					continue
				}
				logInfo(log, "shutting down metrics server", map[string]interface{}{"endpoint": kind})
				if err := srv.Shutdown(ctx); err != nil {
					logError(log, "failed to shut down metrics server", err, map[string]interface{}{"endpoint": kind})
				}
			}
			return nil
		},
	})
}

func logInfo(l Logger, msg string, fields map[string]interface{}) {
	if l != nil {
		l.Info(msg, nil, fields)
	}
}

func logError(l Logger, msg string, err error, fields map[string]interface{}) {
	if l != nil {
		l.Error(msg, err, fields)
	}
}
