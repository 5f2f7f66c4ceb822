package bridge

import (
	"go.uber.org/fx"

	"github.com/aalemi-dev/apmbridge/config"
	"github.com/aalemi-dev/apmbridge/logger"
	"github.com/aalemi-dev/apmbridge/metrics"
	"github.com/aalemi-dev/apmbridge/processor"
	"github.com/aalemi-dev/apmbridge/rulesource"
	"github.com/aalemi-dev/apmbridge/tracer"
)

// FXModule assembles a complete bridge from a config.Config in the graph: logger,
// metrics, rule store, span processor and the TracerProvider hosting it.
//
// Ended transactions go through the metrics sink to the apm.TransactionSink named
// "downstream", when the application provides one.
var FXModule = fx.Module("bridge",
	config.FXModule,
	logger.FXModule,
	metrics.FXModule,
	rulesource.FXModule,
	processor.FXModule,
	tracer.FXModule,
	fx.Provide(
		fx.Annotate(
			shareLogger,
			fx.As(new(processor.Logger)),
			fx.As(new(rulesource.Logger)),
			fx.As(new(metrics.Logger)),
			fx.As(new(tracer.Logger)),
		),
		fx.Annotate(
			pendingGauge,
			fx.ParamTags(`name:"pending_spans"`),
			fx.ResultTags(`name:"pending_spans"`),
		),
	),
)

func shareLogger(l *logger.LoggerClient) *logger.LoggerClient { return l }

func pendingGauge(g metrics.Gauge) processor.PendingGauge { return g }

// New builds a bridge application from the configuration file at path. opts are
// appended, typically the downstream sink and the application's own invokes.
//
//	app := bridge.New("/etc/apmbridge/config.yaml",
//	    fx.Provide(fx.Annotate(newExporter, fx.As(new(apm.TransactionSink)), fx.ResultTags(`name:"downstream"`))),
//	    fx.Invoke(func(t tracer.Tracer) { ... }),
//	)
//	app.Run()
func New(path string, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{config.FromFile(path), FXModule}, opts...)...)
}
