package processor

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/observability"
	"github.com/aalemi-dev/apmbridge/rules"
	"github.com/aalemi-dev/apmbridge/sqlparse"
	"github.com/aalemi-dev/apmbridge/synthesizer"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

// FXModule provides the span processor and its collaborators.
//
// The module provides:
//  1. *SpanProcessor for direct use
//  2. sdktrace.SpanProcessor in the "span_processors" group, consumed by the tracer
//  3. apm.ContextManager resolving the active transaction of a context
//  4. *sqlparse.Classifier and *urlnaming.Namer built from their configs
//
// It requires processor.Config, sqlparse.Config, urlnaming.Config and a *rules.Store.
//
// Usage:
//
//	app := fx.New(
//	    config.FXModule,
//	    rulesource.FXModule,
//	    processor.FXModule,
//	    tracer.FXModule,
//	)
var FXModule = fx.Module("processor",
	fx.Provide(
		sqlparse.NewClassifier,
		urlnaming.New,
		NewSpanProcessorWithDI,
		fx.Annotate(
			func(p *SpanProcessor) sdktrace.SpanProcessor { return p },
			fx.ResultTags(`group:"span_processors"`),
		),
		fx.Annotate(
			func(p *SpanProcessor) apm.ContextManager { return p },
			fx.As(new(apm.ContextManager)),
		),
	),
	fx.Invoke(RegisterProcessorLifecycle),
)

type ProcessorParams struct {
	fx.In

	Config     Config
	Rules      *rules.Store
	Classifier *sqlparse.Classifier
	Namer      *urlnaming.Namer
	Sink       apm.TransactionSink    `optional:"true"`
	Logger     Logger                 `optional:"true"`
	Observer   observability.Observer `optional:"true"`
	Pending    PendingGauge           `name:"pending_spans" optional:"true"`
}

// NewSpanProcessorWithDI builds the synthesizer and the processor from the fx graph.
func NewSpanProcessorWithDI(params ProcessorParams) *SpanProcessor {
	synth := synthesizer.New(synthesizer.Options{
		Rules:        params.Rules,
		Classifier:   params.Classifier,
		Namer:        params.Namer,
		Sink:         params.Sink,
		HighSecurity: params.Config.HighSecurity,
	})
	p := NewSpanProcessor(params.Config, synth, params.Namer)

	if params.Logger != nil {
		synth.WithLogger(params.Logger)
		p.logger = params.Logger
	}
	if params.Observer != nil {
		p.observer = params.Observer
	}
	if params.Pending != nil {
		p.pending = params.Pending
	}
	return p
}

type ProcessorLifeCycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Processor  *SpanProcessor
	Classifier *sqlparse.Classifier
	Rules      *rules.Store
}

// RegisterProcessorLifecycle logs the active rule table on start. On stop it drops
// spans that never ended and releases the statement cache.
func RegisterProcessorLifecycle(params ProcessorLifeCycleParams) {
	if params.Processor == nil {
		return
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			params.Processor.logInfo(ctx, "span processor started", map[string]interface{}{
				"rules_version": params.Rules.Version().String(),
				"rules":         params.Rules.Engine().Len(),
				"high_security": params.Processor.highSecurity,
				"hostname":      params.Processor.reconciler.Hostname(),
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := params.Processor.Shutdown(ctx)
			params.Classifier.Stop()
			return err
		},
	})
}
