package rulesource

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/aalemi-dev/apmbridge/observability"
	"github.com/aalemi-dev/apmbridge/rules"
)

// FXModule provides the rule store, loaded from the configured source.
//
// The module provides:
//  1. Source built from Config.Kind
//  2. *rules.Store serving the table read from the source at startup
//
// When Config.Kafka.Enabled is set, a Watcher applies tables published on the
// update topic; when Config.PollInterval is positive, a Poller re-reads the source.
// Both run between application start and stop.
//
// Usage:
//
//	app := fx.New(
//	    config.FXModule,
//	    rulesource.FXModule,
//	    processor.FXModule,
//	)
var FXModule = fx.Module("rulesource",
	fx.Provide(
		NewSourceWithDI,
		NewStoreWithDI,
	),
	fx.Invoke(RegisterLifecycle),
)

type SourceParams struct {
	fx.In

	Config Config
}

// NewSourceWithDI builds the source selected by the configuration.
func NewSourceWithDI(params SourceParams) (Source, error) {
	return New(params.Config)
}

type StoreParams struct {
	fx.In

	Config   Config
	Source   Source
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewStoreWithDI reads the initial table. With FallbackToDefault a failed read
// serves the embedded table instead of failing startup.
func NewStoreWithDI(params StoreParams) (*rules.Store, error) {
	timeout := params.Config.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	e, err := Load(ctx, params.Source)
	if params.Observer != nil {
		op := observability.OperationContext{
			Component: "rulesource",
			Operation: "load",
			Resource:  params.Source.Name(),
			Duration:  time.Since(start),
			Error:     err,
		}
		if e != nil {
			op.Metadata = map[string]interface{}{"version": e.Version(), "rules": e.Len()}
		}
		params.Observer.ObserveOperation(op)
	}
	if err != nil {
		if !params.Config.FallbackToDefault {
			return nil, err
		}
		if params.Logger != nil {
			params.Logger.WarnWithContext(ctx, "serving embedded rule table", err, map[string]interface{}{
				"source": params.Source.Name(),
			})
		}
		return rules.NewStore(nil), nil
	}

	if params.Logger != nil {
		params.Logger.InfoWithContext(ctx, "rule table loaded", nil, map[string]interface{}{
			"source":  params.Source.Name(),
			"version": e.Version(),
			"rules":   e.Len(),
		})
	}
	return rules.NewStore(e), nil
}

type LifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Source    Source
	Store     *rules.Store
	Logger    Logger                 `optional:"true"`
	Observer  observability.Observer `optional:"true"`
}

// RegisterLifecycle starts the update watcher and the poller when configured, and
// stops them and closes the source on shutdown.
func RegisterLifecycle(params LifeCycleParams) error {
	var watcher *Watcher
	if params.Config.Kafka.Enabled {
		w, err := NewWatcher(params.Config.Kafka, params.Store)
		if err != nil {
			return err
		}
		watcher = w
		if params.Logger != nil {
			watcher.WithLogger(params.Logger)
		}
		if params.Observer != nil {
			watcher.WithObserver(params.Observer)
		}
	}

	var poller *Poller
	if params.Config.PollInterval > 0 {
		poller = NewPoller(params.Source, params.Store, params.Config.PollInterval, params.Config.LoadTimeout)
		if params.Logger != nil {
			poller.WithLogger(params.Logger)
		}
		if params.Observer != nil {
			poller.WithObserver(params.Observer)
		}
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if watcher != nil {
				watcher.Start(ctx)
			}
			if poller != nil {
				poller.Start(ctx)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var errs error
			if watcher != nil {
				errs = multierr.Append(errs, watcher.Stop(ctx))
			}
			if poller != nil {
				errs = multierr.Append(errs, poller.Stop(ctx))
			}
			if c, ok := params.Source.(Closer); ok {
				errs = multierr.Append(errs, c.Close())
			}
			return errs
		},
	})
	return nil
}
