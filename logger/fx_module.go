package logger

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides *LoggerClient and Logger from a logger.Config in the graph and
// flushes the logger on stop.
//
//	app := fx.New(
//	    config.FXModule,
//	    logger.FXModule,
//	    processor.FXModule,
//	)
var FXModule = fx.Module("logger",
	fx.Provide(
		NewLoggerClient,
		fx.Annotate(
			func(l *LoggerClient) Logger { return l },
			fx.As(new(Logger)),
		),
	),
	fx.Invoke(RegisterLoggerLifecycle),
)

// RegisterLoggerLifecycle syncs buffered entries when the application stops.
func RegisterLoggerLifecycle(lc fx.Lifecycle, client *LoggerClient) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Zap.Sync()
		},
	})
}
