package config

import (
	"go.uber.org/fx"

	"github.com/aalemi-dev/apmbridge/logger"
	"github.com/aalemi-dev/apmbridge/metrics"
	"github.com/aalemi-dev/apmbridge/processor"
	"github.com/aalemi-dev/apmbridge/rulesource"
	"github.com/aalemi-dev/apmbridge/sqlparse"
	"github.com/aalemi-dev/apmbridge/tracer"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

// FXModule splits a Config in the graph into the per-package configs the other
// modules require. Pair it with FromFile or supply a Config directly.
//
//	app := fx.New(
//	    config.FromFile("/etc/apmbridge/config.yaml"),
//	    config.FXModule,
//	    logger.FXModule,
//	    rulesource.FXModule,
//	    processor.FXModule,
//	    tracer.FXModule,
//	)
var FXModule = fx.Module("config",
	fx.Provide(Split),
)

// Sections carries every per-package config into the graph.
type Sections struct {
	fx.Out

	Logger    logger.Config
	Processor processor.Config
	SQL       sqlparse.Config
	URLs      urlnaming.Config
	Rules     rulesource.Config
	Metrics   metrics.Config
	Tracer    tracer.Config
}

// Split provides the sections of cfg.
func Split(cfg Config) Sections {
	return Sections{
		Logger:    cfg.Logger,
		Processor: cfg.Processor,
		SQL:       cfg.SQL,
		URLs:      cfg.URLs,
		Rules:     cfg.Rules,
		Metrics:   cfg.Metrics,
		Tracer:    cfg.Tracer,
	}
}

// FromFile provides the Config loaded from path. Startup fails when it cannot be
// loaded.
func FromFile(path string) fx.Option {
	return fx.Provide(func() (Config, error) { return Load(path) })
}
