package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/aalemi-dev/apmbridge/logger"
	"github.com/aalemi-dev/apmbridge/metrics"
	"github.com/aalemi-dev/apmbridge/processor"
	"github.com/aalemi-dev/apmbridge/rulesource"
	"github.com/aalemi-dev/apmbridge/sqlparse"
	"github.com/aalemi-dev/apmbridge/tracer"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

// EnvPrefix prefixes every environment override, e.g. APMBRIDGE_LOG_LEVEL.
const EnvPrefix = "APMBRIDGE"

// Default values applied before the file is read.
const (
	DefaultServiceName = "apmbridge"
	DefaultCacheSize   = 1000
)

var (
	// ErrReadFile is returned when the configuration file cannot be read.
	ErrReadFile = errors.New("failed to read configuration file")

	// ErrInvalid is returned when the loaded configuration is inconsistent.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the configuration of a complete bridge, one section per package.
type Config struct {
	Logger    logger.Config     `yaml:"logger"`
	Processor processor.Config  `yaml:"processor"`
	SQL       sqlparse.Config   `yaml:"sql"`
	URLs      urlnaming.Config  `yaml:"urls"`
	Rules     rulesource.Config `yaml:"rules"`
	Metrics   metrics.Config    `yaml:"metrics"`
	Tracer    tracer.Config     `yaml:"tracer"`
}

// Default returns the configuration used when neither the file nor the environment
// set a value.
func Default() Config {
	return Config{
		Logger: logger.Config{
			Level:       logger.Info,
			ServiceName: DefaultServiceName,
		},
		SQL: sqlparse.Config{
			CacheSize: DefaultCacheSize,
			Obfuscate: true,
		},
		Rules: rulesource.Config{
			Kind:        rulesource.KindEmbedded,
			LoadTimeout: rulesource.DefaultLoadTimeout,
		},
		Metrics: metrics.Config{
			ServiceName: DefaultServiceName,
		},
		Tracer: tracer.Config{
			ServiceName: DefaultServiceName,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies APMBRIDGE_*
// environment overrides. An empty path skips the file.
//
//	cfg, err := config.Load("/etc/apmbridge/config.yaml")
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrReadFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv processes every section with the same prefix so variables read
// APMBRIDGE_<TAG> regardless of nesting.
func (c *Config) applyEnv() error {
	sections := []interface{}{
		&c.Logger,
		&c.Processor,
		&c.SQL,
		&c.Rules,
		&c.Rules.File,
		&c.Rules.ObjectStore,
		&c.Rules.Database,
		&c.Rules.Kafka,
		&c.Rules.Kafka.TLS,
		&c.Rules.Kafka.SASL,
		&c.Metrics,
		&c.Tracer,
	}
	for _, s := range sections {
		if err := envconfig.Process(EnvPrefix, s); err != nil {
			return err
		}
	}
	return nil
}

var knownKinds = map[string]bool{
	"":                         true,
	rulesource.KindEmbedded:    true,
	rulesource.KindFile:        true,
	rulesource.KindObjectStore: true,
	rulesource.KindPostgres:    true,
	rulesource.KindMySQL:       true,
}

// Validate reports every inconsistency at once.
func (c Config) Validate() error {
	var errs error
	if !knownKinds[c.Rules.Kind] {
		errs = multierr.Append(errs, fmt.Errorf("%w: rules.kind %q", ErrInvalid, c.Rules.Kind))
	}
	if c.Rules.Kind == rulesource.KindFile && c.Rules.File.Path == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: rules.file.path is required for kind file", ErrInvalid))
	}
	if c.Rules.LoadTimeout < 0 || c.Rules.PollInterval < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: rules durations must not be negative", ErrInvalid))
	}
	if k := c.Rules.Kafka; k.Enabled && (len(k.Brokers) == 0 || k.Topic == "") {
		errs = multierr.Append(errs, fmt.Errorf("%w: rules.kafka needs brokers and a topic when enabled", ErrInvalid))
	}
	if c.SQL.CacheSize < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: sql.cache_size must not be negative", ErrInvalid))
	}
	return errs
}
