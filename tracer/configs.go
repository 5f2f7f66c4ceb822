package tracer

// Config configures the TracerProvider that hosts the span processors.
type Config struct {
	// ServiceName is set as the service.name resource attribute of every span.
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`

	// AppEnv is set as deployment.environment and environment.
	AppEnv string `yaml:"app_env" envconfig:"APP_ENV"`

	// EnableExport additionally sends spans to an OTLP/HTTP collector. Conversion by
	// the span processors happens either way.
	EnableExport bool `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT"`

	// Endpoint is the collector host:port. Empty uses the OTEL_EXPORTER_OTLP_* variables
	// and then the exporter default.
	Endpoint string `yaml:"endpoint" envconfig:"TRACER_ENDPOINT"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" envconfig:"TRACER_INSECURE"`

	// SetGlobal installs the provider and the W3C propagators as the otel globals.
	SetGlobal bool `yaml:"set_global" envconfig:"TRACER_SET_GLOBAL"`
}
