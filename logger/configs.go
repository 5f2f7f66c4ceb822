package logger

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config configures the zap logger shared by the processor and its rule sources.
type Config struct {
	// Level is the minimum level written: debug, info, warning or error. Unknown values
	// fall back to info. No-match and degraded-input messages are logged at debug.
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`

	// EnableTracing adds trace_id and span_id of the span active in the context to
	// every *WithContext entry.
	EnableTracing bool `yaml:"enable_tracing" envconfig:"LOG_ENABLE_TRACING"`

	// ServiceName populates the "service" field of every entry.
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`

	// CallerSkip is the number of stack frames skipped when reporting the caller.
	// 0 means 1, which points at the code calling the logger directly.
	CallerSkip int `yaml:"caller_skip" envconfig:"LOG_CALLER_SKIP"`
}
