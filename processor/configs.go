package processor

import (
	"context"
)

// Config controls span conversion.
type Config struct {
	// HighSecurity drops every attribute directive flagged highSecurity and omits
	// obfuscated SQL from datastore segments.
	HighSecurity bool `yaml:"high_security" envconfig:"HIGH_SECURITY"`

	// Hostname replaces localhost aliases in hostname attributes. Empty uses the OS
	// hostname.
	Hostname string `yaml:"hostname" envconfig:"HOSTNAME_OVERRIDE"`
}

// Logger is the logging surface the processor needs. *logger.LoggerClient satisfies it.
type Logger interface {
	// DebugWithContext logs a debug message with trace context.
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// PendingGauge receives the number of spans started and not yet ended.
// metrics.Gauge satisfies it.
type PendingGauge interface {
	Set(val float64)
}
