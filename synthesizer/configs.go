package synthesizer

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/rules"
	"github.com/aalemi-dev/apmbridge/sqlparse"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

// Logger is the logging surface the synthesizer needs. *logger.LoggerClient
// satisfies it.
type Logger interface {
	// DebugWithContext logs a debug message with trace context.
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Matcher finds the rule for a span. *rules.Store and *rules.Engine implement it.
type Matcher interface {
	Test(span sdktrace.ReadOnlySpan) *rules.Rule
}

// Options wires the synthesizer's collaborators.
type Options struct {
	// Rules selects the rule for each span. Required.
	Rules Matcher

	// Classifier parses raw SQL statements. A nil classifier uses sqlparse.Classify
	// without caching or obfuscation.
	Classifier *sqlparse.Classifier

	// Namer obfuscates external URL paths. May be nil.
	Namer *urlnaming.Namer

	// Sink receives transactions created by the synthesizer once they end.
	Sink apm.TransactionSink

	// HighSecurity omits obfuscated SQL from segment attributes.
	HighSecurity bool
}
