package synthesizer

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/mapping"
	"github.com/aalemi-dev/apmbridge/rules"
	"github.com/aalemi-dev/apmbridge/sqlparse"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

// Result is what a span turned into.
type Result struct {
	// Rule is the matched rule.
	Rule *rules.Rule

	// Type is the builder that ran. It differs from Rule.Type when a server or
	// consumer span was demoted to internal inside an active transaction.
	Type rules.Type

	Segment     *apm.Segment
	Transaction *apm.Transaction

	// Owner is set when this span created Transaction and must end it.
	Owner bool
}

// Demoted reports whether a transaction-creating rule ran the internal builder.
func (r *Result) Demoted() bool {
	return r.Rule.Type.CreatesTransaction() && !r.Owner
}

// Synthesizer turns started spans into segments and transactions.
type Synthesizer struct {
	rules        Matcher
	classifier   *sqlparse.Classifier
	namer        *urlnaming.Namer
	sink         apm.TransactionSink
	highSecurity bool
	logger       Logger
}

// New returns a synthesizer for opts.
func New(opts Options) *Synthesizer {
	return &Synthesizer{
		rules:        opts.Rules,
		classifier:   opts.Classifier,
		namer:        opts.Namer,
		sink:         opts.Sink,
		highSecurity: opts.HighSecurity,
	}
}

// WithLogger sets the logger used for no-match and degradation messages.
func (s *Synthesizer) WithLogger(l Logger) *Synthesizer {
	s.logger = l
	return s
}

// Synthesize matches span against the rules and runs the builder for the rule's
// type. ambient is the unit of work the span started in. It returns nil when no rule
// matches or the builder had nothing to attach to.
func (s *Synthesizer) Synthesize(ctx context.Context, span sdktrace.ReadOnlySpan, ambient apm.Ambient) *Result {
	rule := s.rules.Test(span)
	if rule == nil {
		s.logDebug(ctx, "span matched no rule", map[string]interface{}{
			"span": span.Name(),
			"kind": span.SpanKind().String(),
		})
		return nil
	}

	b := build{
		s:       s,
		ctx:     ctx,
		span:    span,
		rule:    rule,
		attrs:   mapping.FromKeyValues(span.Attributes()),
		ambient: ambient,
	}

	var res *Result
	switch rule.Type {
	case rules.TypeServer, rules.TypeConsumer:
		res = b.transaction()
	case rules.TypeProducer:
		res = b.producer()
	case rules.TypeExternal:
		res = b.external()
	case rules.TypeDB:
		res = b.datastore()
	case rules.TypeInternal:
		res = b.internal()
	}
	if res == nil {
		s.logDebug(ctx, "no active transaction for span", map[string]interface{}{
			"span": span.Name(),
			"rule": rule.Name,
		})
	}
	return res
}

func (s *Synthesizer) classify(statement string) sqlparse.Statement {
	if s.classifier == nil {
		return sqlparse.Classify(statement)
	}
	return s.classifier.Classify(statement)
}

func (s *Synthesizer) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.DebugWithContext(ctx, msg, nil, fields)
	}
}

func (s *Synthesizer) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WarnWithContext(ctx, msg, err, fields)
	}
}
