package rules

import (
	version "github.com/hashicorp/go-version"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/aalemi-dev/apmbridge/mapping"
)

// Producer and internal spans only consult the fallback bucket for now. Rules for those
// kinds land there whatever their name. Adding a kind here opens a primary bucket for it.
var primaryKinds = map[trace.SpanKind]struct{}{
	trace.SpanKindServer:   {},
	trace.SpanKindClient:   {},
	trace.SpanKindConsumer: {},
}

func hasPrimaryBucket(kind trace.SpanKind) bool {
	_, ok := primaryKinds[kind]
	return ok
}

// Engine matches spans against one loaded rule table. It is immutable and safe for
// concurrent use.
type Engine struct {
	version  *version.Version
	rules    []*Rule
	primary  map[trace.SpanKind][]*Rule
	fallback map[trace.SpanKind][]*Rule
}

func newEngine(v *version.Version, rules []*Rule) *Engine {
	e := &Engine{
		version:  v,
		rules:    rules,
		primary:  make(map[trace.SpanKind][]*Rule),
		fallback: make(map[trace.SpanKind][]*Rule),
	}
	for _, r := range rules {
		for _, kind := range r.Matcher.kinds {
			if !r.IsFallback() && hasPrimaryBucket(kind) {
				e.primary[kind] = append(e.primary[kind], r)
			} else {
				e.fallback[kind] = append(e.fallback[kind], r)
			}
		}
	}
	return e
}

// Version is the table version.
func (e *Engine) Version() string {
	return e.version.String()
}

// Rules returns the rules in declaration order.
func (e *Engine) Rules() []*Rule {
	return append([]*Rule(nil), e.rules...)
}

// Len is the number of rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Test returns the rule for span, or nil when no rule matches.
func (e *Engine) Test(span sdktrace.ReadOnlySpan) *Rule {
	return e.Match(span.SpanKind(), mapping.FromKeyValues(span.Attributes()))
}

// Match tries the primary rules for kind in declaration order, then the fallback
// rules. The first matching rule wins.
func (e *Engine) Match(kind trace.SpanKind, attrs mapping.Attributes) *Rule {
	if e == nil {
		return nil
	}
	kind = NormalizeKind(kind)
	for _, r := range e.primary[kind] {
		if r.Matches(attrs) {
			return r
		}
	}
	for _, r := range e.fallback[kind] {
		if r.Matches(attrs) {
			return r
		}
	}
	return nil
}
