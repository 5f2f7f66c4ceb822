package rules

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/expr"
	"github.com/aalemi-dev/apmbridge/mapping"
)

// Type selects the builder that turns a matched span into APM objects.
type Type string

const (
	TypeServer   Type = "server"
	TypeConsumer Type = "consumer"
	TypeProducer Type = "producer"
	TypeExternal Type = "external"
	TypeDB       Type = "db"
	TypeInternal Type = "internal"
)

// Valid reports whether t is one of the six rule types.
func (t Type) Valid() bool {
	switch t {
	case TypeServer, TypeConsumer, TypeProducer, TypeExternal, TypeDB, TypeInternal:
		return true
	}
	return false
}

// CreatesTransaction reports whether rules of this type start a transaction.
func (t Type) CreatesTransaction() bool {
	return t == TypeServer || t == TypeConsumer
}

// FallbackPrefix marks a rule as a fallback rule.
const FallbackPrefix = "Fallback"

var spanKinds = map[string]trace.SpanKind{
	"server":   trace.SpanKindServer,
	"client":   trace.SpanKindClient,
	"producer": trace.SpanKindProducer,
	"consumer": trace.SpanKindConsumer,
	"internal": trace.SpanKindInternal,
}

// NormalizeKind maps the unspecified kind to internal.
func NormalizeKind(kind trace.SpanKind) trace.SpanKind {
	if kind == trace.SpanKindUnspecified {
		return trace.SpanKindInternal
	}
	return kind
}

// Matcher selects the spans a rule applies to.
type Matcher struct {
	RequiredSpanKinds     []string       `json:"required_span_kinds"`
	RequiredAttributeKeys []string       `json:"required_attribute_keys,omitempty"`
	AttributeConditions   map[string]any `json:"attribute_conditions,omitempty"`

	kinds []trace.SpanKind
}

// NameTransform describes how a name is derived. Prefix, Verb and Path name span
// attribute keys; Template, TemplatePath and TemplateValue are ${key} templates.
type NameTransform struct {
	Template      string `json:"template,omitempty"`
	Value         string `json:"value,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Verb          string `json:"verb,omitempty"`
	Path          string `json:"path,omitempty"`
	TemplatePath  string `json:"templatePath,omitempty"`
	TemplateValue string `json:"templateValue,omitempty"`
}

// Render returns Value, or Template rendered against data.
func (n *NameTransform) Render(data mapping.Attributes) (string, bool) {
	switch {
	case n == nil:
		return "", false
	case n.Value != "":
		return n.Value, true
	case n.Template != "":
		return mapping.TransformTemplate(n.Template, data, nil), true
	}
	return "", false
}

// TransactionTransform is applied when the transaction is finalized.
type TransactionTransform struct {
	Type apm.TransactionType `json:"type,omitempty"`
	Name *NameTransform      `json:"name,omitempty"`
	URL  *mapping.Source     `json:"url,omitempty"`

	// System is the attribute key holding the transport label of consumer spans.
	// It defaults to messaging.system.
	System string `json:"system,omitempty"`
}

// SegmentTransform derives the segment's name and the values the builders need.
type SegmentTransform struct {
	Name       *NameTransform  `json:"name,omitempty"`
	Host       *mapping.Source `json:"host,omitempty"`
	URL        *mapping.Source `json:"url,omitempty"`
	System     *mapping.Source `json:"system,omitempty"`
	Statement  *mapping.Source `json:"statement,omitempty"`
	Collection *mapping.Source `json:"collection,omitempty"`
	Operation  *mapping.Source `json:"operation,omitempty"`
}

// Rule maps one span shape to segment and transaction construction. Rules are
// read-only once loaded.
type Rule struct {
	Name        string                       `json:"name"`
	Type        Type                         `json:"type"`
	Matcher     Matcher                      `json:"matcher"`
	Attributes  []mapping.AttributeDirective `json:"attributes,omitempty"`
	Transaction *TransactionTransform        `json:"transaction,omitempty"`
	Segment     *SegmentTransform            `json:"segment,omitempty"`
}

// IsFallback reports whether the rule is only consulted after the primary rules.
func (r *Rule) IsFallback() bool {
	return strings.HasPrefix(r.Name, FallbackPrefix)
}

// SpanKinds returns the kinds the rule may match.
func (r *Rule) SpanKinds() []trace.SpanKind {
	return r.Matcher.kinds
}

// Matches reports whether attrs carry every required key and satisfy every
// condition. Conditions compare by string form; a list condition matches any member.
func (r *Rule) Matches(attrs mapping.Attributes) bool {
	for _, key := range r.Matcher.RequiredAttributeKeys {
		if _, ok := attrs[key]; !ok {
			return false
		}
	}
	for key, want := range r.Matcher.AttributeConditions {
		got, ok := attrs[key]
		if !ok || !conditionHolds(want, got) {
			return false
		}
	}
	return true
}

func conditionHolds(want, got any) bool {
	s := expr.ToString(got)
	if set, ok := want.([]any); ok {
		for _, w := range set {
			if expr.ToString(w) == s {
				return true
			}
		}
		return false
	}
	return expr.ToString(want) == s
}

// compile validates the rule and prepares its matcher, directives and sources.
func (r *Rule) compile() error {
	var errs error
	if !r.Type.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrUnknownType, r.Type))
	}

	r.Matcher.kinds = r.Matcher.kinds[:0]
	for _, k := range r.Matcher.RequiredSpanKinds {
		kind, ok := spanKinds[strings.ToLower(k)]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrUnknownSpanKind, k))
			continue
		}
		r.Matcher.kinds = append(r.Matcher.kinds, kind)
	}
	if len(r.Matcher.RequiredSpanKinds) == 0 {
		errs = multierr.Append(errs, ErrNoSpanKind)
	}
	for i := range r.Attributes {
		if err := r.Attributes[i].Compile(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("attributes[%d]: %w", i, err))
		}
	}

	if tx := r.Transaction; tx != nil {
		switch tx.Type {
		case "", apm.TypeWeb, apm.TypeMessage, apm.TypeBackground:
		default:
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrInvalidTransactionType, tx.Type))
		}
		errs = multierr.Append(errs, compileSource("transaction.url", tx.URL))
	}

	if seg := r.Segment; seg != nil {
		errs = multierr.Append(errs, compileSource("segment.host", seg.Host))
		errs = multierr.Append(errs, compileSource("segment.url", seg.URL))
		errs = multierr.Append(errs, compileSource("segment.system", seg.System))
		errs = multierr.Append(errs, compileSource("segment.statement", seg.Statement))
		errs = multierr.Append(errs, compileSource("segment.collection", seg.Collection))
		errs = multierr.Append(errs, compileSource("segment.operation", seg.Operation))
	}
	return errs
}

func compileSource(field string, s *mapping.Source) error {
	if s == nil {
		return nil
	}
	if err := s.Compile(); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}
