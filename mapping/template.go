package mapping

import (
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"

	"github.com/aalemi-dev/apmbridge/expr"
)

// Unknown replaces template placeholders that have no usable value.
const Unknown = "unknown"

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Attributes is a flattened view of span attributes.
type Attributes map[string]any

// FromKeyValues converts OpenTelemetry attributes.
func FromKeyValues(kvs []attribute.KeyValue) Attributes {
	out := make(Attributes, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

// KeySet tracks the span attribute keys that were already written somewhere.
type KeySet map[string]struct{}

func (s KeySet) Add(key string) {
	if key != "" {
		s[key] = struct{}{}
	}
}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Func transforms one placeholder value.
type Func func(value any) any

// TemplateRules maps placeholder keys to their transform.
type TemplateRules map[string]Func

// Mapping is a rule-table value mapping: Body is evaluated with Arguments bound
// to the placeholder value.
type Mapping struct {
	Key       string   `json:"key"`
	Arguments []string `json:"arguments"`
	Body      string   `json:"body"`
}

// BuildRuleMappings compiles mappings into template rules. Every failing body is
// reported.
func BuildRuleMappings(mappings []Mapping) (TemplateRules, error) {
	if len(mappings) == 0 {
		return nil, nil
	}
	rules := make(TemplateRules, len(mappings))
	var errs error
	for _, m := range mappings {
		p, err := expr.Compile(m.Body, m.Arguments)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mapping %q: %w", m.Key, err))
			continue
		}
		rules[m.Key] = func(value any) any {
			out, err := p.Eval(value)
			if err != nil {
				return Unknown
			}
			return out
		}
	}
	if errs != nil {
		return nil, errs
	}
	return rules, nil
}

// TransformTemplate replaces every ${key} in template. Absent keys render as
// "unknown". A key with a rule renders the rule's result as is; otherwise falsy values
// render as "unknown".
func TransformTemplate(template string, data Attributes, rules TemplateRules) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := m[2 : len(m)-1]
		v, present := data[key]
		if !present {
			return Unknown
		}
		if fn, ok := rules[key]; ok {
			return expr.ToString(fn(v))
		}
		if !expr.Truthy(v) {
			return Unknown
		}
		return expr.ToString(v)
	})
}

// TemplateKeys lists the placeholder keys of template in order of appearance.
func TemplateKeys(template string) []string {
	var keys []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		keys = append(keys, m[1])
	}
	return keys
}
