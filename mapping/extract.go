package mapping

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/aalemi-dev/apmbridge/expr"
)

// Source names where a value comes from: a span attribute key, a literal value or a
// template. Exactly one is normally set; when several are, Key wins over Value and
// Value over Template.
type Source struct {
	Key      string    `json:"key,omitempty"`
	Value    string    `json:"value,omitempty"`
	Template string    `json:"template,omitempty"`
	Mappings []Mapping `json:"mappings,omitempty"`

	rules TemplateRules
}

// Compile builds the source's value mappings.
func (s *Source) Compile() error {
	rules, err := BuildRuleMappings(s.Mappings)
	if err != nil {
		return err
	}
	s.rules = rules
	return nil
}

// IsSet reports whether any origin is configured.
func (s *Source) IsSet() bool {
	return s != nil && (s.Key != "" || s.Value != "" || s.Template != "")
}

// Rules returns the compiled mappings.
func (s *Source) Rules() TemplateRules {
	return s.rules
}

// Resolve is ExtractAttributeValue without consumption tracking.
func (s *Source) Resolve(attrs Attributes) (any, bool) {
	return ExtractAttributeValue(s, "", attrs, nil)
}

// ResolveString resolves the source and renders it as a string. Empty results count
// as missing.
func (s *Source) ResolveString(attrs Attributes) (string, bool) {
	v, ok := s.Resolve(attrs)
	if !ok {
		return "", false
	}
	str := expr.ToString(v)
	return str, str != ""
}

// AttributeDirective is one entry of a rule's attribute list.
type AttributeDirective struct {
	Source
	Regex        *Regex `json:"regex,omitempty"`
	HighSecurity bool   `json:"highSecurity,omitempty"`
	Target       Target `json:"target,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Compile validates the directive and compiles its mappings and regex.
func (d *AttributeDirective) Compile() error {
	var errs error
	if !d.Target.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrInvalidTarget, d.Target))
	}
	if !d.Source.IsSet() {
		errs = multierr.Append(errs, ErrNoSource)
	}
	if d.Regex == nil && d.Name == "" && d.Key == "" {
		errs = multierr.Append(errs, ErrNoName)
	}
	errs = multierr.Append(errs, d.Source.Compile())
	if d.Regex != nil {
		errs = multierr.Append(errs, d.Regex.Compile())
	}
	return errs
}

// DestinationName is the attribute name the directive writes.
func (d *AttributeDirective) DestinationName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Key
}

// ExtractAttributeValue resolves src against attrs.
//
//   - Key: the attribute value; the key is marked consumed.
//   - Value: the literal; name is marked consumed.
//   - Template: the rendered template; nothing is marked, since a template may read
//     many keys.
//
// ok is false when the configured key is absent or nothing is configured. consumed
// may be nil.
func ExtractAttributeValue(src *Source, name string, attrs Attributes, consumed KeySet) (any, bool) {
	switch {
	case src == nil:
		return nil, false
	case src.Key != "":
		v, ok := attrs[src.Key]
		if !ok {
			return nil, false
		}
		if consumed != nil {
			consumed.Add(src.Key)
		}
		if fn, ok := src.rules[src.Key]; ok {
			v = fn(v)
		}
		return v, true
	case src.Value != "":
		if consumed != nil {
			consumed.Add(name)
		}
		return src.Value, true
	case src.Template != "":
		return TransformTemplate(src.Template, attrs, src.rules), true
	}
	return nil, false
}
