package rules

import (
	"bytes"
	_ "embed"
	"fmt"

	version "github.com/hashicorp/go-version"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/multierr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SupportedVersions is the range of rule table versions Load accepts.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

// DefaultVersion is assumed for tables given as a bare array.
const DefaultVersion = "1.0.0"

var supported = version.MustConstraints(version.NewConstraint(SupportedVersions))

//go:embed default_rules.json
var defaultTable []byte

type document struct {
	Version string  `json:"version"`
	Rules   []*Rule `json:"rules"`
}

// Load parses and validates a rule table. The table is either
// {"version": "x.y.z", "rules": [...]} or a bare array of rules. Every problem in the
// table is reported; a table with any problem is rejected as a whole.
func Load(data []byte) (*Engine, error) {
	var doc document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		doc.Version = DefaultVersion
		if err := json.Unmarshal(trimmed, &doc.Rules); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
		}
	} else if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}

	if doc.Version == "" {
		doc.Version = DefaultVersion
	}
	v, err := version.NewVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, doc.Version, err)
	}
	if !supported.Check(v) {
		return nil, fmt.Errorf("%w: %s not in %s", ErrUnsupportedVersion, v, SupportedVersions)
	}

	var errs error
	seen := make(map[string]struct{}, len(doc.Rules))
	for i, r := range doc.Rules {
		if r == nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: rules[%d] is null", ErrMalformedTable, i))
			continue
		}
		if r.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("rules[%d]: %w", i, ErrMissingName))
		} else if _, dup := seen[r.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("rule %q: %w", r.Name, ErrDuplicateName))
		}
		seen[r.Name] = struct{}{}
		if err := r.compile(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("rule %q: %w", r.Name, err))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return newEngine(v, doc.Rules), nil
}

// Default returns an engine for the embedded default rule table.
func Default() *Engine {
	e, err := Load(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded default table: %v", err))
	}
	return e
}

// DefaultTable returns a copy of the embedded default rule table.
func DefaultTable() []byte {
	return bytes.Clone(defaultTable)
}
