package mapping

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/multierr"
)

// Regex splits an attribute value into several attributes.
//
// With Name and Value set, every match assigns Prefix+match[Name] to match[Value].
// Each entry of Groups either assigns Prefix+group to the group's match or feeds the
// match into a nested Regex.
type Regex struct {
	Statement string       `json:"statement"`
	Flags     string       `json:"flags,omitempty"`
	Groups    []RegexGroup `json:"groups,omitempty"`
	Name      string       `json:"name,omitempty"`
	Value     string       `json:"value,omitempty"`
	Prefix    string       `json:"prefix,omitempty"`
	Target    Target       `json:"target,omitempty"`

	re     *regexp.Regexp
	global bool
}

// RegexGroup names a capture group. It decodes from either a bare group name or an
// object with a nested regex.
type RegexGroup struct {
	Group string `json:"group"`
	Regex *Regex `json:"regex,omitempty"`
}

func (g *RegexGroup) UnmarshalJSON(data []byte) error {
	var name string
	if err := jsoniter.Unmarshal(data, &name); err == nil {
		g.Group = name
		return nil
	}
	type plain RegexGroup
	var p plain
	if err := jsoniter.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = RegexGroup(p)
	return nil
}

// Compile compiles the statement and every nested regex. Flags g, i, m and s are
// supported; g means every match is processed.
func (r *Regex) Compile() error {
	var inline strings.Builder
	for _, f := range r.Flags {
		switch f {
		case 'g':
			r.global = true
		case 'i', 'm', 's':
			inline.WriteRune(f)
		default:
			return fmt.Errorf("%w: flag %q", ErrInvalidRegex, f)
		}
	}
	pattern := r.Statement
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	r.re = re

	var errs error
	if !r.Target.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrInvalidTarget, r.Target))
	}
	if (r.Name == "") != (r.Value == "") {
		errs = multierr.Append(errs, fmt.Errorf("%w: name and value must be set together", ErrInvalidRegex))
	}
	for _, name := range []string{r.Name, r.Value} {
		if name != "" && re.SubexpIndex(name) < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%w: no group %q", ErrInvalidRegex, name))
		}
	}
	for _, g := range r.Groups {
		if re.SubexpIndex(g.Group) < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%w: no group %q", ErrInvalidRegex, g.Group))
		}
		if g.Regex != nil {
			errs = multierr.Append(errs, g.Regex.Compile())
		}
	}
	return errs
}

// ProcessRegex runs r over value and assigns what it captures. target is used when r
// names no target of its own. Uncompiled regexes and empty captures are skipped.
func ProcessRegex(r *Regex, value string, target Target, dst Destination) {
	if r == nil || r.re == nil {
		return
	}
	if r.Target != "" {
		target = r.Target
	}

	var matches [][]string
	if r.global {
		matches = r.re.FindAllStringSubmatch(value, -1)
	} else if m := r.re.FindStringSubmatch(value); m != nil {
		matches = [][]string{m}
	}

	for _, m := range matches {
		if r.Name != "" && r.Value != "" {
			key := m[r.re.SubexpIndex(r.Name)]
			if key != "" {
				AssignToTarget(target, r.Prefix+key, m[r.re.SubexpIndex(r.Value)], dst)
			}
		}
		for _, g := range r.Groups {
			idx := r.re.SubexpIndex(g.Group)
			if idx < 0 || m[idx] == "" {
				continue
			}
			if g.Regex != nil {
				ProcessRegex(g.Regex, m[idx], target, dst)
				continue
			}
			AssignToTarget(target, r.Prefix+g.Group, m[idx], dst)
		}
	}
}
