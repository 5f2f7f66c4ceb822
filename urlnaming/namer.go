package urlnaming

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

// UnknownPath is used when a URL cannot be parsed.
const UnknownPath = "/Unknown"

// ReplacementRule rewrites matching parts of a path, e.g. numeric ids.
type ReplacementRule struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

// NamingRule maps matching paths to a user chosen name. Name may reference capture
// groups ($1). Terminate stops evaluation after the rule matches.
type NamingRule struct {
	Pattern   string `yaml:"pattern" json:"pattern"`
	Name      string `yaml:"name" json:"name"`
	Terminate bool   `yaml:"terminate" json:"terminate"`
}

// Config holds the URL obfuscation and naming rules.
type Config struct {
	// Obfuscation rules apply to every path before naming, in order.
	Obfuscation []ReplacementRule `yaml:"obfuscation"`

	// NamingRules override transaction names for matching paths, in order.
	NamingRules []NamingRule `yaml:"naming_rules"`
}

type replacement struct {
	re   *regexp.Regexp
	with string
}

type naming struct {
	re        *regexp.Regexp
	name      string
	terminate bool
}

// Namer obfuscates URL paths and applies user naming rules. It is immutable.
type Namer struct {
	obfuscation []replacement
	naming      []naming
}

// New compiles cfg. Every invalid pattern is reported.
func New(cfg Config) (*Namer, error) {
	n := &Namer{}
	var errs error
	for i, r := range cfg.Obfuscation {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: obfuscation[%d]: %v", ErrInvalidPattern, i, err))
			continue
		}
		n.obfuscation = append(n.obfuscation, replacement{re: re, with: r.Replacement})
	}
	for i, r := range cfg.NamingRules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: naming_rules[%d]: %v", ErrInvalidPattern, i, err))
			continue
		}
		n.naming = append(n.naming, naming{re: re, name: r.Name, terminate: r.Terminate})
	}
	if errs != nil {
		return nil, errs
	}
	return n, nil
}

// ParsePath returns the path of a full URL or of a bare path. An empty path is "/".
func ParsePath(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

// Obfuscate applies the obfuscation rules to path.
func (n *Namer) Obfuscate(path string) string {
	if n == nil {
		return path
	}
	for _, r := range n.obfuscation {
		path = r.re.ReplaceAllString(path, r.with)
	}
	return path
}

// ParseAndObfuscate combines ParsePath and Obfuscate. On parse failure the path
// degrades to UnknownPath and the parse error is returned for logging.
func (n *Namer) ParseAndObfuscate(raw string) (string, error) {
	p, err := ParsePath(raw)
	if err != nil {
		return UnknownPath, err
	}
	return n.Obfuscate(p), nil
}

// Normalize applies the naming rules. ok is false when no rule matched. The result
// always starts with a slash.
func (n *Namer) Normalize(path string) (string, bool) {
	if n == nil {
		return path, false
	}
	matched := false
	for _, r := range n.naming {
		if !r.re.MatchString(path) {
			continue
		}
		matched = true
		path = r.re.ReplaceAllString(path, r.name)
		if r.terminate {
			break
		}
	}
	if !matched {
		return path, false
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, true
}
