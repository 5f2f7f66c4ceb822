package namestate

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultDelimiter separates the verb from the path when none is configured.
const DefaultDelimiter = "/"

var statusNames = map[int]string{
	404: "(not found)",
	405: "(method not allowed)",
	501: "(not implemented)",
}

type state uint8

const (
	stateOpen state = iota
	stateFrozen
)

// Frame is one entry of the path stack.
type Frame struct {
	Path   string
	Params map[string]string
}

// NameState incrementally builds the display name of a transaction.
//
// Framework instrumentation and the span processor push path segments while the
// transaction is running. Once Freeze is called every mutator becomes a no-op, so the
// name observed at transaction end is the name that is reported.
type NameState struct {
	mu         sync.Mutex
	state      state
	prefix     string
	verb       string
	delimiter  string
	pathStack  []Frame
	markedPath []Frame
}

// New creates an open NameState. An empty path leaves the stack empty.
func New(prefix, verb, delimiter, path string) *NameState {
	n := &NameState{}
	n.reset(prefix, verb, delimiter, path)
	return n
}

// mutate runs fn only while the state is open. It reports whether fn ran.
func (n *NameState) mutate(fn func()) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == stateFrozen {
		return false
	}
	fn()
	return true
}

func (n *NameState) reset(prefix, verb, delimiter, path string) {
	n.prefix = trimTrailingSlash(prefix)
	n.verb = strings.ToUpper(verb)
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	n.delimiter = delimiter
	n.pathStack = nil
	n.markedPath = nil
	if path != "" {
		n.pathStack = append(n.pathStack, Frame{Path: path})
	}
}

// SetName replaces the whole state.
func (n *NameState) SetName(prefix, verb, delimiter, path string) bool {
	return n.mutate(func() { n.reset(prefix, verb, delimiter, path) })
}

// SetPrefix stores prefix without its trailing slash.
func (n *NameState) SetPrefix(prefix string) bool {
	return n.mutate(func() { n.prefix = trimTrailingSlash(prefix) })
}

// SetVerb stores the uppercased verb.
func (n *NameState) SetVerb(verb string) bool {
	return n.mutate(func() { n.verb = strings.ToUpper(verb) })
}

// SetDelimiter changes the separator placed between verb and path.
func (n *NameState) SetDelimiter(delimiter string) bool {
	return n.mutate(func() { n.delimiter = delimiter })
}

// AppendPath pushes a path segment.
func (n *NameState) AppendPath(path string, params map[string]string) bool {
	return n.mutate(func() { n.push(path, params) })
}

// AppendPattern pushes a route pattern, stored by its source text.
func (n *NameState) AppendPattern(pattern *regexp.Regexp, params map[string]string) bool {
	if pattern == nil {
		return false
	}
	return n.AppendPath(pattern.String(), params)
}

// AppendPathIfEmpty pushes path only when the live stack is empty.
func (n *NameState) AppendPathIfEmpty(path string, params map[string]string) bool {
	return n.mutate(func() {
		if len(n.pathStack) == 0 {
			n.push(path, params)
		}
	})
}

func (n *NameState) push(path string, params map[string]string) {
	if path == "" {
		return
	}
	n.pathStack = append(n.pathStack, Frame{Path: path, Params: params})
}

// PopPath removes the most recent frame.
func (n *NameState) PopPath() bool {
	return n.mutate(func() {
		if len(n.pathStack) > 0 {
			n.pathStack = n.pathStack[:len(n.pathStack)-1]
		}
	})
}

// PopPathTo removes frames back to and including the last frame whose path equals
// path. Nothing is removed when no frame matches.
func (n *NameState) PopPathTo(path string) bool {
	return n.mutate(func() {
		for i := len(n.pathStack) - 1; i >= 0; i-- {
			if n.pathStack[i].Path == path {
				n.pathStack = n.pathStack[:i]
				return
			}
		}
	})
}

// MarkPath snapshots the live stack. GetPath falls back to the snapshot once the
// live stack has been unwound.
func (n *NameState) MarkPath() bool {
	return n.mutate(func() {
		n.markedPath = append([]Frame(nil), n.pathStack...)
	})
}

// Freeze closes the state for good.
func (n *NameState) Freeze() {
	n.mu.Lock()
	n.state = stateFrozen
	n.mu.Unlock()
}

// IsFrozen reports whether Freeze has been called.
func (n *NameState) IsFrozen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == stateFrozen
}

func (n *NameState) Prefix() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prefix
}

func (n *NameState) Verb() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verb
}

func (n *NameState) Delimiter() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.delimiter
}

// Params merges the params of every live frame, later frames winning.
func (n *NameState) Params() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := map[string]string{}
	for _, f := range n.pathStack {
		for k, v := range f.Params {
			out[k] = v
		}
	}
	return out
}

// GetPath joins the live stack, or the marked snapshot when the live stack is empty,
// into a single slash separated path. ok is false when nothing was ever recorded.
func (n *NameState) GetPath() (path string, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path()
}

func (n *NameState) path() (string, bool) {
	frames := n.pathStack
	if len(frames) == 0 {
		frames = n.markedPath
	}
	if len(frames) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteByte('/')
	for _, f := range frames {
		p := f.Path
		if p == "" || p == "/" {
			continue
		}
		endsWithSlash := strings.HasSuffix(b.String(), "/")
		switch {
		case p[0] != '/' && !endsWithSlash:
			b.WriteByte('/')
		case p[0] == '/' && endsWithSlash:
			p = p[1:]
		}
		b.WriteString(p)
	}
	return b.String(), true
}

// GetName renders prefix, verb and path. ok is false when no path was recorded.
func (n *NameState) GetName() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	path, ok := n.path()
	if !ok {
		return "", false
	}
	return n.compose(path), true
}

// GetStatusName renders the fixed name for statusCode in place of the path.
func (n *NameState) GetStatusName(statusCode int) (string, bool) {
	name, ok := statusNames[statusCode]
	if !ok {
		return "", false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.compose(name), true
}

func (n *NameState) compose(tail string) string {
	var b strings.Builder
	if n.prefix != "" {
		b.WriteString(n.prefix)
		b.WriteByte('/')
	}
	if n.verb != "" {
		b.WriteString(n.verb)
		b.WriteString(n.delimiter)
	}
	b.WriteString(tail)
	return b.String()
}

// StatusName returns the fixed name for statusCode, if any.
func StatusName(statusCode int) (string, bool) {
	name, ok := statusNames[statusCode]
	return name, ok
}

func trimTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s[:len(s)-1]
	}
	return s
}
