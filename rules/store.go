package rules

import (
	"fmt"
	"sync/atomic"

	version "github.com/hashicorp/go-version"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Store holds the active engine. Swapping the engine is the only way the rule table
// changes at runtime; spans already matched keep the rule they matched.
type Store struct {
	engine atomic.Pointer[Engine]
}

// NewStore returns a store serving e, or the default table when e is nil.
func NewStore(e *Engine) *Store {
	if e == nil {
		e = Default()
	}
	s := &Store{}
	s.engine.Store(e)
	return s
}

// Engine returns the active engine.
func (s *Store) Engine() *Engine {
	return s.engine.Load()
}

// Test matches span against the active engine.
func (s *Store) Test(span sdktrace.ReadOnlySpan) *Rule {
	return s.Engine().Test(span)
}

// Update loads data and makes it active. Tables that fail validation or are older
// than the active one are rejected and the active engine stays in place.
func (s *Store) Update(data []byte) (*Engine, error) {
	next, err := Load(data)
	if err != nil {
		return nil, err
	}
	if err := s.Replace(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Replace makes next active unless its version is older than the active one.
func (s *Store) Replace(next *Engine) error {
	for {
		cur := s.engine.Load()
		if cur != nil && next.version.LessThan(cur.version) {
			return fmt.Errorf("%w: %s < %s", ErrStaleVersion, next.version, cur.version)
		}
		if s.engine.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// Version returns the active table version.
func (s *Store) Version() *version.Version {
	return s.Engine().version
}
