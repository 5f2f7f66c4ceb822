package rulesource

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aalemi-dev/apmbridge/rules"
)

// Source reads a rule table document.
type Source interface {
	// Name describes the source in logs, e.g. "file:/etc/apmbridge/rules.json".
	Name() string

	// Fetch returns the current rule table document.
	Fetch(ctx context.Context) ([]byte, error)
}

// Closer is implemented by sources holding connections.
type Closer interface {
	Close() error
}

// Embedded serves the rule table compiled into the binary.
type Embedded struct{}

func (Embedded) Name() string { return KindEmbedded }

func (Embedded) Fetch(context.Context) ([]byte, error) {
	return rules.DefaultTable(), nil
}

// FileSource reads the rule table from a file on every fetch.
type FileSource struct {
	Path string
}

// NewFileSource returns a source reading cfg.Path.
func NewFileSource(cfg FileConfig) (*FileSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: file path", ErrMissingLocation)
	}
	return &FileSource{Path: cfg.Path}, nil
}

func (f *FileSource) Name() string { return KindFile + ":" + f.Path }

func (f *FileSource) Fetch(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, f.Path)
	}
	if err != nil {
		return nil, err
	}
	return nonEmpty(data)
}

// New builds the source selected by cfg.Kind.
func New(cfg Config) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", KindEmbedded:
		return Embedded{}, nil
	case KindFile:
		return NewFileSource(cfg.File)
	case KindObjectStore:
		return NewObjectStoreSource(cfg.ObjectStore)
	case KindPostgres, KindMySQL:
		return NewDatabaseSource(strings.ToLower(cfg.Kind), cfg.Database)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
}

// Load fetches and compiles the table held by src.
func Load(ctx context.Context, src Source) (*rules.Engine, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rules from %s: %w", src.Name(), err)
	}
	e, err := rules.Load(data)
	if err != nil {
		return nil, fmt.Errorf("load rules from %s: %w", src.Name(), err)
	}
	return e, nil
}

func nonEmpty(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyTable
	}
	return data, nil
}
