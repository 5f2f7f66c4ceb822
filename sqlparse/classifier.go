package sqlparse

import (
	"fmt"

	"github.com/DataDog/datadog-agent/pkg/obfuscate"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 1000

// Config controls the caching classifier.
type Config struct {
	// CacheSize bounds the number of distinct statements kept classified.
	CacheSize int `yaml:"cache_size" envconfig:"SQL_CACHE_SIZE"`

	// Obfuscate enables literal stripping for query-recorded segments.
	Obfuscate bool `yaml:"obfuscate" envconfig:"SQL_OBFUSCATE"`
}

// Classifier wraps Classify with an LRU cache and optional obfuscation.
type Classifier struct {
	cache      *lru.Cache[string, Statement]
	obfuscator *obfuscate.Obfuscator
}

// NewClassifier builds a Classifier. A zero CacheSize uses the default.
func NewClassifier(cfg Config) (*Classifier, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, Statement](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create statement cache: %w", err)
	}

	c := &Classifier{cache: cache}
	if cfg.Obfuscate {
		c.obfuscator = obfuscate.NewObfuscator(obfuscate.Config{
			SQL: obfuscate.SQLConfig{
				ReplaceDigits:    true,
				KeepSQLAlias:     true,
				DollarQuotedFunc: true,
			},
		})
	}
	return c, nil
}

// Classify behaves like the package level Classify and caches string input.
func (c *Classifier) Classify(input any) Statement {
	sql, ok := input.(string)
	if !ok {
		return Classify(input)
	}
	if stmt, hit := c.cache.Get(sql); hit {
		return stmt
	}
	stmt := classify(sql)
	c.cache.Add(sql, stmt)
	return stmt
}

// Obfuscate replaces literals in query. ok is false when obfuscation is disabled.
func (c *Classifier) Obfuscate(query string) (obfuscated string, ok bool, err error) {
	if c.obfuscator == nil {
		return "", false, nil
	}
	oq, err := c.obfuscator.ObfuscateSQLString(query)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrObfuscation, err)
	}
	return oq.Query, true, nil
}

// Len reports how many statements are cached.
func (c *Classifier) Len() int {
	return c.cache.Len()
}

// Stop releases the obfuscator.
func (c *Classifier) Stop() {
	if c.obfuscator != nil {
		c.obfuscator.Stop()
	}
}
