package urlnaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestParsePath(t *testing.T) {
	t.Parallel()

	p, err := ParsePath("https://api.example.com:8443/v1/users/42?x=1")
	require.NoError(t, err)
	assert.Equal(t, "/v1/users/42", p)

	p, err = ParsePath("/health")
	require.NoError(t, err)
	assert.Equal(t, "/health", p)

	p, err = ParsePath("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "/", p)

	_, err = ParsePath("http://[::1")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = ParsePath("")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestParseAndObfuscate(t *testing.T) {
	t.Parallel()
	n, err := New(Config{Obfuscation: []ReplacementRule{{Pattern: `/\d+`, Replacement: "/*"}}})
	require.NoError(t, err)

	p, err := n.ParseAndObfuscate("http://x/users/42/orders/7")
	require.NoError(t, err)
	assert.Equal(t, "/users/*/orders/*", p)

	p, err = n.ParseAndObfuscate("http://%zz")
	assert.Error(t, err)
	assert.Equal(t, UnknownPath, p)
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	n, err := New(Config{NamingRules: []NamingRule{
		{Pattern: `^/api/v\d+/(\w+).*`, Name: "api/$1", Terminate: true},
		{Pattern: `^/internal/.*`, Name: "/never"},
		{Pattern: `^/static/.*`, Name: "/static"},
	}})
	require.NoError(t, err)

	name, ok := n.Normalize("/api/v2/users/9")
	require.True(t, ok)
	assert.Equal(t, "/api/users", name)

	name, ok = n.Normalize("/static/app.js")
	require.True(t, ok)
	assert.Equal(t, "/static", name)

	var nilNamer *Namer
	_, ok = nilNamer.Normalize("/x")
	assert.False(t, ok)
}

func TestNew_ReportsEveryInvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := New(Config{
		Obfuscation: []ReplacementRule{{Pattern: `(`}},
		NamingRules: []NamingRule{{Pattern: `[`}},
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
