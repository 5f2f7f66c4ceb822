package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		args []string
		in   []any
		want any
	}{
		{"identity with return", "return value;", []string{"value"}, []any{"x"}, "x"},
		{"bare expression", "upper(value)", []string{"value"}, []any{"get"}, "GET"},
		{"ternary on empty", `value == "" ? "none" : value`, []string{"value"}, []any{""}, "none"},
		{"strict operators", `value === 'a' ? 1 : 2`, []string{"value"}, []any{"a"}, float64(1)},
		{"not equal", `value != null`, []string{"value"}, []any{nil}, false},
		{"concat strings", `"/" + value + "/x"`, []string{"value"}, []any{"a"}, "/a/x"},
		{"add numbers", `code + 1`, []string{"code"}, []any{int64(200)}, float64(201)},
		{"string plus number concatenates", `"v" + 1`, nil, nil, "v1"},
		{"or picks first truthy", `a || b`, []string{"a", "b"}, []any{"", "fallback"}, "fallback"},
		{"and short circuits", `a && b`, []string{"a", "b"}, []any{false, "x"}, false},
		{"not", `!flag`, []string{"flag"}, []any{false}, true},
		{"negate", `-n`, []string{"n"}, []any{float64(2)}, float64(-2)},
		{"split index", `split(value, ":", 0)`, []string{"value"}, []any{"host:8080"}, "host"},
		{"split negative index", `split(value, "/", -1)`, []string{"value"}, []any{"a/b/c"}, "c"},
		{"split out of range", `split(value, "/", 9)`, []string{"value"}, []any{"a/b"}, ""},
		{"substring clamps", `substring(value, 1, 99)`, []string{"value"}, []any{"héllo"}, "éllo"},
		{"replace", `replace(value, "-", "_")`, []string{"value"}, []any{"a-b-c"}, "a_b_c"},
		{"coalesce", `coalesce(a, b, "z")`, []string{"a", "b"}, []any{nil, ""}, "z"},
		{"default", `default(a, "d")`, []string{"a"}, []any{0}, "d"},
		{"nested calls", `lower(trim(concat(" A", "B ")))`, nil, nil, "ab"},
		{"single quoted escapes", `'it\'s'`, nil, nil, "it's"},
		{"missing argument is null", `b == null`, []string{"a", "b"}, []any{"only-a"}, true},
		{"len", `len(value)`, []string{"value"}, []any{"abc"}, float64(3)},
		{"parenthesised", `(a || b) && c`, []string{"a", "b", "c"}, []any{"", "x", "y"}, "y"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := Compile(tc.body, tc.args)
			require.NoError(t, err)

			got, err := p.Eval(tc.in...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompile_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		args []string
		err  error
	}{
		{"unknown function", `exec("rm -rf /")`, nil, ErrUnknownFunction},
		{"undeclared identifier", `process`, []string{"value"}, ErrUnknownIdentifier},
		{"member access", `value.constructor`, []string{"value"}, ErrSyntax},
		{"assignment", `value = 1`, []string{"value"}, ErrSyntax},
		{"arity", `lower(a, b)`, []string{"a", "b"}, ErrArity},
		{"dangling operator", `value +`, []string{"value"}, ErrSyntax},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compile(tc.body, tc.args)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestEval_TypeError(t *testing.T) {
	t.Parallel()
	p := MustCompile(`-value`, "value")

	_, err := p.Eval("abc")
	assert.ErrorIs(t, err, ErrType)
}

func TestTruthyAndToString(t *testing.T) {
	t.Parallel()

	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(int64(0)))
	assert.False(t, Truthy(false))
	assert.True(t, Truthy("0"))
	assert.True(t, Truthy([]string{}))

	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "42", ToString(int64(42)))
	assert.Equal(t, "true", ToString(true))
}
