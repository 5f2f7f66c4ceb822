package expr

import (
	"strings"
	"unicode/utf8"
)

type builtin struct {
	min, max int // max < 0 means variadic
	fn       func(args []any) (any, error)
}

var builtins = map[string]builtin{
	"lower":      {1, 1, func(a []any) (any, error) { return strings.ToLower(ToString(a[0])), nil }},
	"upper":      {1, 1, func(a []any) (any, error) { return strings.ToUpper(ToString(a[0])), nil }},
	"trim":       {1, 1, func(a []any) (any, error) { return strings.TrimSpace(ToString(a[0])), nil }},
	"trimPrefix": {2, 2, func(a []any) (any, error) { return strings.TrimPrefix(ToString(a[0]), ToString(a[1])), nil }},
	"trimSuffix": {2, 2, func(a []any) (any, error) { return strings.TrimSuffix(ToString(a[0]), ToString(a[1])), nil }},
	"replace": {3, 3, func(a []any) (any, error) {
		return strings.ReplaceAll(ToString(a[0]), ToString(a[1]), ToString(a[2])), nil
	}},
	"split":      {3, 3, split},
	"substring":  {2, 3, substring},
	"concat":     {0, -1, concat},
	"coalesce":   {1, -1, coalesce},
	"default":    {2, 2, func(a []any) (any, error) { return coalesce(a) }},
	"contains":   {2, 2, func(a []any) (any, error) { return strings.Contains(ToString(a[0]), ToString(a[1])), nil }},
	"startsWith": {2, 2, func(a []any) (any, error) { return strings.HasPrefix(ToString(a[0]), ToString(a[1])), nil }},
	"endsWith":   {2, 2, func(a []any) (any, error) { return strings.HasSuffix(ToString(a[0]), ToString(a[1])), nil }},
	"string":     {1, 1, func(a []any) (any, error) { return ToString(a[0]), nil }},
	"len":        {1, 1, func(a []any) (any, error) { return float64(utf8.RuneCountInString(ToString(a[0]))), nil }},
}

// split(s, sep, idx) returns the idx-th part, or "" when out of range.
func split(a []any) (any, error) {
	idx, ok := toNumber(a[2])
	if !ok {
		return nil, ErrType
	}
	parts := strings.Split(ToString(a[0]), ToString(a[1]))
	i := int(idx)
	if i < 0 {
		i += len(parts)
	}
	if i < 0 || i >= len(parts) {
		return "", nil
	}
	return parts[i], nil
}

// substring(s, start[, end]) works on runes and clamps out-of-range bounds.
func substring(a []any) (any, error) {
	r := []rune(ToString(a[0]))
	start, ok := toNumber(a[1])
	if !ok {
		return nil, ErrType
	}
	end := float64(len(r))
	if len(a) == 3 {
		if end, ok = toNumber(a[2]); !ok {
			return nil, ErrType
		}
	}
	s, e := clamp(int(start), len(r)), clamp(int(end), len(r))
	if s > e {
		s, e = e, s
	}
	return string(r[s:e]), nil
}

func concat(a []any) (any, error) {
	var b strings.Builder
	for _, v := range a {
		b.WriteString(ToString(v))
	}
	return b.String(), nil
}

func coalesce(a []any) (any, error) {
	for _, v := range a {
		if Truthy(v) {
			return v, nil
		}
	}
	return a[len(a)-1], nil
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
