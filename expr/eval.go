package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Program is a compiled mapping body. It is immutable and safe for concurrent use.
type Program struct {
	source string
	params []string
	root   *ternary
}

// Compile parses body and checks that it only references the given argument names and
// builtin functions.
func Compile(body string, arguments []string) (*Program, error) {
	ast, err := parser.ParseString("", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	declared := make(map[string]struct{}, len(arguments))
	for _, a := range arguments {
		declared[a] = struct{}{}
	}
	if err := ast.Expr.check(declared); err != nil {
		return nil, err
	}

	return &Program{source: body, params: append([]string(nil), arguments...), root: ast.Expr}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(body string, arguments ...string) *Program {
	p, err := Compile(body, arguments)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Program) String() string { return p.source }

// Eval binds args positionally to the declared arguments and evaluates the body.
// Missing arguments evaluate to null.
func (p *Program) Eval(args ...any) (any, error) {
	env := make(map[string]any, len(p.params))
	for i, name := range p.params {
		if i < len(args) {
			env[name] = args[i]
		} else {
			env[name] = nil
		}
	}
	return p.root.eval(env)
}

type scope = map[string]struct{}

func (t *ternary) check(s scope) error {
	if err := t.Cond.check(s); err != nil {
		return err
	}
	if t.Then != nil {
		if err := t.Then.check(s); err != nil {
			return err
		}
		return t.Else.check(s)
	}
	return nil
}

func (o *or) check(s scope) error {
	if err := o.Left.check(s); err != nil {
		return err
	}
	for _, r := range o.Right {
		if err := r.check(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *and) check(s scope) error {
	if err := a.Left.check(s); err != nil {
		return err
	}
	for _, r := range a.Right {
		if err := r.check(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *equality) check(s scope) error {
	if err := e.Left.check(s); err != nil {
		return err
	}
	for _, r := range e.Rest {
		if err := r.Right.check(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *additive) check(s scope) error {
	if err := a.Left.check(s); err != nil {
		return err
	}
	for _, r := range a.Right {
		if err := r.check(s); err != nil {
			return err
		}
	}
	return nil
}

func (u *unary) check(s scope) error {
	if u.Inner != nil {
		return u.Inner.check(s)
	}
	return u.Value.check(s)
}

func (p *primary) check(s scope) error {
	switch {
	case p.Call != nil:
		b, ok := builtins[p.Call.Name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFunction, p.Call.Name)
		}
		n := len(p.Call.Args)
		if n < b.min || (b.max >= 0 && n > b.max) {
			return fmt.Errorf("%w: %s takes %d..%d, got %d", ErrArity, p.Call.Name, b.min, b.max, n)
		}
		for _, a := range p.Call.Args {
			if err := a.check(s); err != nil {
				return err
			}
		}
	case p.Ident != nil:
		if _, ok := s[*p.Ident]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownIdentifier, *p.Ident)
		}
	case p.Sub != nil:
		return p.Sub.check(s)
	}
	return nil
}

type env = map[string]any

func (t *ternary) eval(e env) (any, error) {
	v, err := t.Cond.eval(e)
	if err != nil || t.Then == nil {
		return v, err
	}
	if Truthy(v) {
		return t.Then.eval(e)
	}
	return t.Else.eval(e)
}

func (o *or) eval(e env) (any, error) {
	v, err := o.Left.eval(e)
	if err != nil {
		return nil, err
	}
	for _, r := range o.Right {
		if Truthy(v) {
			return v, nil
		}
		if v, err = r.eval(e); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (a *and) eval(e env) (any, error) {
	v, err := a.Left.eval(e)
	if err != nil {
		return nil, err
	}
	for _, r := range a.Right {
		if !Truthy(v) {
			return v, nil
		}
		if v, err = r.eval(e); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (q *equality) eval(e env) (any, error) {
	left, err := q.Left.eval(e)
	if err != nil || len(q.Rest) == 0 {
		return left, err
	}
	var result any = left
	for _, r := range q.Rest {
		right, err := r.Right.eval(e)
		if err != nil {
			return nil, err
		}
		eq := looseEqual(result, right)
		if strings.HasPrefix(r.Op, "!") {
			eq = !eq
		}
		result = eq
	}
	return result, nil
}

func (a *additive) eval(e env) (any, error) {
	v, err := a.Left.eval(e)
	if err != nil {
		return nil, err
	}
	for _, r := range a.Right {
		rv, err := r.eval(e)
		if err != nil {
			return nil, err
		}
		ln, lok := toNumber(v)
		rn, rok := toNumber(rv)
		if lok && rok && !isString(v) && !isString(rv) {
			v = ln + rn
			continue
		}
		v = ToString(v) + ToString(rv)
	}
	return v, nil
}

func (u *unary) eval(e env) (any, error) {
	if u.Inner == nil {
		return u.Value.eval(e)
	}
	v, err := u.Inner.eval(e)
	if err != nil {
		return nil, err
	}
	if u.Op == "!" {
		return !Truthy(v), nil
	}
	n, ok := toNumber(v)
	if !ok {
		return nil, fmt.Errorf("%w: cannot negate %T", ErrType, v)
	}
	return -n, nil
}

func (p *primary) eval(e env) (any, error) {
	switch {
	case p.Call != nil:
		args := make([]any, len(p.Call.Args))
		for i, a := range p.Call.Args {
			v, err := a.eval(e)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return builtins[p.Call.Name].fn(args)
	case p.Str != nil:
		return unquote(*p.Str), nil
	case p.Num != nil:
		return *p.Num, nil
	case p.Bool != nil:
		return bool(*p.Bool), nil
	case p.Null:
		return nil, nil
	case p.Ident != nil:
		return e[*p.Ident], nil
	case p.Sub != nil:
		return p.Sub.eval(e)
	}
	return nil, nil
}

// Truthy reports whether v counts as true: nil, "", false and zero do not.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	case uint64:
		return t != 0
	}
	return true
}

// ToString renders v the way templates print it. nil renders as "".
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !isString(a) && !isString(b) {
		an, aok := toNumber(a)
		bn, bok := toNumber(b)
		if aok && bok {
			return an == bn
		}
	}
	return ToString(a) == ToString(b)
}

func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	quote := raw[0]
	body := raw[1 : len(raw)-1]
	if quote == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
