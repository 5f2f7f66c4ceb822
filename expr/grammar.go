package expr

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Mapping bodies are tiny expressions, e.g.
//
//	return value == "" ? "none" : lower(value);
//
// The grammar has no assignment, member access or loops. Identifiers resolve only to
// declared arguments and calls only to the builtin table.
var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Number", Pattern: `\d+(\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*`},
	{Name: "Operator", Pattern: `===|!==|==|!=|&&|\|\||[-+!?:;(),]`},
})

var parser = participle.MustBuild[program](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

type program struct {
	Return bool     `parser:"@'return'?"`
	Expr   *ternary `parser:"@@ ';'?"`
}

type ternary struct {
	Cond *or      `parser:"@@"`
	Then *ternary `parser:"( '?' @@"`
	Else *ternary `parser:"  ':' @@ )?"`
}

type or struct {
	Left  *and   `parser:"@@"`
	Right []*and `parser:"( '||' @@ )*"`
}

type and struct {
	Left  *equality   `parser:"@@"`
	Right []*equality `parser:"( '&&' @@ )*"`
}

type equality struct {
	Left *additive     `parser:"@@"`
	Rest []*equalityOp `parser:"@@*"`
}

type equalityOp struct {
	Op    string    `parser:"@('===' | '==' | '!==' | '!=')"`
	Right *additive `parser:"@@"`
}

type additive struct {
	Left  *unary   `parser:"@@"`
	Right []*unary `parser:"( '+' @@ )*"`
}

type unary struct {
	Op    string   `parser:"( @('!' | '-')"`
	Inner *unary   `parser:"  @@ )"`
	Value *primary `parser:"| @@"`
}

type primary struct {
	Call  *call    `parser:"  @@"`
	Str   *string  `parser:"| @String"`
	Num   *float64 `parser:"| @Number"`
	Bool  *boolean `parser:"| @('true' | 'false')"`
	Null  bool     `parser:"| @'null'"`
	Ident *string  `parser:"| @Ident"`
	Sub   *ternary `parser:"| '(' @@ ')'"`
}

type call struct {
	Name string     `parser:"@Ident '('"`
	Args []*ternary `parser:"( @@ ( ',' @@ )* )? ')'"`
}

type boolean bool

func (b *boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}
