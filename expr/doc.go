// Package expr evaluates the small expressions used by rule-table value mappings.
//
// A mapping such as
//
//	{"key": "http.method", "arguments": ["value"], "body": "return upper(value);"}
//
// is compiled once when the rule table loads and then evaluated for every span that
// uses it. The language is deliberately closed: string, number, boolean and null
// literals, the declared arguments, == != ! && || + and unary minus, the ternary
// operator, parentheses and a fixed set of pure string helpers. There is no way to
// reach host state from a body, which matters because rule tables can arrive over the
// network.
package expr
