package expr

import "errors"

var (
	// ErrSyntax is returned when a body does not parse.
	ErrSyntax = errors.New("invalid expression syntax")

	// ErrUnknownFunction is returned when a body calls a function outside the builtin table.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownIdentifier is returned when a body references an undeclared argument.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrArity is returned when a builtin receives the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")

	// ErrType is returned when an operator is applied to an unsupported value.
	ErrType = errors.New("unsupported operand type")
)
