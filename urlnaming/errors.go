package urlnaming

import "errors"

var (
	// ErrInvalidURL is returned when a URL or path cannot be parsed.
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidPattern is returned when a rule pattern does not compile.
	ErrInvalidPattern = errors.New("invalid url rule pattern")
)
