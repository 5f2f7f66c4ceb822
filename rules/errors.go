package rules

import "errors"

// Errors reported by Load. A table with several problems reports all of them, each
// wrapped with the offending rule's name.
var (
	// ErrMalformedTable is returned when the document is not valid JSON of the expected shape
	ErrMalformedTable = errors.New("malformed rule table")

	// ErrUnsupportedVersion is returned when the table version is outside the supported range
	ErrUnsupportedVersion = errors.New("unsupported rule table version")

	// ErrStaleVersion is returned when a table older than the active one is offered
	ErrStaleVersion = errors.New("rule table version is older than the active one")

	// ErrMissingName is returned for a rule without a name
	ErrMissingName = errors.New("rule has no name")

	// ErrDuplicateName is returned when two rules share a name
	ErrDuplicateName = errors.New("duplicate rule name")

	// ErrUnknownType is returned for a type outside server, consumer, producer, external, db and internal
	ErrUnknownType = errors.New("unknown rule type")

	// ErrUnknownSpanKind is returned for a span kind the matcher cannot match
	ErrUnknownSpanKind = errors.New("unknown span kind")

	// ErrNoSpanKind is returned for a matcher without span kinds
	ErrNoSpanKind = errors.New("matcher has no span kinds")

	// ErrInvalidTransactionType is returned for a transaction type other than web, message and bg
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)
