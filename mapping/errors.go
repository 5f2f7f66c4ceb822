package mapping

import "errors"

var (
	// ErrInvalidTarget is returned for a target other than segment, transaction or trace.
	ErrInvalidTarget = errors.New("invalid attribute target")

	// ErrInvalidRegex is returned when a regex directive does not compile.
	ErrInvalidRegex = errors.New("invalid regex directive")

	// ErrNoSource is returned for a directive with no key, value or template.
	ErrNoSource = errors.New("attribute directive has no source")

	// ErrNoName is returned for a directive that cannot name its output.
	ErrNoName = errors.New("attribute directive has no name")
)
