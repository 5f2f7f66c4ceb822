package sqlparse

import "errors"

// ErrObfuscation is returned when a statement cannot be obfuscated.
var ErrObfuscation = errors.New("failed to obfuscate statement")
