// Package logger provides the structured zap logger used across apmbridge.
//
// Entries are JSON on stderr with ISO8601 timestamps and carry pid and service fields.
// The *WithContext methods add trace_id and span_id of the span active in the context
// when Config.EnableTracing is set, which ties a log line about a converted span back
// to the span itself.
//
// Consumers do not depend on this package's Logger interface. Each package declares
// the few methods it needs:
//
//	type Logger interface {
//		DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
//	}
//
// and *LoggerClient satisfies all of them. A nil logger means "do not log".
//
// Levels are debug, info, warning and error. Rule misses and degraded input (unknown
// template keys, unparsable URLs) are logged at debug; failures of rule sources at
// warn or error.
package logger
