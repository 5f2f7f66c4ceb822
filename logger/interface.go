package logger

import (
	"context"
)

// Logger is the full logging surface of LoggerClient. Packages that log declare a
// narrower interface of their own and accept *LoggerClient through it.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})

	// The *WithContext variants add trace_id and span_id when tracing is enabled.

	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	FatalWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
