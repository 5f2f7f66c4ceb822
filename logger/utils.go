package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// extractTracingFields returns trace_id and span_id of the recording span in ctx.
// It returns nil when tracing is disabled or no valid span is active.
func (l *LoggerClient) extractTracingFields(ctx context.Context) []zap.Field {
	if !l.tracingEnabled || ctx == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}

	spanContext := span.SpanContext()
	if !spanContext.IsValid() {
		return nil
	}

	return []zap.Field{
		zap.String("trace_id", spanContext.TraceID().String()),
		zap.String("span_id", spanContext.SpanID().String()),
	}
}

// convertToZapFields turns err and the field maps into zap fields. Later maps win
// on duplicate keys.
func (l *LoggerClient) convertToZapFields(err error, fields ...map[string]interface{}) []zap.Field {
	var zapFields []zap.Field
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			zapFields = append(zapFields, zap.Any(key, value))
		}
	}
	return zapFields
}

func (l *LoggerClient) withContext(ctx context.Context, err error, fields []map[string]interface{}) []zap.Field {
	return append(l.convertToZapFields(err, fields...), l.extractTracingFields(ctx)...)
}

func (l *LoggerClient) Debug(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Debug(msg, l.convertToZapFields(err, fields...)...)
}

func (l *LoggerClient) Info(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Info(msg, l.convertToZapFields(err, fields...)...)
}

func (l *LoggerClient) Warn(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Warn(msg, l.convertToZapFields(err, fields...)...)
}

func (l *LoggerClient) Error(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Error(msg, l.convertToZapFields(err, fields...)...)
}

// Fatal logs at fatal level and exits the process.
func (l *LoggerClient) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Fatal(msg, l.convertToZapFields(err, fields...)...)
}

func (l *LoggerClient) DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Debug(msg, l.withContext(ctx, err, fields)...)
}

func (l *LoggerClient) InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Info(msg, l.withContext(ctx, err, fields)...)
}

func (l *LoggerClient) WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Warn(msg, l.withContext(ctx, err, fields)...)
}

func (l *LoggerClient) ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Error(msg, l.withContext(ctx, err, fields)...)
}

// FatalWithContext logs at fatal level with trace fields and exits the process.
func (l *LoggerClient) FatalWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Fatal(msg, l.withContext(ctx, err, fields)...)
}
