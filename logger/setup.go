package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerClient wraps a zap logger. It implements Logger and the narrower Logger
// interfaces declared by the processor, synthesizer and rule source packages.
type LoggerClient struct {
	// Zap is the underlying logger, exposed for zap-specific use.
	Zap *zap.Logger

	// tracingEnabled makes the *WithContext methods add trace_id and span_id.
	tracingEnabled bool
}

// NewLoggerClient builds a JSON logger writing to stderr with ISO8601 timestamps,
// capitalized levels, caller information and the pid and service fields set on
// every entry.
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Debug, ServiceName: "checkout"})
//	log.Debug("span matched no rule", nil, map[string]interface{}{"span": "GET /health"})
//
// It calls log.Fatal if zap cannot be built.
func NewLoggerClient(cfg Config) *LoggerClient {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeCaller = zapcore.FullCallerEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: false,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields: map[string]interface{}{
			"pid":     os.Getpid(),
			"service": cfg.ServiceName,
		},
	}

	callerSkip := cfg.CallerSkip
	if callerSkip <= 0 {
		callerSkip = 1
	}

	logger, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(callerSkip))
	if err != nil {
		log.Fatal(err)
	}

	return &LoggerClient{
		Zap:            logger,
		tracingEnabled: cfg.EnableTracing,
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case Debug:
		return zap.DebugLevel
	case Warning:
		return zap.WarnLevel
	case Error:
		return zap.ErrorLevel
	}
	return zap.InfoLevel
}
