package telemetry

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init builds the process logger. Call once from main before anything logs.
// env selects the zap preset: "dev"/"local" get the development config,
// everything else gets production JSON output.
func Init(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "dev", "local":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return l, nil
}

// L returns the process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Sync flushes buffered log entries. Safe to call on shutdown.
func Sync() {
	_ = L().Sync()
}
