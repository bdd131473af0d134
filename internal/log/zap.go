package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap sugared logger to Logger. It is selected with
// --log-format json for deployments that ship logs to a collector.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap builds a production JSON zap logger at the given level.
func NewZap(l Level) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(l))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return &ZapLogger{sugar: z.Sugar()}, nil
}

// NewZapFrom wraps an existing zap logger.
func NewZapFrom(z *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: z.Sugar()}
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case DebugLevel:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *ZapLogger) Info(msg string, kv ...interface{})  { z.sugar.Infow(msg, evenPairs(kv)...) }
func (z *ZapLogger) Warn(msg string, kv ...interface{})  { z.sugar.Warnw(msg, evenPairs(kv)...) }
func (z *ZapLogger) Error(msg string, kv ...interface{}) { z.sugar.Errorw(msg, evenPairs(kv)...) }
func (z *ZapLogger) Debug(msg string, kv ...interface{}) { z.sugar.Debugw(msg, evenPairs(kv)...) }

func (z *ZapLogger) With(kv ...interface{}) Logger {
	return &ZapLogger{sugar: z.sugar.With(evenPairs(kv)...)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}
