package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Field is a structured log field.
type Field = zapcore.Field

func String(key, value string) Field {
	return zap.String(key, value)
}

func Int(key string, value int) Field {
	return zap.Int(key, value)
}

func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

func Any(key string, value any) Field {
	return zap.Any(key, value)
}

func Error(err error) Field {
	return zap.Error(err)
}

// LoggerI is the logging contract used across the service.
type LoggerI interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Panic(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
}

type loggerImpl struct {
	zap *zap.Logger
}

// NewLogger builds a named zap logger at the given level.
func NewLogger(serviceName, level string) LoggerI {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}

	return &loggerImpl{zap: l.Named(serviceName)}
}

// Cleanup flushes buffered log entries.
func Cleanup(l LoggerI) error {
	if impl, ok := l.(*loggerImpl); ok {
		return impl.zap.Sync()
	}
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *loggerImpl) Debug(msg string, fields ...Field) { l.zap.Debug(msg, fields...) }
func (l *loggerImpl) Info(msg string, fields ...Field)  { l.zap.Info(msg, fields...) }
func (l *loggerImpl) Warn(msg string, fields ...Field)  { l.zap.Warn(msg, fields...) }
func (l *loggerImpl) Error(msg string, fields ...Field) { l.zap.Error(msg, fields...) }
func (l *loggerImpl) Panic(msg string, fields ...Field) { l.zap.Panic(msg, fields...) }
func (l *loggerImpl) Fatal(msg string, fields ...Field) { l.zap.Fatal(msg, fields...) }
