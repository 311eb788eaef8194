// Package logging provides the structured, leveled logger used across the ohm packages. It is a
// trimmed adaptation of the teacher's logging package: the zap-backed Logger interface and naming
// conventions are kept, but the cloud log-streaming appenders and debug-context gRPC interceptors
// have no analogue in an embeddable data-engine library and were dropped.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger type used throughout this module. Components accept a Logger
// (never a concrete *zap.SugaredLogger) so callers can plug in their own backend.
type Logger interface {
	Named(name string) Logger

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type sugarLogger struct {
	zap *zap.SugaredLogger
}

// NewZapLoggerConfig returns the console-encoder config the teacher's logging package builds,
// minus stack traces (disabled for the same reason: noisy for expected, handled errors).
func NewZapLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new Logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	cfg := NewZapLoggerConfig()
	z := zap.Must(cfg.Build()).Sugar().Named(name)
	return &sugarLogger{z}
}

// NewDebugLogger returns a new Logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	cfg := NewZapLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	z := zap.Must(cfg.Build()).Sugar().Named(name)
	return &sugarLogger{z}
}

func (l *sugarLogger) Named(name string) Logger {
	return &sugarLogger{l.zap.Named(name)}
}

func (l *sugarLogger) Debugw(msg string, kv ...interface{}) { l.zap.Debugw(msg, kv...) }
func (l *sugarLogger) Infow(msg string, kv ...interface{})  { l.zap.Infow(msg, kv...) }
func (l *sugarLogger) Warnw(msg string, kv ...interface{})  { l.zap.Warnw(msg, kv...) }
func (l *sugarLogger) Errorw(msg string, kv ...interface{}) { l.zap.Errorw(msg, kv...) }

func (l *sugarLogger) Debugf(template string, args ...interface{}) { l.zap.Debugf(template, args...) }
func (l *sugarLogger) Infof(template string, args ...interface{})  { l.zap.Infof(template, args...) }
func (l *sugarLogger) Warnf(template string, args ...interface{})  { l.zap.Warnf(template, args...) }
func (l *sugarLogger) Errorf(template string, args ...interface{}) { l.zap.Errorf(template, args...) }

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("ohm")
)

// ReplaceGlobal replaces the package-level global logger.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the package-level global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// noop is a Logger that discards everything; used as the default when a component is not
// given an explicit logger.
type noop struct{}

// NewNoop returns a Logger that discards all output.
func NewNoop() Logger { return noop{} }

func (noop) Named(string) Logger                       { return noop{} }
func (noop) Debugw(string, ...interface{})              {}
func (noop) Infow(string, ...interface{})                {}
func (noop) Warnw(string, ...interface{})                {}
func (noop) Errorw(string, ...interface{})               {}
func (noop) Debugf(string, ...interface{})               {}
func (noop) Infof(string, ...interface{})                {}
func (noop) Warnf(string, ...interface{})                {}
func (noop) Errorf(string, ...interface{})               {}
