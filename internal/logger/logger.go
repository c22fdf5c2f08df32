package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Ensure implementations satisfy the interface.
var (
	_ Logger = &nopLogger{}
	_ Logger = &zapLogger{}
)

// Logger is the logging interface used throughout databind.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// WithPrefix returns a Logger that names its entries with prefix,
	// nested under this logger's own name.
	WithPrefix(prefix string) Logger
}

// NopLogger discards everything.
var NopLogger Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Debugf(format string, v ...interface{}) {}
func (n *nopLogger) Infof(format string, v ...interface{})  {}
func (n *nopLogger) Warnf(format string, v ...interface{})  {}
func (n *nopLogger) Errorf(format string, v ...interface{}) {}

func (n *nopLogger) WithPrefix(prefix string) Logger {
	return n
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts z. A nil z yields NopLogger.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger
	}

	return &zapLogger{sugar: z.Sugar()}
}

func (l *zapLogger) Debugf(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *zapLogger) Infof(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *zapLogger) Warnf(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *zapLogger) Errorf(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }

func (l *zapLogger) WithPrefix(prefix string) Logger {
	return &zapLogger{sugar: l.sugar.Named(prefix)}
}

type holder struct{ Logger }

var current atomic.Value

func init() {
	current.Store(holder{NopLogger})
}

// Default returns the process-wide logger.
func Default() Logger {
	return current.Load().(holder).Logger
}

// SetDefault replaces the process-wide logger. A nil l restores NopLogger.
func SetDefault(l Logger) {
	if l == nil {
		l = NopLogger
	}

	current.Store(holder{l})
}
