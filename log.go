package databind

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/AnatoleLucet/databind/internal/logger"
	"github.com/AnatoleLucet/databind/internal/metrics"
)

// Logger is the logging interface used by realms, bindings and contexts.
type Logger = logger.Logger

// NopLogger discards everything. It's the default.
var NopLogger = logger.NopLogger

// NewZapLogger adapts a zap logger.
func NewZapLogger(z *zap.Logger) Logger {
	return logger.NewZapLogger(z)
}

// SetLogger replaces the process-wide default logger.
// Realms and contexts pick it up when they're created.
func SetLogger(l Logger) {
	logger.SetDefault(l)
}

// RegisterMetrics registers databind's prometheus collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return metrics.Register(reg)
}
