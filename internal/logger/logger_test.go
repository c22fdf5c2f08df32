package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core)).WithPrefix("realm").WithPrefix("ui")

	l.Debugf("ran %d tasks", 3)
	l.Warnf("slow")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "realm.ui", entries[0].LoggerName)
	assert.Equal(t, "ran 3 tasks", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestDefault(t *testing.T) {
	assert.Same(t, NopLogger, Default())
	assert.Same(t, NopLogger, NewZapLogger(nil))

	core, logs := observer.New(zapcore.InfoLevel)
	SetDefault(NewZapLogger(zap.New(core)))
	defer SetDefault(nil)

	Default().Infof("hello")
	assert.Equal(t, 1, logs.Len())

	SetDefault(nil)
	assert.Same(t, NopLogger, Default())
}
