package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zap.New(core, zap.AddCaller()).Sugar()}, logs
}

func TestContextHelpersUseTheStoredLogger(t *testing.T) {
	l, logs := observed()
	ctx := WithLogger(context.Background(), l.WithComponent("store"))

	Debug(ctx, "tx begin", "tx", "create_sale")
	Warn(ctx, "rollback failed", "tx", "create_sale")
	Error(ctx, "command failed", "command", "report")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "store", entries[1].ContextMap()["component"])
	assert.Equal(t, "create_sale", entries[1].ContextMap()["tx"])
	for _, e := range entries {
		require.True(t, e.Caller.Defined)
		assert.Equal(t, "logger_test.go", filepath.Base(e.Caller.File), "callers point at the call site")
	}
}

func TestDirectCallsReportTheirCaller(t *testing.T) {
	l, logs := observed()
	l.Warnw("dashboard cache read failed", "error", "down")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "logger_test.go", filepath.Base(logs.All()[0].Caller.File))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))

	l := Nop()
	assert.Same(t, l, FromContext(WithLogger(context.Background(), l)))
}
