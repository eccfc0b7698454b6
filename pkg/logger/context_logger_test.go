package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedContextLogger() (*ContextLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewContextLogger(zap.New(core)), logs
}

func TestContextLogger_PlainContextAddsNoFields(t *testing.T) {
	cl, logs := newObservedContextLogger()

	cl.LogInfo(context.Background(), "plain entry")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestContextLogger_DeviceAndUserFields(t *testing.T) {
	cl, logs := newObservedContextLogger()

	ctx := ContextWithDeviceID(context.Background(), "esp32-cam-01")
	ctx = ContextWithUserID(ctx, "user-1")
	cl.LogWarn(ctx, "tagged entry")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "esp32-cam-01", fields["device_id"])
	assert.Equal(t, "user-1", fields["user_id"])
}

func TestContextLogger_LogErrorCarriesError(t *testing.T) {
	cl, logs := newObservedContextLogger()

	cl.LogError(context.Background(), assert.AnError, "boom")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "boom", entry.Message)
	assert.Equal(t, assert.AnError.Error(), entry.ContextMap()["error"])
}
