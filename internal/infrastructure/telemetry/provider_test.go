package telemetry

import (
	"context"
	"testing"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewProviders_Disabled(t *testing.T) {
	p, err := NewProviders(context.Background(), config.TelemetryConfig{Enabled: false}, nil)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("factureman"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviders_BridgeLogger_PassThroughWithoutLogs(t *testing.T) {
	p, err := NewProviders(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	bridged := p.BridgeLogger(base, zapcore.InfoLevel)
	bridged.Info("ledger posted")

	assert.Same(t, base, bridged)
	assert.Equal(t, 1, logs.Len())
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	logger := zap.New(core)
	logger.Info("dropped")
	logger.Warn("kept")
	logger.With(zap.String("k", "v")).Error("kept too")

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}
