package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfiler_DisabledIsNoop(t *testing.T) {
	p, err := NewProfiler(config.TelemetryConfig{ProfilerAddress: "http://localhost:4040"}, nil)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(config.TelemetryConfig{ProfilingEnabled: true}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry.profiler_address")
}

func TestNewProviders_ProfilingMisconfigured(t *testing.T) {
	_, err := NewProviders(context.Background(), config.TelemetryConfig{ProfilingEnabled: true}, nil)
	require.Error(t, err)
}

func TestNewProviders_ProfilingDisabled(t *testing.T) {
	p, err := NewProviders(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)

	assert.False(t, p.ProfilingEnabled())
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProfileTypes(t *testing.T) {
	assert.Len(t, profileTypes(config.TelemetryConfig{}), 6)
	assert.Len(t, profileTypes(config.TelemetryConfig{ProfileContention: true}), 10)
}

func TestWithProfilingLabels(t *testing.T) {
	t.Run("labels are visible inside fn", func(t *testing.T) {
		var got string
		var ok bool
		WithProfilingLabels(context.Background(), map[string]string{
			ProfilingLabelOperation: "reconciliation_cycle",
		}, func(ctx context.Context) {
			got, ok = pprof.Label(ctx, ProfilingLabelOperation)
		})

		assert.True(t, ok)
		assert.Equal(t, "reconciliation_cycle", got)
	})

	t.Run("empty labels still run fn", func(t *testing.T) {
		called := false
		WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
		assert.True(t, called)
	})
}
