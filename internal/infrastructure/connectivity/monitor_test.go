package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_InitialState(t *testing.T) {
	assert.True(t, NewMonitor(config.ConnectivityConfig{StartOnline: true}, nil).IsOnline())
	assert.False(t, NewMonitor(config.ConnectivityConfig{}, nil).IsOnline())
}

func TestMonitor_SetOnline_NotifiesOnReconnectOnly(t *testing.T) {
	m := NewMonitor(config.ConnectivityConfig{StartOnline: true}, nil)

	var calls []string
	m.OnReconnect(func(context.Context) { calls = append(calls, "settle") })
	m.OnReconnect(func(context.Context) { calls = append(calls, "sync") })

	ctx := context.Background()
	assert.False(t, m.SetOnline(ctx, true), "no change while already online")
	assert.True(t, m.SetOnline(ctx, false))
	assert.False(t, m.IsOnline())
	assert.Empty(t, calls)

	assert.True(t, m.SetOnline(ctx, true))
	assert.True(t, m.IsOnline())
	assert.Equal(t, []string{"settle", "sync"}, calls)
}

func TestMonitor_Probe(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"not found still reachable", http.StatusNotFound, true},
		{"server error", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodHead, r.Method)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			m := NewMonitor(config.ConnectivityConfig{ProbeURL: server.URL, ProbeTimeout: time.Second}, nil)
			assert.Equal(t, tt.want, m.Probe(context.Background()))
		})
	}
}

func TestMonitor_Probe_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	m := NewMonitor(config.ConnectivityConfig{ProbeURL: url, ProbeTimeout: time.Second}, nil)
	assert.False(t, m.Probe(context.Background()))
}

func TestMonitor_ProbeLoop_FlipsState(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	m := NewMonitor(config.ConnectivityConfig{
		ProbeURL:      server.URL,
		ProbeInterval: 10 * time.Millisecond,
		ProbeTimeout:  time.Second,
		StartOnline:   true,
	}, nil)

	var reconnects atomic.Int32
	m.OnReconnect(func(context.Context) { reconnects.Add(1) })

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	assert.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, 5*time.Millisecond)

	healthy.Store(true)
	assert.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return reconnects.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMonitor_StartWithoutProbeURL(t *testing.T) {
	m := NewMonitor(config.ConnectivityConfig{StartOnline: true}, nil)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))
	assert.True(t, m.IsOnline())
}
