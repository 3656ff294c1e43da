// Package connectivity tracks whether the device can reach the network and
// notifies listeners when it comes back online.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Listener is invoked on every offline to online transition
type Listener func(ctx context.Context)

// Monitor holds the online flag. The flag is set explicitly through SetOnline
// or, when a probe URL is configured, by a background probe loop.
type Monitor struct {
	online atomic.Bool
	config config.ConnectivityConfig
	client *http.Client
	logger *zap.Logger

	listenerMu sync.RWMutex
	listeners  []Listener

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewMonitor creates a monitor in the configured initial state
func NewMonitor(cfg config.ConnectivityConfig, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	m := &Monitor{
		config: cfg,
		client: &http.Client{Timeout: cfg.ProbeTimeout},
		logger: logger,
	}
	m.online.Store(cfg.StartOnline)
	return m
}

// IsOnline reports the last known connectivity state
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// OnReconnect registers a listener for offline to online transitions.
// Listeners run in registration order on the goroutine that observed the
// transition.
func (m *Monitor) OnReconnect(fn Listener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetOnline records the connectivity state and returns true if it changed
func (m *Monitor) SetOnline(ctx context.Context, online bool) bool {
	was := m.online.Swap(online)
	if was == online {
		return false
	}

	if !online {
		m.logger.Warn("Connectivity lost")
		return true
	}

	m.logger.Info("Connectivity restored")
	m.listenerMu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(ctx)
	}
	return true
}

// Start launches the probe loop. Without a probe URL it is a no-op and the
// state only changes through SetOnline.
func (m *Monitor) Start(ctx context.Context) error {
	if m.config.ProbeURL == "" {
		return nil
	}

	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = true
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.probeLoop(ctx)

	m.logger.Info("Connectivity monitor started",
		zap.String("probe_url", m.config.ProbeURL),
		zap.Duration("interval", m.config.ProbeInterval),
	)
	return nil
}

// Stop stops the probe loop and waits for it to exit
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Connectivity monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	m.SetOnline(ctx, m.Probe(ctx))

	ticker := time.NewTicker(m.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(ctx, m.Probe(ctx))
		}
	}
}

// Probe issues a single HEAD request against the probe URL. Any response
// below 500 counts as online.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.config.ProbeURL, nil)
	if err != nil {
		m.logger.Error("Invalid connectivity probe URL", zap.Error(err))
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Debug("Connectivity probe failed", zap.Error(err))
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
