package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var (
	// ErrSchedulerNotRunning is returned by TriggerImmediate before Start or after Stop
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	// ErrInvalidConfig wraps every SchedulerConfig.Validate failure
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// CycleRunner is the reconciliation work driven by the scheduler
type CycleRunner interface {
	RunCycle(ctx context.Context) (*reconciliation.CycleResult, error)
	Checkpoint(ctx context.Context) error
	CheckpointRequests() <-chan struct{}
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	// Interval between reconciliation cycles
	Interval time.Duration
	// CycleTimeout bounds a single push/pull cycle
	CycleTimeout time.Duration
	// CheckpointDelay coalesces bursts of local mutations into one checkpoint
	CheckpointDelay time.Duration
	// RunOnStart runs a cycle as soon as the scheduler starts
	RunOnStart bool
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:        2 * time.Minute,
		CycleTimeout:    time.Minute,
		CheckpointDelay: 500 * time.Millisecond,
		RunOnStart:      true,
	}
}

// Validate checks the configuration
func (c SchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.CycleTimeout <= 0 {
		return fmt.Errorf("%w: cycle timeout must be positive", ErrInvalidConfig)
	}
	if c.CheckpointDelay < 0 {
		return fmt.Errorf("%w: checkpoint delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ReconciliationScheduler runs reconciliation cycles on a fixed interval and
// on demand, and writes local checkpoints when the workspace changes.
type ReconciliationScheduler struct {
	config SchedulerConfig
	runner CycleRunner
	logger *zap.Logger

	triggers  chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReconciliationScheduler creates a new scheduler instance
func NewReconciliationScheduler(config SchedulerConfig, runner CycleRunner, logger *zap.Logger) (*ReconciliationScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationScheduler{
		config:   config,
		runner:   runner,
		logger:   logger,
		triggers: make(chan struct{}, 1),
	}, nil
}

// Start starts the cycle and checkpoint loops
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.cycleLoop(ctx)
	go s.checkpointLoop(ctx)

	s.logger.Info("Reconciliation scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("cycle_timeout", s.config.CycleTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler. A final checkpoint is written so no
// local mutation is lost on shutdown.
func (s *ReconciliationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Reconciliation scheduler stop timed out")
		return ctx.Err()
	}

	if err := s.runner.Checkpoint(ctx); err != nil {
		s.logger.Error("Final checkpoint failed", zap.Error(err))
		return err
	}
	s.logger.Info("Reconciliation scheduler stopped gracefully")
	return nil
}

// IsRunning reports whether the scheduler loops are active
func (s *ReconciliationScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// TriggerImmediate requests a cycle outside the interval. Requests made
// while one is already queued are coalesced.
func (s *ReconciliationScheduler) TriggerImmediate() error {
	if !s.IsRunning() {
		return ErrSchedulerNotRunning
	}
	select {
	case s.triggers <- struct{}{}:
		s.logger.Debug("Reconciliation cycle triggered")
	default:
	}
	return nil
}

func (s *ReconciliationScheduler) cycleLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runCycle(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		case <-s.triggers:
			s.runCycle(ctx)
			ticker.Reset(s.config.Interval)
		}
	}
}

func (s *ReconciliationScheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.config.CycleTimeout)
	defer cancel()

	var err error
	telemetry.WithProfilingLabels(cycleCtx, map[string]string{
		telemetry.ProfilingLabelOperation: "reconciliation_cycle",
	}, func(ctx context.Context) {
		_, err = s.runner.RunCycle(ctx)
	})
	switch {
	case err == nil:
	case errors.Is(err, reconciliation.ErrCycleInProgress):
		s.logger.Debug("Reconciliation cycle already in progress")
	case errors.Is(err, reconciliation.ErrNoRemoteStore):
		s.logger.Debug("No remote store configured, cycle skipped")
	default:
		// Local state stays authoritative; the next cycle retries.
		s.logger.Warn("Reconciliation cycle failed", zap.Error(err))
	}
}

func (s *ReconciliationScheduler) checkpointLoop(ctx context.Context) {
	defer s.wg.Done()

	requests := s.runner.CheckpointRequests()
	for {
		select {
		case <-ctx.Done():
			return
		case <-requests:
			if s.config.CheckpointDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.config.CheckpointDelay):
				}
			}
			if err := s.runner.Checkpoint(ctx); err != nil {
				s.logger.Warn("Local checkpoint failed", zap.Error(err))
			}
		}
	}
}
