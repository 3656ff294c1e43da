package reconciliation

import (
	"context"
	"sync"
	"time"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cycle outcomes reported to the observer
const (
	OutcomeSuccess    = "success"
	OutcomePushFailed = "push_failed"
	OutcomePullFailed = "pull_failed"
	OutcomeSkipped    = "skipped"
)

// SyncStatus is the user-visible synchronization state
type SyncStatus struct {
	Pending          bool       `json:"pending"`
	InProgress       bool       `json:"in_progress"`
	LastAttemptAt    *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt    *time.Time `json:"last_success_at,omitempty"`
	LastCheckpointAt *time.Time `json:"last_checkpoint_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	Cycles           int64      `json:"cycles"`
	Failures         int64      `json:"failures"`
}

// CycleResult describes one completed push/pull cycle
type CycleResult struct {
	Pushed   PushCounts    `json:"pushed"`
	Merge    MergeReport   `json:"merge"`
	Duration time.Duration `json:"duration"`
}

// PushCounts counts the records sent to the remote store
type PushCounts struct {
	Products  int  `json:"products"`
	Documents int  `json:"documents"`
	Ledgers   int  `json:"ledgers"`
	Profile   bool `json:"profile"`
}

// CycleObserver receives the outcome of each cycle
type CycleObserver interface {
	ObserveSyncCycle(ctx context.Context, outcome string, duration time.Duration)
}

// DebtSettler charges deferred billing. It must be a no-op while offline or
// when nothing is owed.
type DebtSettler interface {
	AttemptToPayDebt(ctx context.Context) (*billingapp.SettlementResult, error)
}

// Reconciler pushes the local workspace to the remote store and merges the
// remote state back. It also checkpoints the workspace to the local store.
type Reconciler struct {
	ownerID   uuid.UUID
	workspace *Workspace
	local     Store
	remote    Store
	observer  CycleObserver
	settler   DebtSettler
	logger    *zap.Logger

	cycleMu      sync.Mutex
	checkpointMu sync.Mutex

	statusMu     sync.RWMutex
	status       SyncStatus
	lastMutation time.Time

	checkpoints chan struct{}
}

// NewReconciler creates a Reconciler. local may be nil when the device keeps
// no on-disk copy; remote may be nil when running standalone.
func NewReconciler(ownerID uuid.UUID, workspace *Workspace, local, remote Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		ownerID:     ownerID,
		workspace:   workspace,
		local:       local,
		remote:      remote,
		logger:      logger,
		checkpoints: make(chan struct{}, 1),
	}
}

// SetObserver sets the cycle observer
func (r *Reconciler) SetObserver(observer CycleObserver) {
	r.observer = observer
}

// SetDebtSettler makes every cycle start by settling deferred billing
func (r *Reconciler) SetDebtSettler(settler DebtSettler) {
	r.settler = settler
}

// Status returns the current synchronization state
func (r *Reconciler) Status() SyncStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// MarkPending records a local mutation not yet pushed and requests a checkpoint
func (r *Reconciler) MarkPending() {
	r.statusMu.Lock()
	r.status.Pending = true
	r.lastMutation = time.Now()
	r.statusMu.Unlock()

	select {
	case r.checkpoints <- struct{}{}:
	default:
	}
}

// CheckpointRequests delivers one signal per burst of local mutations
func (r *Reconciler) CheckpointRequests() <-chan struct{} {
	return r.checkpoints
}

// Handle marks the workspace dirty on every domain event
func (r *Reconciler) Handle(_ context.Context, _ shared.DomainEvent) error {
	r.MarkPending()
	return nil
}

// EventTypes subscribes to every event
func (r *Reconciler) EventTypes() []string {
	return nil
}

// Restore loads the local store into the workspace. It is called once at startup.
func (r *Reconciler) Restore(ctx context.Context) error {
	if r.local == nil {
		return nil
	}
	snap, err := r.local.FetchAll(ctx, r.ownerID)
	if err != nil {
		return &PersistenceError{Op: OpRestore, Err: err}
	}
	if snap.IsEmpty() {
		return nil
	}
	r.workspace.Load(snap)
	r.logger.Info("Workspace restored from local store",
		zap.Int("products", len(snap.Products)),
		zap.Int("documents", len(snap.Documents)),
		zap.Int("ledgers", len(snap.Ledgers)),
	)
	return nil
}

// Checkpoint writes the whole workspace to the local store
func (r *Reconciler) Checkpoint(ctx context.Context) error {
	if r.local == nil {
		return nil
	}
	r.checkpointMu.Lock()
	defer r.checkpointMu.Unlock()

	if op, err := upsertAll(ctx, r.local, r.ownerID, r.workspace.Snapshot()); err != nil {
		r.logger.Error("Local checkpoint failed", zap.String("op", op), zap.Error(err))
		return &PersistenceError{Op: OpCheckpoint, Err: err}
	}
	now := time.Now()
	r.statusMu.Lock()
	r.status.LastCheckpointAt = &now
	r.statusMu.Unlock()
	return nil
}

// RunCycle pushes every local collection, then pulls and merges the remote
// state. The pull is skipped when the push fails. Deferred billing is
// settled first, whether or not a remote store is configured.
func (r *Reconciler) RunCycle(ctx context.Context) (*CycleResult, error) {
	r.settleDeferredBilling(ctx)
	if r.remote == nil {
		return nil, ErrNoRemoteStore
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "run_cycle")
	defer span.End()

	result, err := r.runCycle(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		"ledgers_pushed", result.Pushed.Ledgers,
		"ledgers_merged", result.Merge.Ledgers.Merged,
	)
	return result, nil
}

func (r *Reconciler) runCycle(ctx context.Context) (*CycleResult, error) {
	if !r.cycleMu.TryLock() {
		r.observe(ctx, OutcomeSkipped, 0)
		return nil, ErrCycleInProgress
	}
	defer r.cycleMu.Unlock()

	start := time.Now()
	r.statusMu.Lock()
	r.status.InProgress = true
	r.status.LastAttemptAt = &start
	r.statusMu.Unlock()

	snap := r.workspace.Snapshot()
	result := &CycleResult{Pushed: PushCounts{
		Products:  len(snap.Products),
		Documents: len(snap.Documents),
		Ledgers:   len(snap.Ledgers),
		Profile:   snap.Profile != nil,
	}}

	if op, err := upsertAll(ctx, r.remote, r.ownerID, snap); err != nil {
		return nil, r.fail(ctx, start, OutcomePushFailed, &PersistenceError{Op: op, Err: err})
	}

	remote, err := r.remote.FetchAll(ctx, r.ownerID)
	if err != nil {
		return nil, r.fail(ctx, start, OutcomePullFailed, &PersistenceError{Op: OpPull, Err: err})
	}
	if remote != nil {
		result.Merge = r.workspace.Merge(remote, start)
	}
	result.Duration = time.Since(start)

	finished := time.Now()
	r.statusMu.Lock()
	r.status.InProgress = false
	r.status.LastSuccessAt = &finished
	r.status.LastError = ""
	r.status.Cycles++
	r.status.Pending = r.lastMutation.After(start)
	r.statusMu.Unlock()

	if err := r.Checkpoint(ctx); err != nil {
		r.logger.Warn("Checkpoint after sync failed", zap.Error(err))
	}

	r.logger.Info("Reconciliation cycle completed",
		zap.Duration("duration", result.Duration),
		zap.Int("products", result.Pushed.Products),
		zap.Int("documents", result.Pushed.Documents),
		zap.Int("ledgers", result.Pushed.Ledgers),
		zap.Int("ledgers_merged", result.Merge.Ledgers.Merged),
		zap.Int("ledgers_added", result.Merge.Ledgers.Added),
		zap.Int("ledgers_collapsed", result.Merge.Ledgers.Collapsed),
	)
	r.observe(ctx, OutcomeSuccess, result.Duration)
	return result, nil
}

// settleDeferredBilling covers charges deferred while the device stayed
// online, which no reconnect ever settles.
func (r *Reconciler) settleDeferredBilling(ctx context.Context) {
	if r.settler == nil {
		return
	}
	result, err := r.settler.AttemptToPayDebt(ctx)
	if err != nil {
		r.logger.Warn("Deferred billing settlement before sync failed", zap.Error(err))
		return
	}
	if result != nil && result.Attempted && !result.Settled {
		r.logger.Warn("Deferred billing still owed",
			zap.Int("offline_count", result.OfflineCount),
			zap.String("error", result.Error),
		)
	}
}

func (r *Reconciler) fail(ctx context.Context, start time.Time, outcome string, err *PersistenceError) error {
	duration := time.Since(start)
	r.statusMu.Lock()
	r.status.InProgress = false
	r.status.LastError = err.Error()
	r.status.Cycles++
	r.status.Failures++
	r.statusMu.Unlock()

	r.logger.Warn("Reconciliation cycle failed",
		zap.String("op", err.Op),
		zap.Duration("duration", duration),
		zap.Error(err.Err),
	)
	r.observe(ctx, outcome, duration)
	return err
}

func (r *Reconciler) observe(ctx context.Context, outcome string, duration time.Duration) {
	if r.observer != nil {
		r.observer.ObserveSyncCycle(ctx, outcome, duration)
	}
}

// upsertAll writes every collection, stopping at the first failure. It
// returns the failing operation.
func upsertAll(ctx context.Context, store Store, ownerID uuid.UUID, snap *Snapshot) (string, error) {
	if err := store.UpsertProducts(ctx, ownerID, snap.Products); err != nil {
		return OpPushProducts, err
	}
	if err := store.UpsertDocuments(ctx, ownerID, snap.Documents); err != nil {
		return OpPushDocuments, err
	}
	if err := store.UpsertLedgers(ctx, ownerID, snap.Ledgers); err != nil {
		return OpPushLedgers, err
	}
	if snap.Profile != nil {
		if err := store.UpsertProfile(ctx, ownerID, snap.Profile); err != nil {
			return OpPushProfile, err
		}
	}
	return "", nil
}

var _ shared.EventHandler = (*Reconciler)(nil)
