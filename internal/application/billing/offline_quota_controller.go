package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds deferred billing configuration
type Config struct {
	// CostPerDocument is the credit cost of one billable action
	CostPerDocument decimal.Decimal
	// MaxOfflineDocs caps the number of unbilled offline actions
	MaxOfflineDocs int
	// ChargeTimeout bounds each call to the billing collaborator
	ChargeTimeout time.Duration
}

// DefaultConfig returns the default billing configuration
func DefaultConfig() Config {
	return Config{
		CostPerDocument: decimal.NewFromInt(1),
		MaxOfflineDocs:  billing.DefaultMaxOfflineDocs,
		ChargeTimeout:   10 * time.Second,
	}
}

// AuthorizationMode tells how an authorized action is paid for
type AuthorizationMode string

const (
	// ModeCharged: credits were charged synchronously
	ModeCharged AuthorizationMode = "CHARGED"
	// ModeDeferred: the action is counted and charged at the next settlement
	ModeDeferred AuthorizationMode = "DEFERRED"
)

// Authorization is the permit returned by Authorize. A deferred
// authorization holds one slot of the offline quota until it is completed
// or released.
type Authorization struct {
	ID        uuid.UUID         `json:"id"`
	Mode      AuthorizationMode `json:"mode"`
	Reference string            `json:"reference"`
	Amount    decimal.Decimal   `json:"amount"`
	// Fallback is true when an online charge failed in transit and the
	// action was deferred instead
	Fallback bool `json:"fallback"`
	done     bool
}

// SettlementResult is the outcome of a deferred settlement attempt
type SettlementResult struct {
	Attempted    bool            `json:"attempted"`
	Settled      bool            `json:"settled"`
	OfflineCount int             `json:"offline_count"`
	Amount       decimal.Decimal `json:"amount"`
	Status       billing.Status  `json:"status"`
	Error        string          `json:"error,omitempty"`
}

// Observer receives billing outcomes
type Observer interface {
	ObserveBillingDenial(ctx context.Context, reason billing.DenialReason)
	ObserveSettlement(ctx context.Context, settled bool, offlineCount int)
	ObserveOfflineCount(ctx context.Context, offlineCount int)
}

// OfflineQuotaController is the billing gate consulted before every billable
// mutation. It is the only component that can block further actions.
type OfflineQuotaController struct {
	mu           sync.Mutex
	ownerID      uuid.UUID
	store        billing.StateStore
	charger      billing.CreditCharger
	connectivity billing.Connectivity
	config       Config
	observer     Observer
	logger       *zap.Logger

	state    *billing.OfflineActivityState
	reserved int
}

// NewOfflineQuotaController creates the controller. State is loaded lazily
// from the store on first use.
func NewOfflineQuotaController(
	ownerID uuid.UUID,
	store billing.StateStore,
	charger billing.CreditCharger,
	connectivity billing.Connectivity,
	config Config,
	logger *zap.Logger,
) *OfflineQuotaController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxOfflineDocs <= 0 {
		config.MaxOfflineDocs = billing.DefaultMaxOfflineDocs
	}
	if config.ChargeTimeout <= 0 {
		config.ChargeTimeout = DefaultConfig().ChargeTimeout
	}
	return &OfflineQuotaController{
		ownerID:      ownerID,
		store:        store,
		charger:      charger,
		connectivity: connectivity,
		config:       config,
		logger:       logger,
	}
}

// SetObserver sets the billing observer
func (c *OfflineQuotaController) SetObserver(observer Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = observer
}

// State returns a copy of the current offline activity state
func (c *OfflineQuotaController) State(ctx context.Context) (*billing.OfflineActivityState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// Config returns the controller configuration
func (c *OfflineQuotaController) Config() Config {
	return c.config
}

// CanPerformAction reports whether a billable action may run now
func (c *OfflineQuotaController) CanPerformAction(ctx context.Context) bool {
	reason, err := c.Check(ctx)
	return err == nil && reason == ""
}

// Check returns the reason a billable action would be denied, or "" if allowed
func (c *OfflineQuotaController) Check(ctx context.Context) (billing.DenialReason, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	return c.checkLocked(state, c.connectivity.IsOnline()), nil
}

// Authorize must be called before any billable mutation. Online, it charges
// the per-document cost; offline, it reserves a slot of the offline quota.
// A denial returns *billing.BillingDeniedError and nothing is charged.
func (c *OfflineQuotaController) Authorize(ctx context.Context, reference string) (*Authorization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	online := c.connectivity.IsOnline()
	if reason := c.checkLocked(state, online); reason != "" {
		return nil, c.deny(ctx, state, reason)
	}

	if !online {
		return c.reserveLocked(reference, false), nil
	}

	chargeErr := c.charge(ctx, c.config.CostPerDocument, reference)
	switch {
	case chargeErr == nil:
		return &Authorization{
			ID:        uuid.New(),
			Mode:      ModeCharged,
			Reference: reference,
			Amount:    c.config.CostPerDocument,
			done:      true,
		}, nil
	case errors.Is(chargeErr, billing.ErrInsufficientCredits):
		return nil, c.deny(ctx, state, billing.DenialInsufficientBalance)
	default:
		// Transport failure: treat the action as performed offline.
		if reason := c.checkLocked(state, false); reason != "" {
			return nil, c.deny(ctx, state, reason)
		}
		c.logger.Warn("Billing unreachable, deferring charge",
			zap.String("reference", reference),
			zap.Error(chargeErr),
		)
		return c.reserveLocked(reference, true), nil
	}
}

// Complete confirms an authorized action succeeded. Deferred actions are
// counted and the state is persisted.
func (c *OfflineQuotaController) Complete(ctx context.Context, auth *Authorization) error {
	if auth == nil || auth.done {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	auth.done = true
	c.reserved--
	return c.incrementLocked(ctx)
}

// Release gives back a deferred reservation when the action did not happen
func (c *OfflineQuotaController) Release(auth *Authorization) {
	if auth == nil || auth.done {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	auth.done = true
	c.reserved--
}

// IncrementOfflineCount counts one successful offline action and persists it
func (c *OfflineQuotaController) IncrementOfflineCount(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.incrementLocked(ctx)
}

// AttemptToPayDebt charges offlineCount × cost in one lump sum. Success
// clears the counter and the block; failure blocks every billable action and
// keeps the counter so the same amount is retried.
func (c *OfflineQuotaController) AttemptToPayDebt(ctx context.Context) (*SettlementResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	result := &SettlementResult{OfflineCount: state.OfflineCount, Amount: decimal.Zero}

	if state.OfflineCount == 0 {
		if state.HasUnpaidDebt {
			state.MarkSettled()
			if err := c.store.Save(ctx, state); err != nil {
				return nil, fmt.Errorf("persist offline state: %w", err)
			}
		}
		result.Status = state.Status()
		return result, nil
	}
	if !c.connectivity.IsOnline() {
		result.Status = state.Status()
		return result, nil
	}

	amount := c.config.CostPerDocument.Mul(decimal.NewFromInt(int64(state.OfflineCount)))
	reference := fmt.Sprintf("offline-settlement-%d-%s", state.OfflineCount, time.Now().UTC().Format(time.RFC3339))
	result.Attempted = true
	result.Amount = amount

	if chargeErr := c.charge(ctx, amount, reference); chargeErr != nil {
		state.MarkBlocked(chargeErr.Error())
		result.Error = chargeErr.Error()
		c.logger.Warn("Deferred billing settlement failed",
			zap.Int("offline_count", state.OfflineCount),
			zap.String("amount", amount.String()),
			zap.Error(chargeErr),
		)
	} else {
		state.MarkSettled()
		result.Settled = true
		c.logger.Info("Deferred billing settled",
			zap.Int("offline_count", result.OfflineCount),
			zap.String("amount", amount.String()),
		)
	}
	result.Status = state.Status()
	if c.observer != nil {
		c.observer.ObserveSettlement(ctx, result.Settled, result.OfflineCount)
		c.observer.ObserveOfflineCount(ctx, state.OfflineCount)
	}

	if err := c.store.Save(ctx, state); err != nil {
		return result, fmt.Errorf("persist offline state: %w", err)
	}
	return result, nil
}

func (c *OfflineQuotaController) checkLocked(state *billing.OfflineActivityState, online bool) billing.DenialReason {
	return state.Check(online, c.reserved, c.config.MaxOfflineDocs)
}

func (c *OfflineQuotaController) reserveLocked(reference string, fallback bool) *Authorization {
	c.reserved++
	return &Authorization{
		ID:        uuid.New(),
		Mode:      ModeDeferred,
		Reference: reference,
		Amount:    c.config.CostPerDocument,
		Fallback:  fallback,
	}
}

func (c *OfflineQuotaController) incrementLocked(ctx context.Context) error {
	state, err := c.loadLocked(ctx)
	if err != nil {
		return err
	}
	state.RecordOfflineAction(c.config.MaxOfflineDocs)
	if c.observer != nil {
		c.observer.ObserveOfflineCount(ctx, state.OfflineCount)
	}
	if err := c.store.Save(ctx, state); err != nil {
		return fmt.Errorf("persist offline state: %w", err)
	}
	return nil
}

func (c *OfflineQuotaController) charge(ctx context.Context, amount decimal.Decimal, reference string) error {
	chargeCtx, cancel := context.WithTimeout(ctx, c.config.ChargeTimeout)
	defer cancel()
	return c.charger.ChargeCredits(chargeCtx, c.ownerID, amount, reference)
}

func (c *OfflineQuotaController) deny(ctx context.Context, state *billing.OfflineActivityState, reason billing.DenialReason) error {
	c.logger.Info("Billable action denied",
		zap.String("reason", reason.String()),
		zap.Int("offline_count", state.OfflineCount),
	)
	if c.observer != nil {
		c.observer.ObserveBillingDenial(ctx, reason)
	}
	return billing.NewBillingDeniedError(reason, state.OfflineCount, c.config.MaxOfflineDocs)
}

func (c *OfflineQuotaController) loadLocked(ctx context.Context) (*billing.OfflineActivityState, error) {
	if c.state != nil {
		return c.state, nil
	}
	state, err := c.store.Load(ctx, c.ownerID)
	if err != nil {
		return nil, fmt.Errorf("load offline state: %w", err)
	}
	if state == nil {
		state = billing.NewOfflineActivityState(c.ownerID)
	}
	c.state = state
	return state, nil
}
