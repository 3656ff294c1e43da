package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditCharger is the remote billing collaborator holding the merchant's credits.
// There is no refund primitive: a charge either succeeds or the action aborts.
type CreditCharger interface {
	ChargeCredits(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, reference string) error
}

// StateStore loads and persists the offline activity state
type StateStore interface {
	Load(ctx context.Context, ownerID uuid.UUID) (*OfflineActivityState, error)
	Save(ctx context.Context, state *OfflineActivityState) error
}

// Connectivity reports whether the device is currently online
type Connectivity interface {
	IsOnline() bool
}
