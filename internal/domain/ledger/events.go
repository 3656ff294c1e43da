package ledger

import (
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeLedger is the aggregate type for ledger events
const AggregateTypeLedger = "CustomerLedger"

// Event type constants
const (
	EventTypePostingApplied   = "LedgerPostingApplied"
	EventTypePostingCancelled = "LedgerPostingCancelled"
	EventTypeBalanceAdjusted  = "LedgerBalanceAdjusted"
	EventTypeCustomerRenamed  = "LedgerCustomerRenamed"
)

// PostingAppliedEvent is raised whenever a posting changes the balance
type PostingAppliedEvent struct {
	shared.BaseDomainEvent
	LedgerID     uuid.UUID       `json:"ledger_id"`
	CustomerKey  string          `json:"customer_key"`
	PostingID    uuid.UUID       `json:"posting_id"`
	PostingType  PostingType     `json:"posting_type"`
	PostingKind  PostingKind     `json:"posting_kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// NewPostingAppliedEvent creates a PostingAppliedEvent
func NewPostingAppliedEvent(r *LedgerRecord, p *LedgerPosting) *PostingAppliedEvent {
	return &PostingAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePostingApplied, AggregateTypeLedger, r.ID, r.OwnerID),
		LedgerID:        r.ID,
		CustomerKey:     r.CustomerKey,
		PostingID:       p.ID,
		PostingType:     p.Type,
		PostingKind:     p.Kind,
		Amount:          p.Amount,
		BalanceAfter:    r.RemainingBalance,
	}
}

// PostingCancelledEvent is raised when a posting is cancelled
type PostingCancelledEvent struct {
	shared.BaseDomainEvent
	LedgerID     uuid.UUID       `json:"ledger_id"`
	PostingID    uuid.UUID       `json:"posting_id"`
	ReversalID   uuid.UUID       `json:"reversal_id"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// NewPostingCancelledEvent creates a PostingCancelledEvent
func NewPostingCancelledEvent(r *LedgerRecord, original, reversal *LedgerPosting) *PostingCancelledEvent {
	return &PostingCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePostingCancelled, AggregateTypeLedger, r.ID, r.OwnerID),
		LedgerID:        r.ID,
		PostingID:       original.ID,
		ReversalID:      reversal.ID,
		BalanceAfter:    r.RemainingBalance,
	}
}

// BalanceAdjustedEvent is raised for administrative corrections
type BalanceAdjustedEvent struct {
	shared.BaseDomainEvent
	LedgerID   uuid.UUID       `json:"ledger_id"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Reason     string          `json:"reason"`
}

// NewBalanceAdjustedEvent creates a BalanceAdjustedEvent
func NewBalanceAdjustedEvent(r *LedgerRecord, oldBalance decimal.Decimal, reason string) *BalanceAdjustedEvent {
	return &BalanceAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceAdjusted, AggregateTypeLedger, r.ID, r.OwnerID),
		LedgerID:        r.ID,
		OldBalance:      oldBalance,
		NewBalance:      r.RemainingBalance,
		Reason:          reason,
	}
}

// CustomerRenamedEvent is raised when the display name of a ledger changes
type CustomerRenamedEvent struct {
	shared.BaseDomainEvent
	LedgerID uuid.UUID `json:"ledger_id"`
	OldName  string    `json:"old_name"`
	NewName  string    `json:"new_name"`
}

// NewCustomerRenamedEvent creates a CustomerRenamedEvent
func NewCustomerRenamedEvent(r *LedgerRecord, oldName string) *CustomerRenamedEvent {
	return &CustomerRenamedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerRenamed, AggregateTypeLedger, r.ID, r.OwnerID),
		LedgerID:        r.ID,
		OldName:         oldName,
		NewName:         r.CustomerName,
	}
}
