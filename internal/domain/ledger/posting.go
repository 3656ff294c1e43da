package ledger

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingType is the economic direction of a posting
type PostingType string

const (
	// PostingTypeInvoice increases what the customer owes
	PostingTypeInvoice PostingType = "INVOICE"
	// PostingTypePayment decreases what the customer owes
	PostingTypePayment PostingType = "PAYMENT"
)

// String returns the string representation of PostingType
func (t PostingType) String() string {
	return string(t)
}

// IsValid returns true if the posting type is valid
func (t PostingType) IsValid() bool {
	switch t {
	case PostingTypeInvoice, PostingTypePayment:
		return true
	}
	return false
}

// Sign returns +1 for INVOICE and -1 for PAYMENT
func (t PostingType) Sign() decimal.Decimal {
	if t == PostingTypePayment {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// PostingKind records why a posting exists
type PostingKind string

const (
	// PostingKindRegular is a posting produced by a document or a payment
	PostingKindRegular PostingKind = "REGULAR"
	// PostingKindReversal compensates a cancelled posting
	PostingKindReversal PostingKind = "REVERSAL"
	// PostingKindAdjustment is an administrative balance correction
	PostingKindAdjustment PostingKind = "ADJUSTMENT"
	// PostingKindAudit records the ledger effect of deleting or restoring a document
	PostingKindAudit PostingKind = "AUDIT"
)

// String returns the string representation of PostingKind
func (k PostingKind) String() string {
	return string(k)
}

// IsValid returns true if the posting kind is valid
func (k PostingKind) IsValid() bool {
	switch k {
	case PostingKindRegular, PostingKindReversal, PostingKindAdjustment, PostingKindAudit:
		return true
	}
	return false
}

// IsCancellable reports whether postings of this kind may be cancelled by a user
func (k PostingKind) IsCancellable() bool {
	return k == PostingKindRegular || k == PostingKindAdjustment
}

// PostingStatus is the annotation state of a posting
type PostingStatus string

const (
	PostingStatusActive    PostingStatus = "ACTIVE"
	PostingStatusCancelled PostingStatus = "CANCELLED"
)

// String returns the string representation of PostingStatus
func (s PostingStatus) String() string {
	return string(s)
}

// LedgerPosting is one immutable entry in a customer's ledger history.
// Amount is never negative; the direction comes from Type, and a reversal
// inverts the direction of the type it carries.
type LedgerPosting struct {
	ID          uuid.UUID
	Type        PostingType
	Kind        PostingKind
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	CreatedAt   time.Time
	Status      PostingStatus
	DocumentID  *uuid.UUID
	ReversalOf  *uuid.UUID
}

// NewLedgerPosting creates a new active posting
func NewLedgerPosting(postingType PostingType, kind PostingKind, amount decimal.Decimal, description string) (*LedgerPosting, error) {
	if !postingType.IsValid() {
		return nil, shared.NewDomainError("INVALID_POSTING_TYPE", "Invalid posting type")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_POSTING_KIND", "Invalid posting kind")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	now := time.Now()
	return &LedgerPosting{
		ID:          uuid.New(),
		Type:        postingType,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Date:        now,
		CreatedAt:   now,
		Status:      PostingStatusActive,
	}, nil
}

// WithDocument links the posting to the document that produced it
func (p *LedgerPosting) WithDocument(documentID uuid.UUID) *LedgerPosting {
	p.DocumentID = &documentID
	return p
}

// WithDate overrides the business date of the posting
func (p *LedgerPosting) WithDate(date time.Time) *LedgerPosting {
	if !date.IsZero() {
		p.Date = date
	}
	return p
}

// Effect returns the signed change this posting applies to the remaining balance
func (p *LedgerPosting) Effect() decimal.Decimal {
	effect := p.Amount.Mul(p.Type.Sign())
	if p.Kind == PostingKindReversal {
		return effect.Neg()
	}
	return effect
}

// IsCancelled returns true if the posting has been cancelled
func (p *LedgerPosting) IsCancelled() bool {
	return p.Status == PostingStatusCancelled
}

// IsReversal returns true if this posting compensates another one
func (p *LedgerPosting) IsReversal() bool {
	return p.Kind == PostingKindReversal
}

// countsTowardDebt reports whether the posting contributes to the lifetime invoiced total
func (p *LedgerPosting) countsTowardDebt() bool {
	return p.Type == PostingTypeInvoice && p.Kind == PostingKindRegular
}

// newReversal builds the compensating posting for p
func (p *LedgerPosting) newReversal() *LedgerPosting {
	now := time.Now()
	originalID := p.ID
	return &LedgerPosting{
		ID:          uuid.New(),
		Type:        p.Type,
		Kind:        PostingKindReversal,
		Amount:      p.Amount,
		Description: "Annulation: " + p.Description,
		Date:        now,
		CreatedAt:   now,
		Status:      PostingStatusActive,
		DocumentID:  p.DocumentID,
		ReversalOf:  &originalID,
	}
}
