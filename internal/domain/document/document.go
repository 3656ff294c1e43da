package document

import (
	"strings"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// companionNamespace derives companion receipt ids from invoice ids.
var companionNamespace = uuid.MustParse("6f1c3a52-9b1e-4f8e-8d1a-3c2f5e7b9a10")

// Document is a business document (invoice, receipt, delivery note, ...).
// It moves DRAFT -> FINALIZED exactly once and may then be toggled between
// ACTIVE and DELETED any number of times.
type Document struct {
	shared.OwnedAggregateRoot
	Type         DocumentType
	Number       string
	Date         time.Time
	CustomerName string
	// CustomerID is the ledger the document posted to, set at finalization
	CustomerID *uuid.UUID
	Items      []LineItem
	AmountPaid decimal.Decimal
	Notes      string

	Lifecycle   Lifecycle
	FinalizedAt *time.Time
	// ClientBalanceSnapshot is the ledger balance frozen at finalization
	ClientBalanceSnapshot *decimal.Decimal

	Deletion  DeletionState
	DeletedAt *time.Time

	// ParentID links a companion receipt to its invoice
	ParentID *uuid.UUID
	// CompanionID links an invoice to its companion receipt
	CompanionID *uuid.UUID
}

// NewDraft creates a new draft document
func NewDraft(ownerID uuid.UUID, docType DocumentType, number, customerName string, items []LineItem, amountPaid decimal.Decimal) (*Document, error) {
	if !docType.IsValid() {
		return nil, ErrInvalidDocumentType
	}
	d := &Document{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		Type:               docType,
		Number:             number,
		Date:               time.Now(),
		Lifecycle:          LifecycleDraft,
		Deletion:           DeletionStateActive,
	}
	if err := d.setContent(customerName, items, amountPaid); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDraft replaces the editable content of a draft
func (d *Document) UpdateDraft(customerName string, items []LineItem, amountPaid decimal.Decimal) error {
	if d.IsFinalized() || d.IsDeleted() {
		return ErrNotEditable
	}
	if err := d.setContent(customerName, items, amountPaid); err != nil {
		return err
	}
	d.touch()
	return nil
}

func (d *Document) setContent(customerName string, items []LineItem, amountPaid decimal.Decimal) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if amountPaid.IsNegative() {
		return ErrInvalidAmountPaid
	}
	d.CustomerName = strings.TrimSpace(customerName)
	d.Items = append([]LineItem(nil), items...)
	d.AmountPaid = amountPaid
	return nil
}

// Total returns the sum of all line totals. A receipt without lines totals its payment.
func (d *Document) Total() decimal.Decimal {
	if d.Type == DocumentTypeReceipt && len(d.Items) == 0 {
		return d.AmountPaid
	}
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.Total())
	}
	return total
}

// Balance returns total minus amount paid
func (d *Document) Balance() decimal.Decimal {
	return d.Total().Sub(d.AmountPaid)
}

// IsFinalized returns true once the document has been finalized
func (d *Document) IsFinalized() bool {
	return d.Lifecycle == LifecycleFinalized
}

// IsDeleted returns true if the document is soft-deleted
func (d *Document) IsDeleted() bool {
	return d.Deletion == DeletionStateDeleted
}

// IsCompanion returns true for receipts generated alongside an invoice
func (d *Document) IsCompanion() bool {
	return d.ParentID != nil
}

// ValidateForFinalize checks every precondition of finalization without mutating anything
func (d *Document) ValidateForFinalize() error {
	if d.IsFinalized() {
		return ErrAlreadyFinalized
	}
	if d.IsDeleted() {
		return ErrDocumentDeleted
	}
	if d.Type == DocumentTypeReceipt {
		if !d.AmountPaid.IsPositive() {
			return ErrReceiptWithoutMoney
		}
		return nil
	}
	if len(d.Items) == 0 {
		return ErrEmptyDocument
	}
	if d.Type == DocumentTypeInvoice && d.Balance().IsPositive() && d.CustomerName == "" {
		return ErrMissingCustomerName
	}
	return nil
}

// Finalize moves the draft to FINALIZED and freezes the balance snapshot
func (d *Document) Finalize(customerName string, customerID *uuid.UUID, balanceSnapshot decimal.Decimal) error {
	if err := d.ValidateForFinalize(); err != nil {
		return err
	}
	now := time.Now()
	snapshot := balanceSnapshot
	d.CustomerName = customerName
	d.CustomerID = customerID
	d.ClientBalanceSnapshot = &snapshot
	d.Lifecycle = LifecycleFinalized
	d.FinalizedAt = &now
	d.CreatedAt = now
	d.touch()
	d.AddDomainEvent(NewDocumentFinalizedEvent(d))
	return nil
}

// NeedsCompanionReceipt reports whether finalizing this invoice produces a receipt
// for a partial payment or an overpayment
func (d *Document) NeedsCompanionReceipt() bool {
	if d.Type != DocumentTypeInvoice || !d.AmountPaid.IsPositive() {
		return false
	}
	return !d.AmountPaid.Equal(d.Total())
}

// CompanionReceiptID returns the derived id of this document's companion receipt
func (d *Document) CompanionReceiptID() uuid.UUID {
	return uuid.NewSHA1(companionNamespace, []byte(d.ID.String()))
}

// NewCompanionReceipt builds the finalized receipt carrying the invoice's payment.
// Its ledger effect is the payment leg already posted for the invoice.
func (d *Document) NewCompanionReceipt(number string) *Document {
	id := d.CompanionReceiptID()
	parentID := d.ID
	now := time.Now()
	receipt := &Document{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(d.OwnerID),
		Type:               DocumentTypeReceipt,
		Number:             number,
		Date:               d.Date,
		CustomerName:       d.CustomerName,
		CustomerID:         cloneID(d.CustomerID),
		AmountPaid:         d.AmountPaid,
		Notes:              "Paiement " + d.Number,
		Lifecycle:          LifecycleFinalized,
		FinalizedAt:        &now,
		Deletion:           DeletionStateActive,
		ParentID:           &parentID,
	}
	receipt.ID = id
	if d.ClientBalanceSnapshot != nil {
		snapshot := *d.ClientBalanceSnapshot
		receipt.ClientBalanceSnapshot = &snapshot
	}
	d.CompanionID = &id
	return receipt
}

// RelabelCustomer updates the customer name after the linked ledger was renamed
func (d *Document) RelabelCustomer(name string) {
	if d.CustomerName == name {
		return
	}
	d.CustomerName = name
	d.touch()
}

// MarkDeleted moves ACTIVE -> DELETED. It returns false when already deleted.
func (d *Document) MarkDeleted() bool {
	if d.IsDeleted() {
		return false
	}
	now := time.Now()
	d.Deletion = DeletionStateDeleted
	d.DeletedAt = &now
	d.touch()
	d.AddDomainEvent(NewDocumentDeletionChangedEvent(d))
	return true
}

// Restore moves DELETED -> ACTIVE. It returns false when not deleted.
func (d *Document) Restore() bool {
	if !d.IsDeleted() {
		return false
	}
	d.Deletion = DeletionStateActive
	d.DeletedAt = nil
	d.touch()
	d.AddDomainEvent(NewDocumentDeletionChangedEvent(d))
	return true
}

// DeletionLedgerDelta is the balance change applied when the document is
// soft-deleted; restoring applies its negation.
func (d *Document) DeletionLedgerDelta() decimal.Decimal {
	if !d.IsFinalized() || d.IsCompanion() {
		return decimal.Zero
	}
	switch d.Type {
	case DocumentTypeInvoice:
		return d.Balance().Neg()
	case DocumentTypeReceipt:
		return d.AmountPaid
	}
	return decimal.Zero
}

// Clone returns a deep copy safe to hand out of a store
func (d *Document) Clone() *Document {
	c := *d
	c.Items = append([]LineItem(nil), d.Items...)
	c.CustomerID = cloneID(d.CustomerID)
	c.ParentID = cloneID(d.ParentID)
	c.CompanionID = cloneID(d.CompanionID)
	if d.FinalizedAt != nil {
		t := *d.FinalizedAt
		c.FinalizedAt = &t
	}
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		c.DeletedAt = &t
	}
	if d.ClientBalanceSnapshot != nil {
		s := *d.ClientBalanceSnapshot
		c.ClientBalanceSnapshot = &s
	}
	c.ClearDomainEvents()
	return &c
}

func (d *Document) touch() {
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
