package document

import (
	"context"
	"errors"
	"fmt"
	"sync"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerPoster is the part of the ledger store used by documents
type LedgerPoster interface {
	ApplyInvoicePosting(ctx context.Context, customerName string, amount decimal.Decimal, description string, documentID *uuid.UUID) (*ledgerapp.PostingResult, error)
	ApplyPaymentPosting(ctx context.Context, customerName string, amount decimal.Decimal, description string, documentID *uuid.UUID) (*ledgerapp.PostingResult, error)
	ApplyAudit(ctx context.Context, ledgerID uuid.UUID, delta decimal.Decimal, description string, documentID uuid.UUID) (*ledgerapp.PostingResult, error)
	GetByName(ctx context.Context, customerName string) (*ledger.LedgerRecord, error)
	Rename(ctx context.Context, ledgerID uuid.UUID, newName string) (*ledger.LedgerRecord, error)
}

// StockAdjuster moves product stock by product name
type StockAdjuster interface {
	Decrement(ctx context.Context, name string, quantity int) (catalogapp.StockChange, bool)
	Increment(ctx context.Context, name string, quantity int) (catalogapp.StockChange, bool)
}

// BillingGate authorizes billable actions before they mutate anything
type BillingGate interface {
	Authorize(ctx context.Context, reference string) (*billingapp.Authorization, error)
	Complete(ctx context.Context, auth *billingapp.Authorization) error
	Release(auth *billingapp.Authorization)
}

// FinalizeResult is the outcome of a finalization
type FinalizeResult struct {
	Document     *document.Document
	Receipt      *document.Document
	Ledger       *ledger.LedgerRecord
	StockChanges []catalogapp.StockChange
	Billing      *billingapp.Authorization
	Warnings     []string
}

// DeletionResult is the outcome of a soft delete or restore
type DeletionResult struct {
	Document     *document.Document
	Changed      bool
	Ledger       *ledger.LedgerRecord
	StockChanges []catalogapp.StockChange
}

// FinalizationService runs document commands. Commands are serialized so
// ledger, stock and document state change as one logical actor.
type FinalizationService struct {
	mu        sync.Mutex
	ownerID   uuid.UUID
	docs      *DocumentStore
	ledger    LedgerPoster
	stock     StockAdjuster
	billing   BillingGate
	extractor document.ItemExtractor
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewFinalizationService creates a FinalizationService
func NewFinalizationService(
	ownerID uuid.UUID,
	docs *DocumentStore,
	ledgerPoster LedgerPoster,
	stock StockAdjuster,
	billing BillingGate,
	logger *zap.Logger,
) *FinalizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinalizationService{
		ownerID: ownerID,
		docs:    docs,
		ledger:  ledgerPoster,
		stock:   stock,
		billing: billing,
		logger:  logger,
	}
}

// SetEventPublisher sets the publisher for document events
func (s *FinalizationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetItemExtractor sets the OCR backend used by DraftFromImage
func (s *FinalizationService) SetItemExtractor(extractor document.ItemExtractor) {
	s.extractor = extractor
}

// CreateDraft creates and numbers a draft document
func (s *FinalizationService) CreateDraft(ctx context.Context, req CreateDraftRequest) (*document.Document, error) {
	docType := document.DocumentType(req.Type)
	if !docType.IsValid() {
		return nil, document.ErrInvalidDocumentType
	}
	d, err := document.NewDraft(s.ownerID, docType, "", req.CustomerName, ToLineItems(req.Items), req.AmountPaid)
	if err != nil {
		return nil, err
	}
	d.Notes = req.Notes

	s.mu.Lock()
	defer s.mu.Unlock()
	d.Number = s.docs.NextNumber(docType)
	if err := s.docs.Save(ctx, d); err != nil {
		return nil, err
	}
	return d.Clone(), nil
}

// DraftFromImage builds a draft from line items read off a photo
func (s *FinalizationService) DraftFromImage(ctx context.Context, docType document.DocumentType, customerName string, image []byte) (*document.Document, error) {
	if s.extractor == nil {
		return nil, shared.NewDomainError("EXTRACTOR_UNAVAILABLE", "No item extractor is configured")
	}
	if len(image) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Image is empty")
	}
	items, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract items: %w", err)
	}
	inputs := make([]LineItemInput, len(items))
	for i, item := range items {
		inputs[i] = LineItemInput{Description: item.Description, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	return s.CreateDraft(ctx, CreateDraftRequest{
		Type:         docType.String(),
		CustomerName: customerName,
		Items:        inputs,
		AmountPaid:   decimal.Zero,
	})
}

// UpdateDraft replaces the content of an active draft
func (s *FinalizationService) UpdateDraft(ctx context.Context, id uuid.UUID, req UpdateDraftRequest) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.UpdateDraft(req.CustomerName, ToLineItems(req.Items), req.AmountPaid); err != nil {
		return nil, err
	}
	d.Notes = req.Notes
	if err := s.docs.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns a document
func (s *FinalizationService) Get(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return s.docs.Get(ctx, id)
}

// List returns documents matching filter
func (s *FinalizationService) List(ctx context.Context, filter ListFilter) []*document.Document {
	return s.docs.List(ctx, filter)
}

// Finalize finalizes a stored draft. amountPaid, when set, replaces the
// payment captured on the draft.
func (s *FinalizationService) Finalize(ctx context.Context, id uuid.UUID, amountPaid *decimal.Decimal) (*FinalizeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsFinalized() {
		return nil, document.ErrAlreadyFinalized
	}
	if amountPaid != nil {
		if err := d.UpdateDraft(d.CustomerName, d.Items, *amountPaid); err != nil {
			return nil, err
		}
	}
	return s.finalizeLocked(ctx, d)
}

// FinalizeNew creates and finalizes a document in one command. Nothing is
// stored when finalization fails.
func (s *FinalizationService) FinalizeNew(ctx context.Context, req CreateDraftRequest) (*FinalizeResult, error) {
	docType := document.DocumentType(req.Type)
	if !docType.IsValid() {
		return nil, document.ErrInvalidDocumentType
	}
	d, err := document.NewDraft(s.ownerID, docType, "", req.CustomerName, ToLineItems(req.Items), req.AmountPaid)
	if err != nil {
		return nil, err
	}
	d.Notes = req.Notes

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeLocked(ctx, d)
}

func (s *FinalizationService) finalizeLocked(ctx context.Context, d *document.Document) (*FinalizeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finalization", "finalize",
		telemetry.SpanAttrDocumentID, d.ID.String(),
		telemetry.SpanAttrDocumentType, string(d.Type),
	)
	defer span.End()

	result, err := s.applyFinalize(ctx, d)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrAmount, d.Total().String())
	return result, nil
}

// applyFinalize validates, authorizes billing, then posts to the ledger,
// moves stock and finalizes. Billing is consulted before any write.
func (s *FinalizationService) applyFinalize(ctx context.Context, d *document.Document) (*FinalizeResult, error) {
	if err := d.ValidateForFinalize(); err != nil {
		return nil, err
	}
	finalName := ledger.ResolveCustomerName(d.CustomerName)

	auth, err := s.billing.Authorize(ctx, "finalize:"+d.ID.String())
	if err != nil {
		return nil, err
	}
	if d.Number == "" {
		d.Number = s.docs.NextNumber(d.Type)
	}

	result := &FinalizeResult{Billing: auth}
	var customerID *uuid.UUID
	snapshot := decimal.Zero

	if d.Type.PostsToLedger() {
		record, err := s.postToLedger(ctx, d, finalName)
		if err != nil {
			s.billing.Release(auth)
			return nil, err
		}
		result.Ledger = record
	} else if record, err := s.ledger.GetByName(ctx, finalName); err == nil {
		result.Ledger = record
	}
	if result.Ledger != nil {
		id := result.Ledger.ID
		customerID = &id
		snapshot = result.Ledger.RemainingBalance
	}

	if d.Type.AffectsStock() {
		result.StockChanges = s.moveStock(ctx, d, s.stock.Decrement)
	}

	if err := d.Finalize(finalName, customerID, snapshot); err != nil {
		s.billing.Release(auth)
		return nil, err
	}

	var events []shared.DomainEvent
	if d.NeedsCompanionReceipt() {
		receipt := d.NewCompanionReceipt(s.docs.NextNumber(document.DocumentTypeReceipt))
		if err := s.docs.Save(ctx, receipt); err != nil {
			return nil, err
		}
		result.Receipt = receipt
	}
	if err := s.docs.Save(ctx, d); err != nil {
		return nil, err
	}
	events = append(events, d.GetDomainEvents()...)
	d.ClearDomainEvents()
	result.Document = d

	if err := s.billing.Complete(ctx, auth); err != nil {
		s.logger.Warn("Failed to record offline action", zap.String("document_id", d.ID.String()), zap.Error(err))
		result.Warnings = append(result.Warnings, err.Error())
	}

	s.logger.Info("Document finalized",
		zap.String("document_id", d.ID.String()),
		zap.String("number", d.Number),
		zap.String("type", d.Type.String()),
		zap.String("customer", finalName),
		zap.String("total", d.Total().String()),
		zap.String("amount_paid", d.AmountPaid.String()),
		zap.Bool("companion_receipt", result.Receipt != nil),
	)
	s.publish(ctx, events)
	return result, nil
}

// postToLedger records the invoice leg for the full total and the payment leg
// for the amount paid. The payment leg of an invoice with a companion receipt
// references the receipt.
func (s *FinalizationService) postToLedger(ctx context.Context, d *document.Document, customerName string) (*ledger.LedgerRecord, error) {
	var record *ledger.LedgerRecord
	docID := d.ID

	if d.Type == document.DocumentTypeInvoice && d.Total().IsPositive() {
		res, err := s.ledger.ApplyInvoicePosting(ctx, customerName, d.Total(), "Facture "+d.Number, &docID)
		if err != nil {
			return nil, err
		}
		record = res.Ledger
	}
	if d.AmountPaid.IsPositive() {
		paymentDocID := docID
		if d.NeedsCompanionReceipt() {
			paymentDocID = d.CompanionReceiptID()
		}
		res, err := s.ledger.ApplyPaymentPosting(ctx, customerName, d.AmountPaid, "Paiement "+d.Number, &paymentDocID)
		if err != nil {
			return nil, err
		}
		record = res.Ledger
	}
	if record == nil {
		if existing, err := s.ledger.GetByName(ctx, customerName); err == nil {
			record = existing
		}
	}
	return record, nil
}

// SoftDelete moves a document to DELETED and compensates its stock and
// ledger effects. Deleting a deleted document is a no-op.
func (s *FinalizationService) SoftDelete(ctx context.Context, id uuid.UUID) (*DeletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleLocked(ctx, id, true)
}

// Restore moves a document back to ACTIVE and re-applies its stock and
// ledger effects. Restoring an active document is a no-op.
func (s *FinalizationService) Restore(ctx context.Context, id uuid.UUID) (*DeletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleLocked(ctx, id, false)
}

func (s *FinalizationService) toggleLocked(ctx context.Context, id uuid.UUID, deleting bool) (*DeletionResult, error) {
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsCompanion() {
		return nil, document.ErrCompanionReceipt
	}
	if d.IsDeleted() == deleting {
		return &DeletionResult{Document: d}, nil
	}

	result := &DeletionResult{Changed: true}
	if d.IsFinalized() {
		delta := d.DeletionLedgerDelta()
		label := "Suppression "
		move := s.stock.Increment
		if !deleting {
			delta = delta.Neg()
			label = "Restauration "
			move = s.stock.Decrement
		}
		record, err := s.applyAudit(ctx, d, delta, label+d.Number)
		if err != nil {
			return nil, err
		}
		result.Ledger = record
		if d.Type.AffectsStock() {
			result.StockChanges = s.moveStock(ctx, d, move)
		}
	}

	if deleting {
		d.MarkDeleted()
	} else {
		d.Restore()
	}
	events := d.GetDomainEvents()
	d.ClearDomainEvents()

	if d.CompanionID != nil {
		companion, err := s.docs.Get(ctx, *d.CompanionID)
		switch {
		case err == nil:
			if deleting {
				companion.MarkDeleted()
			} else {
				companion.Restore()
			}
			events = append(events, companion.GetDomainEvents()...)
			if err := s.docs.Save(ctx, companion); err != nil {
				return nil, err
			}
		case errors.Is(err, document.ErrDocumentNotFound):
			s.logger.Warn("Companion receipt missing", zap.String("document_id", d.ID.String()))
		default:
			return nil, err
		}
	}
	if err := s.docs.Save(ctx, d); err != nil {
		return nil, err
	}
	result.Document = d

	s.logger.Info("Document deletion state changed",
		zap.String("document_id", d.ID.String()),
		zap.String("number", d.Number),
		zap.String("deletion", d.Deletion.String()),
		zap.Int("stock_changes", len(result.StockChanges)),
	)
	s.publish(ctx, events)
	return result, nil
}

// applyAudit posts delta to the document's ledger, falling back to a lookup
// by name when the ledger id is unknown (e.g. after a merge collapsed it).
func (s *FinalizationService) applyAudit(ctx context.Context, d *document.Document, delta decimal.Decimal, description string) (*ledger.LedgerRecord, error) {
	if delta.IsZero() || !d.Type.PostsToLedger() {
		return nil, nil
	}
	if d.CustomerID != nil {
		res, err := s.ledger.ApplyAudit(ctx, *d.CustomerID, delta, description, d.ID)
		if err == nil {
			return res.Ledger, nil
		}
		if !errors.Is(err, ledger.ErrLedgerNotFound) {
			return nil, err
		}
	}
	record, err := s.ledger.GetByName(ctx, d.CustomerName)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerNotFound) {
			s.logger.Warn("No ledger to compensate",
				zap.String("document_id", d.ID.String()),
				zap.String("customer", d.CustomerName),
			)
			return nil, nil
		}
		return nil, err
	}
	res, err := s.ledger.ApplyAudit(ctx, record.ID, delta, description, d.ID)
	if err != nil {
		return nil, err
	}
	return res.Ledger, nil
}

func (s *FinalizationService) moveStock(ctx context.Context, d *document.Document, move func(context.Context, string, int) (catalogapp.StockChange, bool)) []catalogapp.StockChange {
	var changes []catalogapp.StockChange
	for _, item := range d.Items {
		if change, ok := move(ctx, item.Description, item.Quantity); ok {
			changes = append(changes, change)
		}
	}
	return changes
}

// RenameCustomer renames a ledger and relabels the documents linked to it
func (s *FinalizationService) RenameCustomer(ctx context.Context, ledgerID uuid.UUID, newName string) (*ledger.LedgerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.ledger.Rename(ctx, ledgerID, newName)
	if err != nil {
		return nil, err
	}
	for _, d := range s.docs.List(ctx, ListFilter{CustomerID: &ledgerID, IncludeDeleted: true}) {
		d.RelabelCustomer(record.CustomerName)
		if err := s.docs.Save(ctx, d); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (s *FinalizationService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish document events", zap.Error(err), zap.Int("count", len(events)))
	}
}
