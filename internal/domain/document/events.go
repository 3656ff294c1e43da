package document

import (
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeDocument is the aggregate type for document events
const AggregateTypeDocument = "Document"

const (
	EventTypeDocumentFinalized       = "DocumentFinalized"
	EventTypeDocumentDeletionChanged = "DocumentDeletionChanged"
)

// DocumentFinalizedEvent is raised when a draft becomes a finalized document
type DocumentFinalizedEvent struct {
	shared.BaseDomainEvent
	DocumentID   uuid.UUID       `json:"document_id"`
	DocumentType DocumentType    `json:"document_type"`
	Number       string          `json:"number"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
}

// NewDocumentFinalizedEvent creates a DocumentFinalizedEvent
func NewDocumentFinalizedEvent(d *Document) *DocumentFinalizedEvent {
	return &DocumentFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentFinalized, AggregateTypeDocument, d.ID, d.OwnerID),
		DocumentID:      d.ID,
		DocumentType:    d.Type,
		Number:          d.Number,
		CustomerName:    d.CustomerName,
		Total:           d.Total(),
		AmountPaid:      d.AmountPaid,
	}
}

// DocumentDeletionChangedEvent is raised on soft delete and restore
type DocumentDeletionChangedEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID     `json:"document_id"`
	Deletion   DeletionState `json:"deletion"`
}

// NewDocumentDeletionChangedEvent creates a DocumentDeletionChangedEvent
func NewDocumentDeletionChangedEvent(d *Document) *DocumentDeletionChangedEvent {
	return &DocumentDeletionChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDeletionChanged, AggregateTypeDocument, d.ID, d.OwnerID),
		DocumentID:      d.ID,
		Deletion:        d.Deletion,
	}
}
