package document

import (
	"time"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemInput is one line of a document request
type LineItemInput struct {
	Description string          `json:"description" binding:"required,min=1,max=200"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"gte=0"`
}

// CreateDraftRequest represents a request to create a draft document
type CreateDraftRequest struct {
	Type         string          `json:"type" binding:"required,oneof=INVOICE RECEIPT DELIVERY_NOTE PURCHASE_ORDER QUOTE PROFORMA"`
	CustomerName string          `json:"customer_name" binding:"max=200"`
	Items        []LineItemInput `json:"items" binding:"dive"`
	AmountPaid   decimal.Decimal `json:"amount_paid" binding:"gte=0"`
	Notes        string          `json:"notes" binding:"max=1000"`
}

// UpdateDraftRequest replaces the content of a draft
type UpdateDraftRequest struct {
	CustomerName string          `json:"customer_name" binding:"max=200"`
	Items        []LineItemInput `json:"items" binding:"dive"`
	AmountPaid   decimal.Decimal `json:"amount_paid" binding:"gte=0"`
	Notes        string          `json:"notes" binding:"max=1000"`
}

// FinalizeRequest optionally overrides the payment captured at finalization
type FinalizeRequest struct {
	AmountPaid *decimal.Decimal `json:"amount_paid" binding:"omitempty,gte=0"`
}

// LineItemResponse represents a document line in API responses
type LineItemResponse struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID                    uuid.UUID          `json:"id"`
	Type                  string             `json:"type"`
	Number                string             `json:"number"`
	Date                  time.Time          `json:"date"`
	CustomerName          string             `json:"customer_name"`
	CustomerID            *uuid.UUID         `json:"customer_id,omitempty"`
	Items                 []LineItemResponse `json:"items"`
	Total                 decimal.Decimal    `json:"total"`
	AmountPaid            decimal.Decimal    `json:"amount_paid"`
	Balance               decimal.Decimal    `json:"balance"`
	Notes                 string             `json:"notes,omitempty"`
	Lifecycle             string             `json:"lifecycle"`
	IsFinalized           bool               `json:"is_finalized"`
	FinalizedAt           *time.Time         `json:"finalized_at,omitempty"`
	ClientBalanceSnapshot *decimal.Decimal   `json:"client_balance_snapshot,omitempty"`
	Deletion              string             `json:"deletion"`
	DeletedAt             *time.Time         `json:"deleted_at,omitempty"`
	ParentID              *uuid.UUID         `json:"parent_id,omitempty"`
	CompanionID           *uuid.UUID         `json:"companion_id,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// FinalizeResponse is returned by the finalize command
type FinalizeResponse struct {
	Document     DocumentResponse          `json:"document"`
	Receipt      *DocumentResponse         `json:"receipt,omitempty"`
	Ledger       *ledgerapp.LedgerResponse `json:"ledger,omitempty"`
	StockChanges []catalogapp.StockChange  `json:"stock_changes"`
	Billing      *billingapp.Authorization `json:"billing,omitempty"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

// DeletionResponse is returned by soft delete and restore
type DeletionResponse struct {
	Document     DocumentResponse          `json:"document"`
	Changed      bool                      `json:"changed"`
	Ledger       *ledgerapp.LedgerResponse `json:"ledger,omitempty"`
	StockChanges []catalogapp.StockChange  `json:"stock_changes"`
}

// ToLineItems converts request lines
func ToLineItems(in []LineItemInput) []document.LineItem {
	items := make([]document.LineItem, len(in))
	for i, l := range in {
		items[i] = document.LineItem{Description: l.Description, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return items
}

// ToDocumentResponse converts a document
func ToDocumentResponse(d *document.Document) DocumentResponse {
	items := make([]LineItemResponse, len(d.Items))
	for i, item := range d.Items {
		items[i] = LineItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total(),
		}
	}
	return DocumentResponse{
		ID:                    d.ID,
		Type:                  d.Type.String(),
		Number:                d.Number,
		Date:                  d.Date,
		CustomerName:          d.CustomerName,
		CustomerID:            d.CustomerID,
		Items:                 items,
		Total:                 d.Total(),
		AmountPaid:            d.AmountPaid,
		Balance:               d.Balance(),
		Notes:                 d.Notes,
		Lifecycle:             d.Lifecycle.String(),
		IsFinalized:           d.IsFinalized(),
		FinalizedAt:           d.FinalizedAt,
		ClientBalanceSnapshot: d.ClientBalanceSnapshot,
		Deletion:              d.Deletion.String(),
		DeletedAt:             d.DeletedAt,
		ParentID:              d.ParentID,
		CompanionID:           d.CompanionID,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

// ToDocumentResponses converts a list of documents
func ToDocumentResponses(docs []*document.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = ToDocumentResponse(d)
	}
	return out
}

// ToFinalizeResponse converts a finalization result
func ToFinalizeResponse(r *FinalizeResult) FinalizeResponse {
	resp := FinalizeResponse{
		Document:     ToDocumentResponse(r.Document),
		StockChanges: r.StockChanges,
		Billing:      r.Billing,
		Warnings:     r.Warnings,
	}
	if r.Receipt != nil {
		receipt := ToDocumentResponse(r.Receipt)
		resp.Receipt = &receipt
	}
	if r.Ledger != nil {
		l := ledgerapp.ToLedgerResponse(r.Ledger)
		resp.Ledger = &l
	}
	return resp
}

// ToDeletionResponse converts a delete or restore result
func ToDeletionResponse(r *DeletionResult) DeletionResponse {
	resp := DeletionResponse{
		Document:     ToDocumentResponse(r.Document),
		Changed:      r.Changed,
		StockChanges: r.StockChanges,
	}
	if r.Ledger != nil {
		l := ledgerapp.ToLedgerResponse(r.Ledger)
		resp.Ledger = &l
	}
	return resp
}
