package ledger

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest represents a payment received from a customer
type RecordPaymentRequest struct {
	CustomerName string          `json:"customer_name" binding:"required,customer_name,max=200"`
	Amount       decimal.Decimal `json:"amount" binding:"gt=0"`
	Description  string          `json:"description" binding:"max=500"`
}

// CancelPostingRequest identifies a posting to cancel
type CancelPostingRequest struct {
	CustomerName string    `json:"customer_name" binding:"required,customer_name,max=200"`
	PostingID    uuid.UUID `json:"posting_id" binding:"required"`
}

// AdjustBalanceRequest represents an administrative balance correction
type AdjustBalanceRequest struct {
	CustomerName string          `json:"customer_name" binding:"required,customer_name,max=200"`
	NewBalance   decimal.Decimal `json:"new_balance"`
	Reason       string          `json:"reason" binding:"required,min=1,max=500"`
}

// RenameCustomerRequest changes the customer name of a ledger
type RenameCustomerRequest struct {
	Name string `json:"name" binding:"required,customer_name,max=200"`
}

// ScheduleAppointmentRequest adds a follow-up to a ledger
type ScheduleAppointmentRequest struct {
	Date      time.Time  `json:"date" binding:"required"`
	Note      string     `json:"note" binding:"max=500"`
	PostingID *uuid.UUID `json:"posting_id"`
}

// PostingResponse represents a ledger posting in API responses
type PostingResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Effect      decimal.Decimal `json:"effect"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	Status      string          `json:"status"`
	DocumentID  *uuid.UUID      `json:"document_id,omitempty"`
	ReversalOf  *uuid.UUID      `json:"reversal_of,omitempty"`
}

// AppointmentResponse represents an appointment in API responses
type AppointmentResponse struct {
	ID        uuid.UUID  `json:"id"`
	Date      time.Time  `json:"date"`
	Note      string     `json:"note"`
	PostingID *uuid.UUID `json:"posting_id,omitempty"`
	Status    string     `json:"status"`
}

// LedgerResponse represents a customer ledger in API responses
type LedgerResponse struct {
	ID               uuid.UUID             `json:"id"`
	CustomerName     string                `json:"customer_name"`
	CustomerPhone    string                `json:"customer_phone"`
	TotalDebt        decimal.Decimal       `json:"total_debt"`
	RemainingBalance decimal.Decimal       `json:"remaining_balance"`
	History          []PostingResponse     `json:"history"`
	Appointments     []AppointmentResponse `json:"appointments"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	Version          int                   `json:"version"`
}

// LedgerSummaryResponse is the list view of a ledger
type LedgerSummaryResponse struct {
	ID               uuid.UUID       `json:"id"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	TotalDebt        decimal.Decimal `json:"total_debt"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PostingCount     int             `json:"posting_count"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PostingResultResponse is returned by ledger commands
type PostingResultResponse struct {
	Ledger  LedgerResponse   `json:"ledger"`
	Posting *PostingResponse `json:"posting,omitempty"`
	Created bool             `json:"created"`
}

// ToPostingResponse converts a posting
func ToPostingResponse(p *ledger.LedgerPosting) PostingResponse {
	return PostingResponse{
		ID:          p.ID,
		Type:        p.Type.String(),
		Kind:        p.Kind.String(),
		Amount:      p.Amount,
		Effect:      p.Effect(),
		Description: p.Description,
		Date:        p.Date,
		CreatedAt:   p.CreatedAt,
		Status:      p.Status.String(),
		DocumentID:  p.DocumentID,
		ReversalOf:  p.ReversalOf,
	}
}

// ToLedgerResponse converts a ledger record
func ToLedgerResponse(r *ledger.LedgerRecord) LedgerResponse {
	history := make([]PostingResponse, len(r.History))
	for i := range r.History {
		history[i] = ToPostingResponse(&r.History[i])
	}
	appointments := make([]AppointmentResponse, len(r.Appointments))
	for i, a := range r.Appointments {
		appointments[i] = AppointmentResponse{
			ID:        a.ID,
			Date:      a.Date,
			Note:      a.Note,
			PostingID: a.PostingID,
			Status:    string(a.Status),
		}
	}
	return LedgerResponse{
		ID:               r.ID,
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		TotalDebt:        r.TotalDebt,
		RemainingBalance: r.RemainingBalance,
		History:          history,
		Appointments:     appointments,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Version:          r.Version,
	}
}

// ToLedgerSummaryResponse converts a ledger record to its list view
func ToLedgerSummaryResponse(r *ledger.LedgerRecord) LedgerSummaryResponse {
	return LedgerSummaryResponse{
		ID:               r.ID,
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		TotalDebt:        r.TotalDebt,
		RemainingBalance: r.RemainingBalance,
		PostingCount:     len(r.History),
		UpdatedAt:        r.UpdatedAt,
	}
}

// ToPostingResultResponse converts a PostingResult
func ToPostingResultResponse(res *PostingResult) PostingResultResponse {
	out := PostingResultResponse{
		Ledger:  ToLedgerResponse(res.Ledger),
		Created: res.Created,
	}
	if res.Posting != nil {
		p := ToPostingResponse(res.Posting)
		out.Posting = &p
	}
	return out
}
