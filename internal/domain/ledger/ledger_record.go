package ledger

import (
	"fmt"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRecord is the per-customer credit ledger aggregate.
//
// RemainingBalance is positive when the customer owes the business and
// negative when the business holds a credit for the customer. History is
// append-only and kept newest first; postings are only ever annotated as
// cancelled and compensated by a reversal.
type LedgerRecord struct {
	shared.OwnedAggregateRoot
	CustomerKey      string
	CustomerName     string
	CustomerPhone    string
	TotalDebt        decimal.Decimal
	RemainingBalance decimal.Decimal
	History          []LedgerPosting
	Appointments     []Appointment
}

// NewLedgerRecord creates an empty ledger for a customer
func NewLedgerRecord(ownerID uuid.UUID, customerName, customerPhone string) (*LedgerRecord, error) {
	key := NormalizeCustomerName(customerName)
	if key == "" {
		return nil, ErrEmptyCustomerName
	}

	return &LedgerRecord{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		CustomerKey:        key,
		CustomerName:       key,
		CustomerPhone:      customerPhone,
		TotalDebt:          decimal.Zero,
		RemainingBalance:   decimal.Zero,
		History:            make([]LedgerPosting, 0),
		Appointments:       make([]Appointment, 0),
	}, nil
}

// ApplyInvoice appends an INVOICE posting and raises both totals.
// TotalDebt never decreases afterwards, not even when the posting is cancelled.
func (r *LedgerRecord) ApplyInvoice(amount decimal.Decimal, description string, documentID *uuid.UUID) (*LedgerPosting, error) {
	posting, err := NewLedgerPosting(PostingTypeInvoice, PostingKindRegular, amount, description)
	if err != nil {
		return nil, err
	}
	if documentID != nil {
		posting.WithDocument(*documentID)
	}
	return r.append(posting), nil
}

// ApplyPayment appends a PAYMENT posting; TotalDebt is left untouched
func (r *LedgerRecord) ApplyPayment(amount decimal.Decimal, description string, documentID *uuid.UUID) (*LedgerPosting, error) {
	posting, err := NewLedgerPosting(PostingTypePayment, PostingKindRegular, amount, description)
	if err != nil {
		return nil, err
	}
	if documentID != nil {
		posting.WithDocument(*documentID)
	}
	return r.append(posting), nil
}

// CancelPosting marks the posting cancelled and appends its reversal.
// Cancelling an already cancelled posting is a no-op and returns changed=false.
func (r *LedgerRecord) CancelPosting(postingID uuid.UUID) (reversal *LedgerPosting, changed bool, err error) {
	idx := r.indexOf(postingID)
	if idx < 0 {
		return nil, false, ErrPostingNotFound
	}

	original := &r.History[idx]
	if original.IsCancelled() {
		return nil, false, nil
	}
	if !original.Kind.IsCancellable() {
		return nil, false, ErrPostingNotCancelable
	}

	// TotalDebt is a lifetime counter; only the balance is compensated.
	original.Status = PostingStatusCancelled

	rev := original.newReversal()
	appended := r.append(rev)
	r.cancelAppointmentsFor(postingID)

	// r.append may have reallocated History; re-resolve the original.
	r.AddDomainEvent(NewPostingCancelledEvent(r, &r.History[r.indexOf(postingID)], appended))
	return appended, true, nil
}

// AdjustBalance sets the remaining balance to newBalance through an
// ADJUSTMENT posting carrying the difference. A zero difference posts nothing.
func (r *LedgerRecord) AdjustBalance(newBalance decimal.Decimal, reason string) (*LedgerPosting, error) {
	delta := newBalance.Sub(r.RemainingBalance)
	if delta.IsZero() {
		return nil, nil
	}

	postingType := PostingTypePayment
	if delta.IsPositive() {
		postingType = PostingTypeInvoice
	}
	posting, err := NewLedgerPosting(postingType, PostingKindAdjustment, delta.Abs(), reason)
	if err != nil {
		return nil, err
	}

	oldBalance := r.RemainingBalance
	appended := r.append(posting)
	r.AddDomainEvent(NewBalanceAdjustedEvent(r, oldBalance, reason))
	return appended, nil
}

// ApplyAudit records the balance effect of deleting or restoring a document
func (r *LedgerRecord) ApplyAudit(delta decimal.Decimal, description string, documentID uuid.UUID) (*LedgerPosting, error) {
	if delta.IsZero() {
		return nil, nil
	}
	postingType := PostingTypePayment
	if delta.IsPositive() {
		postingType = PostingTypeInvoice
	}
	posting, err := NewLedgerPosting(postingType, PostingKindAudit, delta.Abs(), description)
	if err != nil {
		return nil, err
	}
	posting.WithDocument(documentID)
	return r.append(posting), nil
}

// Rename changes the display name and natural key of the ledger
func (r *LedgerRecord) Rename(newName string) error {
	key := NormalizeCustomerName(newName)
	if key == "" {
		return ErrEmptyCustomerName
	}
	if key == r.CustomerKey {
		return nil
	}
	oldName := r.CustomerName
	r.CustomerKey = key
	r.CustomerName = key
	r.touch()
	r.AddDomainEvent(NewCustomerRenamedEvent(r, oldName))
	return nil
}

// UpdatePhone sets the customer phone number
func (r *LedgerRecord) UpdatePhone(phone string) {
	if phone == "" || phone == r.CustomerPhone {
		return
	}
	r.CustomerPhone = phone
	r.touch()
}

// ScheduleAppointment adds a follow-up, optionally tied to a posting
func (r *LedgerRecord) ScheduleAppointment(date time.Time, note string, postingID *uuid.UUID) (*Appointment, error) {
	if postingID != nil && r.indexOf(*postingID) < 0 {
		return nil, ErrPostingNotFound
	}
	r.Appointments = append(r.Appointments, Appointment{
		ID:        uuid.New(),
		Date:      date,
		Note:      note,
		PostingID: postingID,
		Status:    AppointmentStatusScheduled,
	})
	r.touch()
	return &r.Appointments[len(r.Appointments)-1], nil
}

// FindPosting returns the posting with the given id
func (r *LedgerRecord) FindPosting(postingID uuid.UUID) (*LedgerPosting, bool) {
	idx := r.indexOf(postingID)
	if idx < 0 {
		return nil, false
	}
	return &r.History[idx], true
}

// ReversalFor returns the reversal posting compensating postingID, if any
func (r *LedgerRecord) ReversalFor(postingID uuid.UUID) (*LedgerPosting, bool) {
	for i := range r.History {
		p := &r.History[i]
		if p.IsReversal() && p.ReversalOf != nil && *p.ReversalOf == postingID {
			return p, true
		}
	}
	return nil, false
}

// Verify checks that both totals are derivable from the history.
// The balance is the signed sum of every posting, which equals the sum over
// non-cancelled, non-reversal postings since each cancellation is offset by
// exactly one reversal.
func (r *LedgerRecord) Verify() error {
	balance, debt := r.derivedTotals()
	if !balance.Equal(r.RemainingBalance) {
		return shared.NewDomainError(ErrInconsistentLedger.Code,
			fmt.Sprintf("remaining balance %s does not match history %s", r.RemainingBalance, balance))
	}
	if !debt.Equal(r.TotalDebt) {
		return shared.NewDomainError(ErrInconsistentLedger.Code,
			fmt.Sprintf("total debt %s does not match history %s", r.TotalDebt, debt))
	}

	live := decimal.Zero
	for i := range r.History {
		p := &r.History[i]
		if p.IsCancelled() || p.IsReversal() {
			continue
		}
		live = live.Add(p.Effect())
	}
	if !live.Equal(balance) {
		return shared.NewDomainError(ErrInconsistentLedger.Code,
			fmt.Sprintf("cancelled postings are not matched by reversals (live %s, posted %s)", live, balance))
	}
	return nil
}

// Recompute derives both totals from the history
func (r *LedgerRecord) Recompute() {
	r.RemainingBalance, r.TotalDebt = r.derivedTotals()
}

// Clone returns a deep copy safe to hand out of a store
func (r *LedgerRecord) Clone() *LedgerRecord {
	c := *r
	c.History = make([]LedgerPosting, len(r.History))
	for i, p := range r.History {
		c.History[i] = p
		c.History[i].DocumentID = cloneID(p.DocumentID)
		c.History[i].ReversalOf = cloneID(p.ReversalOf)
	}
	c.Appointments = make([]Appointment, len(r.Appointments))
	for i, a := range r.Appointments {
		c.Appointments[i] = a
		c.Appointments[i].PostingID = cloneID(a.PostingID)
	}
	c.ClearDomainEvents()
	return &c
}

func (r *LedgerRecord) derivedTotals() (balance, debt decimal.Decimal) {
	balance, debt = decimal.Zero, decimal.Zero
	for i := range r.History {
		p := &r.History[i]
		balance = balance.Add(p.Effect())
		if p.countsTowardDebt() {
			debt = debt.Add(p.Amount)
		}
	}
	return balance, debt
}

// append prepends p to the history and applies its effect
func (r *LedgerRecord) append(p *LedgerPosting) *LedgerPosting {
	r.History = append([]LedgerPosting{*p}, r.History...)
	r.RemainingBalance = r.RemainingBalance.Add(p.Effect())
	if p.countsTowardDebt() {
		r.TotalDebt = r.TotalDebt.Add(p.Amount)
	}
	r.touch()
	r.AddDomainEvent(NewPostingAppliedEvent(r, &r.History[0]))
	return &r.History[0]
}

func (r *LedgerRecord) cancelAppointmentsFor(postingID uuid.UUID) {
	for i := range r.Appointments {
		a := &r.Appointments[i]
		if a.PostingID != nil && *a.PostingID == postingID {
			a.Status = AppointmentStatusCancelled
		}
	}
}

func (r *LedgerRecord) indexOf(postingID uuid.UUID) int {
	for i := range r.History {
		if r.History[i].ID == postingID {
			return i
		}
	}
	return -1
}

func (r *LedgerRecord) touch() {
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
