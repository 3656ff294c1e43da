package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the in-memory ledger store. It owns every LedgerRecord of one
// merchant and is the only writer of their balances. Records handed out are
// copies.
type Store struct {
	mu        sync.RWMutex
	ownerID   uuid.UUID
	records   map[uuid.UUID]*ledger.LedgerRecord
	byKey     map[string]uuid.UUID
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewStore creates an empty ledger store
func NewStore(ownerID uuid.UUID, publisher shared.EventPublisher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		ownerID:   ownerID,
		records:   make(map[uuid.UUID]*ledger.LedgerRecord),
		byKey:     make(map[string]uuid.UUID),
		publisher: publisher,
		logger:    logger,
	}
}

// PostingResult is the outcome of a ledger mutation
type PostingResult struct {
	Ledger  *ledger.LedgerRecord
	Posting *ledger.LedgerPosting
	Created bool
}

// ApplyInvoicePosting appends an INVOICE posting to the customer's ledger,
// creating the ledger when the customer is new.
func (s *Store) ApplyInvoicePosting(ctx context.Context, customerName string, amount decimal.Decimal, description string, documentID *uuid.UUID) (*PostingResult, error) {
	return s.mutateByName(ctx, customerName, true, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		return r.ApplyInvoice(amount, description, documentID)
	})
}

// ApplyPaymentPosting appends a PAYMENT posting. A new customer starts with a credit.
func (s *Store) ApplyPaymentPosting(ctx context.Context, customerName string, amount decimal.Decimal, description string, documentID *uuid.UUID) (*PostingResult, error) {
	return s.mutateByName(ctx, customerName, true, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		return r.ApplyPayment(amount, description, documentID)
	})
}

// CancelPosting cancels a posting of the customer's ledger. Cancelling an
// already cancelled posting returns the unchanged ledger.
func (s *Store) CancelPosting(ctx context.Context, customerName string, postingID uuid.UUID) (*PostingResult, error) {
	return s.mutateByName(ctx, customerName, false, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		reversal, _, err := r.CancelPosting(postingID)
		return reversal, err
	})
}

// CancelPostingByLedgerID is CancelPosting addressed by ledger id
func (s *Store) CancelPostingByLedgerID(ctx context.Context, ledgerID, postingID uuid.UUID) (*PostingResult, error) {
	return s.mutateByID(ctx, ledgerID, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		reversal, _, err := r.CancelPosting(postingID)
		return reversal, err
	})
}

// AdjustBalanceManually sets the customer's balance to newBalance
func (s *Store) AdjustBalanceManually(ctx context.Context, customerName string, newBalance decimal.Decimal, reason string) (*PostingResult, error) {
	return s.mutateByName(ctx, customerName, false, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		return r.AdjustBalance(newBalance, reason)
	})
}

// ApplyAudit records the balance effect of deleting or restoring a document
func (s *Store) ApplyAudit(ctx context.Context, ledgerID uuid.UUID, delta decimal.Decimal, description string, documentID uuid.UUID) (*PostingResult, error) {
	return s.mutateByID(ctx, ledgerID, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		return r.ApplyAudit(delta, description, documentID)
	})
}

// ScheduleAppointment adds a follow-up to a ledger
func (s *Store) ScheduleAppointment(ctx context.Context, ledgerID uuid.UUID, date time.Time, note string, postingID *uuid.UUID) (*ledger.LedgerRecord, error) {
	result, err := s.mutateByID(ctx, ledgerID, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		_, err := r.ScheduleAppointment(date, note, postingID)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return result.Ledger, nil
}

// Rename changes a customer's name while keeping the ledger id
func (s *Store) Rename(ctx context.Context, ledgerID uuid.UUID, newName string) (*ledger.LedgerRecord, error) {
	s.mu.Lock()
	r, ok := s.records[ledgerID]
	if !ok {
		s.mu.Unlock()
		return nil, ledger.ErrLedgerNotFound
	}
	newKey := ledger.NormalizeCustomerName(newName)
	if owner, taken := s.byKey[newKey]; taken && owner != ledgerID {
		s.mu.Unlock()
		return nil, ledger.ErrCustomerNameTaken
	}
	oldKey := r.CustomerKey
	if err := r.Rename(newName); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	delete(s.byKey, oldKey)
	s.byKey[r.CustomerKey] = r.ID
	events := r.GetDomainEvents()
	r.ClearDomainEvents()
	out := r.Clone()
	s.mu.Unlock()

	s.publish(ctx, events)
	return out, nil
}

// UpdatePhone sets the phone number of a customer's ledger
func (s *Store) UpdatePhone(ctx context.Context, ledgerID uuid.UUID, phone string) (*ledger.LedgerRecord, error) {
	result, err := s.mutateByID(ctx, ledgerID, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		r.UpdatePhone(phone)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return result.Ledger, nil
}

// Get returns the ledger with the given id
func (s *Store) Get(_ context.Context, ledgerID uuid.UUID) (*ledger.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[ledgerID]
	if !ok {
		return nil, ledger.ErrLedgerNotFound
	}
	return r.Clone(), nil
}

// GetByName returns the ledger of the customer with the given name
func (s *Store) GetByName(_ context.Context, customerName string) (*ledger.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.lookup(customerName)
	if r == nil {
		return nil, ledger.ErrLedgerNotFound
	}
	return r.Clone(), nil
}

// Balance returns the customer's remaining balance, zero for unknown customers
func (s *Store) Balance(_ context.Context, customerName string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.lookup(customerName); r != nil {
		return r.RemainingBalance
	}
	return decimal.Zero
}

// List returns every ledger sorted by customer name
func (s *Store) List(_ context.Context) []*ledger.LedgerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ledger.LedgerRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerKey < out[j].CustomerKey })
	return out
}

// Verify checks one ledger's totals against its history
func (s *Store) Verify(_ context.Context, ledgerID uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[ledgerID]
	if !ok {
		return ledger.ErrLedgerNotFound
	}
	return r.Verify()
}

// VerifyAll checks every ledger and returns the failures keyed by ledger id
func (s *Store) VerifyAll(_ context.Context) map[uuid.UUID]error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	failures := make(map[uuid.UUID]error)
	for id, r := range s.records {
		if err := r.Verify(); err != nil {
			failures[id] = err
		}
	}
	return failures
}

// Snapshot returns copies of every ledger
func (s *Store) Snapshot() []*ledger.LedgerRecord {
	return s.List(context.Background())
}

// Load replaces the store content, typically from local persistence at startup
func (s *Store) Load(records []*ledger.LedgerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[uuid.UUID]*ledger.LedgerRecord, len(records))
	s.byKey = make(map[string]uuid.UUID, len(records))
	for _, r := range records {
		s.insertLocked(r.Clone())
	}
}

// MergeStats counts what a merge changed
type MergeStats struct {
	Merged    int
	Added     int
	Collapsed int
}

// MergeRemote merges remote ledgers into the store. Histories are unioned,
// so no local posting is lost. Ledgers sharing a customer name are collapsed
// onto the oldest one.
func (s *Store) MergeRemote(remote []*ledger.LedgerRecord) MergeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats MergeStats
	for _, rr := range remote {
		if local, ok := s.records[rr.ID]; ok {
			merged := ledger.Merge(local, rr)
			if local.CustomerKey != merged.CustomerKey {
				delete(s.byKey, local.CustomerKey)
			}
			s.records[merged.ID] = merged
			stats.Merged++
		} else {
			s.records[rr.ID] = rr.Clone()
			stats.Added++
		}
	}

	// Rebuild the name index, collapsing duplicates.
	s.byKey = make(map[string]uuid.UUID, len(s.records))
	ids := make([]uuid.UUID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.records[ids[i]], s.records[ids[j]]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	for _, id := range ids {
		r := s.records[id]
		if keeperID, taken := s.byKey[r.CustomerKey]; taken {
			keeper := s.records[keeperID]
			keeper.Absorb(r)
			delete(s.records, id)
			stats.Collapsed++
			s.logger.Info("Collapsed duplicate customer ledger",
				zap.String("customer_key", r.CustomerKey),
				zap.String("kept_id", keeperID.String()),
				zap.String("absorbed_id", id.String()),
			)
			continue
		}
		s.byKey[r.CustomerKey] = id
	}
	return stats
}

// mutateByName runs fn on the customer's ledger under the store lock
func (s *Store) mutateByName(ctx context.Context, customerName string, create bool, fn func(*ledger.LedgerRecord) (*ledger.LedgerPosting, error)) (*PostingResult, error) {
	s.mu.Lock()
	r := s.lookup(customerName)
	created := false
	if r == nil {
		if !create {
			s.mu.Unlock()
			return nil, ledger.ErrLedgerNotFound
		}
		var err error
		r, err = ledger.NewLedgerRecord(s.ownerID, ledger.ResolveCustomerName(customerName), "")
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		created = true
	}
	return s.applyLocked(ctx, r, created, fn)
}

func (s *Store) mutateByID(ctx context.Context, ledgerID uuid.UUID, fn func(*ledger.LedgerRecord) (*ledger.LedgerPosting, error)) (*PostingResult, error) {
	s.mu.Lock()
	r, ok := s.records[ledgerID]
	if !ok {
		s.mu.Unlock()
		return nil, ledger.ErrLedgerNotFound
	}
	return s.applyLocked(ctx, r, false, fn)
}

// applyLocked runs fn on a copy of r with s.mu held and swaps the copy in
// only when fn succeeds, so a failed mutation leaves the stored record
// untouched. The lock is released before publishing events.
func (s *Store) applyLocked(ctx context.Context, r *ledger.LedgerRecord, created bool, fn func(*ledger.LedgerRecord) (*ledger.LedgerPosting, error)) (*PostingResult, error) {
	if !created {
		r = r.Clone()
	}
	posting, err := fn(r)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.insertLocked(r)

	result := &PostingResult{Ledger: r.Clone(), Created: created}
	if posting != nil {
		p := *posting
		result.Posting = &p
	}
	events := r.GetDomainEvents()
	r.ClearDomainEvents()
	s.mu.Unlock()

	s.publish(ctx, events)
	return result, nil
}

func (s *Store) insertLocked(r *ledger.LedgerRecord) {
	s.records[r.ID] = r
	s.byKey[r.CustomerKey] = r.ID
}

func (s *Store) lookup(customerName string) *ledger.LedgerRecord {
	id, ok := s.byKey[ledger.ResolveCustomerName(customerName)]
	if !ok {
		return nil
	}
	return s.records[id]
}

func (s *Store) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish ledger events", zap.Error(err), zap.Int("count", len(events)))
	}
}
