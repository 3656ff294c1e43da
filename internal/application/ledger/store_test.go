package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func newTestStore() (*Store, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewStore(uuid.New(), pub, zap.NewNop()), pub
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestStore_InvoiceCreatesLedger(t *testing.T) {
	ctx := context.Background()
	s, pub := newTestStore()

	res, err := s.ApplyInvoicePosting(ctx, "kone", d(5000), "FAC-0001", nil)
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, "KONE", res.Ledger.CustomerName)
	assert.True(t, res.Ledger.TotalDebt.Equal(d(5000)))
	assert.True(t, res.Ledger.RemainingBalance.Equal(d(5000)))
	require.NotNil(t, res.Posting)
	assert.Equal(t, ledger.PostingTypeInvoice, res.Posting.Type)
	assert.Contains(t, pub.types(), ledger.EventTypePostingApplied)

	again, err := s.ApplyInvoicePosting(ctx, "  KONE ", d(100), "FAC-0002", nil)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.Ledger.ID, again.Ledger.ID)
}

func TestStore_PartialPaymentThenSettleThenCancel(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	_, err := s.ApplyInvoicePosting(ctx, "KONE", d(5000), "FAC-0001", nil)
	require.NoError(t, err)
	_, err = s.ApplyPaymentPosting(ctx, "KONE", d(2000), "Acompte", nil)
	require.NoError(t, err)

	full, err := s.ApplyPaymentPosting(ctx, "KONE", d(3000), "Solde", nil)
	require.NoError(t, err)
	assert.True(t, full.Ledger.RemainingBalance.IsZero())
	assert.True(t, full.Ledger.TotalDebt.Equal(d(5000)))

	cancelled, err := s.CancelPosting(ctx, "KONE", full.Posting.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Ledger.RemainingBalance.Equal(d(3000)))
	assert.True(t, cancelled.Ledger.TotalDebt.Equal(d(5000)))
	assert.Equal(t, ledger.PostingTypePayment, cancelled.Posting.Type)
	assert.Equal(t, ledger.PostingKindReversal, cancelled.Posting.Kind)
	assert.True(t, cancelled.Posting.Amount.Equal(d(3000)))

	twice, err := s.CancelPosting(ctx, "KONE", full.Posting.ID)
	require.NoError(t, err)
	assert.Nil(t, twice.Posting)
	assert.True(t, twice.Ledger.RemainingBalance.Equal(d(3000)))
	assert.Len(t, twice.Ledger.History, len(cancelled.Ledger.History))
}

func TestStore_PrepaymentCreatesCredit(t *testing.T) {
	s, _ := newTestStore()

	res, err := s.ApplyPaymentPosting(context.Background(), "DIALLO", d(1000), "Avance", nil)
	require.NoError(t, err)
	assert.True(t, res.Ledger.RemainingBalance.Equal(d(-1000)))
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	_, err := s.CancelPosting(ctx, "NOBODY", uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.AdjustBalanceManually(ctx, "NOBODY", d(5), "x")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.ApplyPaymentPosting(ctx, "KONE", d(1), "", nil)
	require.NoError(t, err)
	_, err = s.CancelPosting(ctx, "KONE", uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStore_FailedMutationDoesNotCreateLedger(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.ApplyInvoicePosting(context.Background(), "KONE", d(0), "", nil)
	assert.Error(t, err)
	assert.Empty(t, s.List(context.Background()))
}

func TestStore_FailedMutationLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	s, pub := newTestStore()
	res, err := s.ApplyInvoicePosting(ctx, "KONE", d(5000), "FAC-000001", nil)
	require.NoError(t, err)
	published := len(pub.events)

	_, err = s.mutateByID(ctx, res.Ledger.ID, func(r *ledger.LedgerRecord) (*ledger.LedgerPosting, error) {
		if _, err := r.ApplyPayment(d(2000), "REC-000001", nil); err != nil {
			return nil, err
		}
		r.UpdatePhone("+22370000000")
		return nil, ledger.ErrInconsistentLedger
	})
	require.ErrorIs(t, err, ledger.ErrInconsistentLedger)

	got, err := s.Get(ctx, res.Ledger.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 1)
	assert.True(t, got.RemainingBalance.Equal(d(5000)))
	assert.Empty(t, got.CustomerPhone)
	assert.NoError(t, got.Verify())
	assert.Len(t, pub.events, published, "a failed mutation publishes nothing")

	_, err = s.ApplyPaymentPosting(ctx, "KONE", d(2000), "REC-000001", nil)
	require.NoError(t, err)
	assert.True(t, s.Balance(ctx, "KONE").Equal(d(3000)))
}

func TestStore_WalkInCustomer(t *testing.T) {
	s, _ := newTestStore()

	res, err := s.ApplyInvoicePosting(context.Background(), "  ", d(300), "", nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.WalkInCustomerName, res.Ledger.CustomerName)
}

func TestStore_Rename(t *testing.T) {
	ctx := context.Background()
	s, pub := newTestStore()

	kone, err := s.ApplyInvoicePosting(ctx, "KONE", d(10), "", nil)
	require.NoError(t, err)
	_, err = s.ApplyInvoicePosting(ctx, "TRAORE", d(10), "", nil)
	require.NoError(t, err)

	renamed, err := s.Rename(ctx, kone.Ledger.ID, "Koné Awa")
	require.NoError(t, err)
	assert.Equal(t, "KONÉ AWA", renamed.CustomerName)
	assert.Contains(t, pub.types(), ledger.EventTypeCustomerRenamed)

	byName, err := s.GetByName(ctx, "koné awa")
	require.NoError(t, err)
	assert.Equal(t, kone.Ledger.ID, byName.ID)
	_, err = s.GetByName(ctx, "KONE")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = s.Rename(ctx, kone.Ledger.ID, "traore")
	assert.ErrorIs(t, err, ledger.ErrCustomerNameTaken)
}

func TestStore_MergeRemote(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	local, err := s.ApplyInvoicePosting(ctx, "KONE", d(5000), "FAC-0001", nil)
	require.NoError(t, err)

	remote := local.Ledger.Clone()
	_, err = remote.ApplyPayment(d(1000), "paid on another device", nil)
	require.NoError(t, err)

	_, err = s.ApplyPaymentPosting(ctx, "KONE", d(500), "paid here", nil)
	require.NoError(t, err)

	newRemote, err := ledger.NewLedgerRecord(uuid.New(), "TRAORE", "")
	require.NoError(t, err)

	stats := s.MergeRemote([]*ledger.LedgerRecord{remote, newRemote})
	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 1, stats.Added)

	merged, err := s.GetByName(ctx, "KONE")
	require.NoError(t, err)
	assert.Len(t, merged.History, 3)
	assert.True(t, merged.RemainingBalance.Equal(d(3500)))
	assert.NoError(t, merged.Verify())

	_, err = s.GetByName(ctx, "TRAORE")
	assert.NoError(t, err)
}

func TestStore_MergeRemoteCollapsesDuplicateNames(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	local, err := s.ApplyInvoicePosting(ctx, "KONE", d(100), "", nil)
	require.NoError(t, err)

	other, err := ledger.NewLedgerRecord(uuid.New(), "kone", "")
	require.NoError(t, err)
	_, err = other.ApplyInvoice(d(50), "", nil)
	require.NoError(t, err)
	other.CreatedAt = local.Ledger.CreatedAt.Add(1)

	stats := s.MergeRemote([]*ledger.LedgerRecord{other})
	assert.Equal(t, 1, stats.Collapsed)

	all := s.List(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, local.Ledger.ID, all[0].ID)
	assert.True(t, all[0].RemainingBalance.Equal(d(150)))
}

func TestStore_VerifyAll(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	_, err := s.ApplyInvoicePosting(ctx, "KONE", d(100), "", nil)
	require.NoError(t, err)
	assert.Empty(t, s.VerifyAll(ctx))
}

func TestStore_LoadAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	_, err := s.ApplyInvoicePosting(ctx, "KONE", d(100), "", nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	other, _ := newTestStore()
	other.Load(snap)

	assert.True(t, other.Balance(ctx, "kone").Equal(d(100)))
	assert.True(t, other.Balance(ctx, "unknown").IsZero())
}
