package ledger

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, name string) *LedgerRecord {
	t.Helper()
	r, err := NewLedgerRecord(uuid.New(), name, "")
	require.NoError(t, err)
	return r
}

func TestNewLedgerRecord(t *testing.T) {
	t.Run("normalizes the customer name", func(t *testing.T) {
		r, err := NewLedgerRecord(uuid.New(), "  kone   moussa ", "+22370000000")
		require.NoError(t, err)
		assert.Equal(t, "KONE MOUSSA", r.CustomerKey)
		assert.Equal(t, "KONE MOUSSA", r.CustomerName)
		assert.Equal(t, "+22370000000", r.CustomerPhone)
		assert.True(t, r.RemainingBalance.IsZero())
		assert.True(t, r.TotalDebt.IsZero())
		assert.Empty(t, r.History)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := NewLedgerRecord(uuid.New(), "   ", "")
		assert.ErrorIs(t, err, ErrEmptyCustomerName)
	})
}

func TestLedgerRecord_InvoiceThenPartialPayment(t *testing.T) {
	r := newTestLedger(t, "KONE")

	_, err := r.ApplyInvoice(decimal.NewFromInt(5000), "FAC-0001", nil)
	require.NoError(t, err)
	_, err = r.ApplyPayment(decimal.NewFromInt(2000), "Acompte FAC-0001", nil)
	require.NoError(t, err)

	assert.True(t, r.TotalDebt.Equal(decimal.NewFromInt(5000)))
	assert.True(t, r.RemainingBalance.Equal(decimal.NewFromInt(3000)))
	require.Len(t, r.History, 2)
	assert.Equal(t, PostingTypePayment, r.History[0].Type, "newest first")
	assert.Equal(t, PostingTypeInvoice, r.History[1].Type)
	assert.NoError(t, r.Verify())
}

func TestLedgerRecord_PaymentWithoutInvoiceIsCredit(t *testing.T) {
	r := newTestLedger(t, "TRAORE")

	_, err := r.ApplyPayment(decimal.NewFromInt(1500), "Avance", nil)
	require.NoError(t, err)

	assert.True(t, r.RemainingBalance.Equal(decimal.NewFromInt(-1500)))
	assert.True(t, r.TotalDebt.IsZero())
}

func TestLedgerRecord_RejectsNonPositiveAmounts(t *testing.T) {
	r := newTestLedger(t, "KONE")

	_, err := r.ApplyInvoice(decimal.Zero, "", nil)
	assert.Error(t, err)
	_, err = r.ApplyPayment(decimal.NewFromInt(-5), "", nil)
	assert.Error(t, err)
	assert.Empty(t, r.History)
}

func TestLedgerRecord_CancelPayment(t *testing.T) {
	r := newTestLedger(t, "KONE")
	_, err := r.ApplyInvoice(decimal.NewFromInt(5000), "FAC-0001", nil)
	require.NoError(t, err)
	_, err = r.ApplyPayment(decimal.NewFromInt(2000), "Acompte", nil)
	require.NoError(t, err)
	payment, err := r.ApplyPayment(decimal.NewFromInt(3000), "Solde", nil)
	require.NoError(t, err)
	paymentID := payment.ID
	require.True(t, r.RemainingBalance.IsZero())

	reversal, changed, err := r.CancelPosting(paymentID)
	require.NoError(t, err)
	require.True(t, changed)

	assert.True(t, r.RemainingBalance.Equal(decimal.NewFromInt(3000)))
	assert.True(t, r.TotalDebt.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, PostingTypePayment, reversal.Type)
	assert.Equal(t, PostingKindReversal, reversal.Kind)
	assert.True(t, reversal.Amount.Equal(decimal.NewFromInt(3000)))
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, paymentID, *reversal.ReversalOf)

	original, ok := r.FindPosting(paymentID)
	require.True(t, ok)
	assert.Equal(t, PostingStatusCancelled, original.Status)
	assert.NoError(t, r.Verify())
}

func TestLedgerRecord_CancelIsIdempotent(t *testing.T) {
	r := newTestLedger(t, "KONE")
	payment, err := r.ApplyPayment(decimal.NewFromInt(700), "", nil)
	require.NoError(t, err)
	paymentID := payment.ID

	_, changed, err := r.CancelPosting(paymentID)
	require.NoError(t, err)
	require.True(t, changed)
	once := r.Clone()

	reversal, changed, err := r.CancelPosting(paymentID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, reversal)
	assert.Len(t, r.History, len(once.History))
	assert.True(t, r.RemainingBalance.Equal(once.RemainingBalance))
	assert.True(t, r.TotalDebt.Equal(once.TotalDebt))
}

func TestLedgerRecord_CancelInvoiceKeepsLifetimeDebt(t *testing.T) {
	r := newTestLedger(t, "KONE")
	invoice, err := r.ApplyInvoice(decimal.NewFromInt(5000), "FAC-0002", nil)
	require.NoError(t, err)
	_, err = r.ApplyPayment(decimal.NewFromInt(2000), "REC-0001", nil)
	require.NoError(t, err)

	_, changed, err := r.CancelPosting(invoice.ID)
	require.NoError(t, err)
	require.True(t, changed)

	assert.True(t, r.RemainingBalance.Equal(decimal.NewFromInt(-2000)))
	assert.True(t, r.TotalDebt.Equal(decimal.NewFromInt(5000)), "got %s", r.TotalDebt)
	assert.NoError(t, r.Verify())

	r.Recompute()
	assert.True(t, r.TotalDebt.Equal(decimal.NewFromInt(5000)))

	_, err = r.ApplyInvoice(decimal.NewFromInt(700), "FAC-0003", nil)
	require.NoError(t, err)
	assert.True(t, r.TotalDebt.Equal(decimal.NewFromInt(5700)))
}

func TestLedgerRecord_CancelErrors(t *testing.T) {
	r := newTestLedger(t, "KONE")

	_, _, err := r.CancelPosting(uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	payment, err := r.ApplyPayment(decimal.NewFromInt(100), "", nil)
	require.NoError(t, err)
	reversal, _, err := r.CancelPosting(payment.ID)
	require.NoError(t, err)

	_, _, err = r.CancelPosting(reversal.ID)
	assert.ErrorIs(t, err, ErrPostingNotCancelable)
}

func TestLedgerRecord_CancelCancelsLinkedAppointments(t *testing.T) {
	r := newTestLedger(t, "KONE")
	invoice, err := r.ApplyInvoice(decimal.NewFromInt(900), "", nil)
	require.NoError(t, err)
	invoiceID := invoice.ID
	_, err = r.ScheduleAppointment(invoice.CreatedAt, "relance", &invoiceID)
	require.NoError(t, err)
	_, err = r.ScheduleAppointment(invoice.CreatedAt, "visite", nil)
	require.NoError(t, err)

	_, _, err = r.CancelPosting(invoiceID)
	require.NoError(t, err)

	assert.Equal(t, AppointmentStatusCancelled, r.Appointments[0].Status)
	assert.Equal(t, AppointmentStatusScheduled, r.Appointments[1].Status)
}

func TestLedgerRecord_AdjustBalance(t *testing.T) {
	r := newTestLedger(t, "KONE")
	_, err := r.ApplyInvoice(decimal.NewFromInt(1000), "", nil)
	require.NoError(t, err)

	up, err := r.AdjustBalance(decimal.NewFromInt(1500), "correction")
	require.NoError(t, err)
	require.NotNil(t, up)
	assert.Equal(t, PostingTypeInvoice, up.Type)
	assert.Equal(t, PostingKindAdjustment, up.Kind)
	assert.True(t, r.RemainingBalance.Equal(decimal.NewFromInt(1500)))
	assert.True(t, r.TotalDebt.Equal(decimal.NewFromInt(1000)), "adjustments are not invoiced debt")

	down, err := r.AdjustBalance(decimal.NewFromInt(-200), "avoir")
	require.NoError(t, err)
	assert.Equal(t, PostingTypePayment, down.Type)
	assert.True(t, down.Amount.Equal(decimal.NewFromInt(1700)))
	assert.True(t, r.RemainingBalance.Equal(decimal.NewFromInt(-200)))

	none, err := r.AdjustBalance(decimal.NewFromInt(-200), "noop")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, r.Verify())
}

func TestLedgerRecord_Rename(t *testing.T) {
	r := newTestLedger(t, "kone")
	id := r.ID

	require.NoError(t, r.Rename(" Koné Awa "))
	assert.Equal(t, "KONÉ AWA", r.CustomerKey)
	assert.Equal(t, id, r.ID)
	assert.ErrorIs(t, r.Rename(""), ErrEmptyCustomerName)
}

func TestLedgerRecord_VerifyDetectsTampering(t *testing.T) {
	r := newTestLedger(t, "KONE")
	_, err := r.ApplyInvoice(decimal.NewFromInt(400), "", nil)
	require.NoError(t, err)

	r.RemainingBalance = decimal.NewFromInt(10)
	assert.Error(t, r.Verify())

	r.Recompute()
	assert.NoError(t, r.Verify())
}

// Balance must match the history after every operation of an arbitrary sequence.
func TestLedgerRecord_ConsistencyUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		r := newTestLedger(t, "PROPERTY")
		for step := 0; step < 40; step++ {
			amount := decimal.NewFromInt(int64(rng.Intn(10000) + 1))
			switch rng.Intn(4) {
			case 0:
				_, err := r.ApplyInvoice(amount, "inv", nil)
				require.NoError(t, err)
			case 1:
				_, err := r.ApplyPayment(amount, "pay", nil)
				require.NoError(t, err)
			case 2:
				if len(r.History) == 0 {
					continue
				}
				target := r.History[rng.Intn(len(r.History))]
				_, _, err := r.CancelPosting(target.ID)
				if err != nil {
					require.ErrorIs(t, err, ErrPostingNotCancelable)
				}
			case 3:
				_, err := r.AdjustBalance(amount.Sub(decimal.NewFromInt(5000)), "adj")
				require.NoError(t, err)
			}
			require.NoError(t, r.Verify(), "run %d step %d", run, step)
		}
	}
}

func TestLedgerRecord_CloneIsIndependent(t *testing.T) {
	r := newTestLedger(t, "KONE")
	docID := uuid.New()
	_, err := r.ApplyInvoice(decimal.NewFromInt(10), "", &docID)
	require.NoError(t, err)

	c := r.Clone()
	c.History[0].Status = PostingStatusCancelled
	*c.History[0].DocumentID = uuid.New()

	assert.Equal(t, PostingStatusActive, r.History[0].Status)
	assert.Equal(t, docID, *r.History[0].DocumentID)
	assert.Empty(t, c.GetDomainEvents())
}
