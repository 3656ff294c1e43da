package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_UnionOfPostings(t *testing.T) {
	base := newTestLedger(t, "KONE")
	_, err := base.ApplyInvoice(decimal.NewFromInt(5000), "FAC-0001", nil)
	require.NoError(t, err)

	deviceA := base.Clone()
	deviceB := base.Clone()
	_, err = deviceA.ApplyPayment(decimal.NewFromInt(1000), "A", nil)
	require.NoError(t, err)
	_, err = deviceB.ApplyPayment(decimal.NewFromInt(500), "B", nil)
	require.NoError(t, err)

	merged := Merge(deviceA, deviceB)

	assert.Len(t, merged.History, 3)
	assert.True(t, merged.RemainingBalance.Equal(decimal.NewFromInt(3500)))
	assert.True(t, merged.TotalDebt.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, base.ID, merged.ID)
	assert.NoError(t, merged.Verify())
}

func TestMerge_CancellationIsSticky(t *testing.T) {
	base := newTestLedger(t, "KONE")
	payment, err := base.ApplyPayment(decimal.NewFromInt(800), "", nil)
	require.NoError(t, err)
	paymentID := payment.ID

	local := base.Clone()
	remote := base.Clone()
	_, _, err = local.CancelPosting(paymentID)
	require.NoError(t, err)

	merged := Merge(local, remote)

	p, ok := merged.FindPosting(paymentID)
	require.True(t, ok)
	assert.True(t, p.IsCancelled())
	assert.True(t, merged.RemainingBalance.IsZero())
	assert.NoError(t, merged.Verify())
}

func TestMerge_DuplicateReversalsCollapse(t *testing.T) {
	base := newTestLedger(t, "KONE")
	payment, err := base.ApplyPayment(decimal.NewFromInt(300), "", nil)
	require.NoError(t, err)
	paymentID := payment.ID

	local := base.Clone()
	remote := base.Clone()
	_, _, err = local.CancelPosting(paymentID)
	require.NoError(t, err)
	_, _, err = remote.CancelPosting(paymentID)
	require.NoError(t, err)

	merged := Merge(local, remote)

	reversals := 0
	for _, p := range merged.History {
		if p.IsReversal() {
			reversals++
		}
	}
	assert.Equal(t, 1, reversals)
	assert.True(t, merged.RemainingBalance.IsZero())
	assert.NoError(t, merged.Verify())
}

func TestMerge_RemoteWinsScalars(t *testing.T) {
	local := newTestLedger(t, "KONE")
	remote := local.Clone()
	remote.CustomerPhone = "+22376000000"
	remote.CustomerName = "KONE"

	merged := Merge(local, remote)
	assert.Equal(t, "+22376000000", merged.CustomerPhone)

	assert.Equal(t, local.ID, Merge(local, nil).ID)
	assert.Equal(t, remote.ID, Merge(nil, remote).ID)
}

func TestLedgerRecord_Absorb(t *testing.T) {
	first := newTestLedger(t, "KONE")
	second, err := NewLedgerRecord(uuid.New(), "kone", "")
	require.NoError(t, err)
	_, err = first.ApplyInvoice(decimal.NewFromInt(100), "", nil)
	require.NoError(t, err)
	_, err = second.ApplyInvoice(decimal.NewFromInt(50), "", nil)
	require.NoError(t, err)

	first.Absorb(second)

	assert.Len(t, first.History, 2)
	assert.True(t, first.RemainingBalance.Equal(decimal.NewFromInt(150)))
	assert.NoError(t, first.Verify())
}
