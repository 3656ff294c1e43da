//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"go.uber.org/zap"
)

// setupRemoteDB starts a PostgreSQL container and applies the embedded migrations
func setupRemoteDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("factureman_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig(nil))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	st, err := m.EnsureCurrent()
	require.NoError(t, err)
	require.True(t, st.UpToDate())
	require.Empty(t, st.Pending)
	return db
}

func newDevice(t *testing.T, ownerID uuid.UUID, remote reconciliation.Store) (*reconciliation.Reconciler, *reconciliation.Workspace) {
	t.Helper()
	local := setupLocalDB(t)
	ws := &reconciliation.Workspace{
		Ledgers:   ledgerapp.NewStore(ownerID, nil, zap.NewNop()),
		Catalog:   catalogapp.NewStockService(ownerID, zap.NewNop()),
		Documents: documentapp.NewDocumentStore(),
		Profile:   profileapp.NewService(ownerID),
	}
	return reconciliation.NewReconciler(ownerID, ws, NewSnapshotRepository(local.DB), remote, zap.NewNop()), ws
}

func TestPostgresSnapshotRoundTrip(t *testing.T) {
	repo := NewSnapshotRepository(setupRemoteDB(t))
	ctx := context.Background()
	ownerID := uuid.New()

	l, invoice := newTestLedger(t, ownerID)
	require.NoError(t, repo.UpsertLedgers(ctx, ownerID, []*ledger.LedgerRecord{l}))

	_, changed, err := l.CancelPosting(invoice.ID)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, repo.UpsertLedgers(ctx, ownerID, []*ledger.LedgerRecord{l}))

	snap, err := repo.FetchAll(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, snap.Ledgers, 1)
	got := snap.Ledgers[0]
	require.Len(t, got.History, 3)
	assert.NoError(t, got.Verify())
	assert.True(t, got.RemainingBalance.Equal(l.RemainingBalance))
	require.Len(t, got.Appointments, 1)
}

func TestPostgresTwoDeviceReconciliation(t *testing.T) {
	remote := NewSnapshotRepository(setupRemoteDB(t))
	ctx := context.Background()
	ownerID := uuid.New()

	deviceA, wsA := newDevice(t, ownerID, remote)
	deviceB, wsB := newDevice(t, ownerID, remote)

	_, err := wsA.Ledgers.ApplyInvoicePosting(ctx, "Moussa Koné", decimal.NewFromInt(8000), "Facture", nil)
	require.NoError(t, err)
	_, err = deviceA.RunCycle(ctx)
	require.NoError(t, err)

	_, err = deviceB.RunCycle(ctx)
	require.NoError(t, err)
	assert.True(t, wsB.Ledgers.Balance(ctx, "Moussa Koné").Equal(decimal.NewFromInt(8000)))

	// Device B records a payment offline, then both devices converge
	_, err = wsB.Ledgers.ApplyPaymentPosting(ctx, "Moussa Koné", decimal.NewFromInt(3000), "Versement", nil)
	require.NoError(t, err)
	_, err = deviceB.RunCycle(ctx)
	require.NoError(t, err)
	_, err = deviceA.RunCycle(ctx)
	require.NoError(t, err)

	for _, ws := range []*reconciliation.Workspace{wsA, wsB} {
		record, err := ws.Ledgers.GetByName(ctx, "Moussa Koné")
		require.NoError(t, err)
		assert.Len(t, record.History, 2)
		assert.True(t, record.RemainingBalance.Equal(decimal.NewFromInt(5000)))
		assert.NoError(t, record.Verify())
	}
}
