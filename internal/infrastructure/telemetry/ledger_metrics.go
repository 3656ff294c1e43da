package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics records ledger, billing and reconciliation metrics. It
// subscribes to every domain event and observes the billing controller and
// the reconciler.
type LedgerMetrics struct {
	logger *zap.Logger

	postingsTotal       *Counter
	cancellationsTotal  *Counter
	adjustmentsTotal    *Counter
	finalizationsTotal  *Counter
	deletionsTotal      *Counter
	billingDenialsTotal *Counter
	settlementsTotal    *Counter
	syncCyclesTotal     *Counter
	syncDuration        *Histogram
	offlineCount        *Gauge

	mu          sync.Mutex
	lastOffline int64
}

// NewLedgerMetrics creates the instruments on meter
func NewLedgerMetrics(meter metric.Meter, logger *zap.Logger) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &LedgerMetrics{logger: logger}

	counters := []struct {
		target **Counter
		inst   Instrument
	}{
		{&m.postingsTotal, Instrument{Name: "factureman_ledger_postings_total", Description: "Ledger postings applied", Unit: "{postings}"}},
		{&m.cancellationsTotal, Instrument{Name: "factureman_ledger_cancellations_total", Description: "Ledger postings cancelled", Unit: "{postings}"}},
		{&m.adjustmentsTotal, Instrument{Name: "factureman_ledger_adjustments_total", Description: "Manual balance adjustments", Unit: "{adjustments}"}},
		{&m.finalizationsTotal, Instrument{Name: "factureman_documents_finalized_total", Description: "Documents finalized", Unit: "{documents}"}},
		{&m.deletionsTotal, Instrument{Name: "factureman_documents_deletion_changes_total", Description: "Document soft delete and restore transitions", Unit: "{documents}"}},
		{&m.billingDenialsTotal, Instrument{Name: "factureman_billing_denials_total", Description: "Billable actions denied", Unit: "{actions}"}},
		{&m.settlementsTotal, Instrument{Name: "factureman_billing_settlements_total", Description: "Deferred billing settlement attempts", Unit: "{attempts}"}},
		{&m.syncCyclesTotal, Instrument{Name: "factureman_sync_cycles_total", Description: "Reconciliation cycles", Unit: "{cycles}"}},
	}
	var err error
	for _, c := range counters {
		if *c.target, err = c.inst.Counter(meter); err != nil {
			return nil, err
		}
	}

	m.syncDuration, err = Instrument{
		Name:        "factureman_sync_cycle_duration_seconds",
		Description: "Duration of reconciliation cycles",
		Unit:        "s",
		Buckets:     SyncDurationBuckets,
	}.Histogram(meter)
	if err != nil {
		return nil, err
	}

	m.offlineCount, err = Instrument{
		Name:        "factureman_billing_offline_count",
		Description: "Billable actions performed offline and not yet settled",
		Unit:        "{actions}",
	}.Gauge(meter)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Handle counts domain events
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.PostingAppliedEvent:
		m.postingsTotal.Inc(ctx,
			AttrPostingType.String(string(e.PostingType)),
			attribute.String("posting_kind", string(e.PostingKind)),
		)
	case *ledger.PostingCancelledEvent:
		m.cancellationsTotal.Inc(ctx)
	case *ledger.BalanceAdjustedEvent:
		m.adjustmentsTotal.Inc(ctx)
	case *document.DocumentFinalizedEvent:
		m.finalizationsTotal.Inc(ctx, AttrDocumentType.String(string(e.DocumentType)))
	case *document.DocumentDeletionChangedEvent:
		m.deletionsTotal.Inc(ctx, attribute.String("deletion", string(e.Deletion)))
	}
	return nil
}

// EventTypes subscribes to every event
func (m *LedgerMetrics) EventTypes() []string {
	return nil
}

// ObserveBillingDenial counts a denied billable action
func (m *LedgerMetrics) ObserveBillingDenial(ctx context.Context, reason billing.DenialReason) {
	m.billingDenialsTotal.Inc(ctx, AttrReason.String(reason.String()))
}

// ObserveSettlement counts a settlement attempt
func (m *LedgerMetrics) ObserveSettlement(ctx context.Context, settled bool, offlineCount int) {
	outcome := "failed"
	if settled {
		outcome = "settled"
	}
	m.settlementsTotal.Inc(ctx, AttrOutcome.String(outcome))
	m.logger.Debug("Settlement observed",
		zap.String("outcome", outcome),
		zap.Int("offline_count", offlineCount),
	)
}

// ObserveOfflineCount records the current offline counter
func (m *LedgerMetrics) ObserveOfflineCount(ctx context.Context, offlineCount int) {
	m.mu.Lock()
	m.lastOffline = int64(offlineCount)
	m.mu.Unlock()
	m.offlineCount.Record(ctx, int64(offlineCount))
}

// ObserveSyncCycle counts a reconciliation cycle and records its duration
func (m *LedgerMetrics) ObserveSyncCycle(ctx context.Context, outcome string, duration time.Duration) {
	m.syncCyclesTotal.Inc(ctx, AttrOutcome.String(outcome))
	if duration > 0 {
		m.syncDuration.RecordDuration(ctx, duration, AttrOutcome.String(outcome))
	}
}

// LastOfflineCount returns the last recorded offline counter
func (m *LedgerMetrics) LastOfflineCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOffline
}
