package reconciliation

import (
	"context"
	"time"

	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/profile"
	"github.com/google/uuid"
)

// Snapshot is the full state of one owner across the four collections
type Snapshot struct {
	Products  []*catalog.Product
	Documents []*document.Document
	Ledgers   []*ledger.LedgerRecord
	Profile   *profile.BusinessProfile
}

// IsEmpty reports whether the snapshot holds nothing
func (s *Snapshot) IsEmpty() bool {
	return s == nil || (len(s.Products) == 0 && len(s.Documents) == 0 && len(s.Ledgers) == 0 && s.Profile == nil)
}

// Store is a persistence adapter: per-record upsert keyed by id plus a full
// fetch. It backs both the local device store and the remote store of record.
type Store interface {
	FetchAll(ctx context.Context, ownerID uuid.UUID) (*Snapshot, error)
	UpsertProducts(ctx context.Context, ownerID uuid.UUID, products []*catalog.Product) error
	UpsertDocuments(ctx context.Context, ownerID uuid.UUID, docs []*document.Document) error
	UpsertLedgers(ctx context.Context, ownerID uuid.UUID, ledgers []*ledger.LedgerRecord) error
	UpsertProfile(ctx context.Context, ownerID uuid.UUID, p *profile.BusinessProfile) error
}

// MergeReport counts what a pull changed
type MergeReport struct {
	ProductsReplaced  int                  `json:"products_replaced"`
	ProductsKept      int                  `json:"products_kept"`
	DocumentsReplaced int                  `json:"documents_replaced"`
	DocumentsKept     int                  `json:"documents_kept"`
	Ledgers           ledgerapp.MergeStats `json:"ledgers"`
	ProfileReplaced   bool                 `json:"profile_replaced"`
}

// Workspace is the in-memory state the commands operate on
type Workspace struct {
	Ledgers   *ledgerapp.Store
	Catalog   *catalogapp.StockService
	Documents *documentapp.DocumentStore
	Profile   *profileapp.Service
}

// Snapshot copies every collection
func (w *Workspace) Snapshot() *Snapshot {
	return &Snapshot{
		Products:  w.Catalog.Snapshot(),
		Documents: w.Documents.Snapshot(),
		Ledgers:   w.Ledgers.Snapshot(),
		Profile:   w.Profile.Snapshot(),
	}
}

// Load replaces every collection
func (w *Workspace) Load(s *Snapshot) {
	w.Catalog.Load(s.Products)
	w.Documents.Load(s.Documents)
	w.Ledgers.Load(s.Ledgers)
	w.Profile.Load(s.Profile)
}

// Merge applies a remote snapshot. Entities modified locally after since
// stay local until the next push.
func (w *Workspace) Merge(remote *Snapshot, since time.Time) MergeReport {
	var report MergeReport
	report.ProductsReplaced, report.ProductsKept = w.Catalog.MergeRemote(remote.Products, since)
	report.DocumentsReplaced, report.DocumentsKept = w.Documents.MergeRemote(remote.Documents, since)
	report.Ledgers = w.Ledgers.MergeRemote(remote.Ledgers)
	report.ProfileReplaced = w.Profile.MergeRemote(remote.Profile, since)
	return report
}
