package persistence

import (
	"context"
	"fmt"

	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/profile"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 100

// ErrOwnerMismatch is returned when an entity belongs to another owner
var ErrOwnerMismatch = shared.NewDomainError("OWNER_MISMATCH", "Entity belongs to a different owner")

// SnapshotRepository stores whole owner snapshots with per-record upserts.
// It backs the on-device SQLite store and the PostgreSQL store of record.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// FetchAll loads every collection of an owner
func (r *SnapshotRepository) FetchAll(ctx context.Context, ownerID uuid.UUID) (*reconciliation.Snapshot, error) {
	db := r.db.WithContext(ctx)
	snapshot := &reconciliation.Snapshot{}

	var products []models.ProductModel
	if err := db.Scopes(OwnedBy(ownerID)).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	for i := range products {
		snapshot.Products = append(snapshot.Products, products[i].ToDomain())
	}

	var docs []models.DocumentModel
	if err := db.Scopes(OwnedBy(ownerID)).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	for i := range docs {
		snapshot.Documents = append(snapshot.Documents, docs[i].ToDomain())
	}

	var ledgers []models.LedgerModel
	if err := db.Scopes(OwnedBy(ownerID)).
		Preload("Postings", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Appointments", func(tx *gorm.DB) *gorm.DB { return tx.Order("date ASC") }).
		Order("created_at ASC").
		Find(&ledgers).Error; err != nil {
		return nil, fmt.Errorf("fetch ledgers: %w", err)
	}
	for i := range ledgers {
		snapshot.Ledgers = append(snapshot.Ledgers, ledgers[i].ToDomain())
	}

	var profiles []models.BusinessProfileModel
	if err := db.Scopes(OwnedBy(ownerID)).Limit(1).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if len(profiles) > 0 {
		snapshot.Profile = profiles[0].ToDomain()
	}

	return snapshot, nil
}

// UpsertProducts inserts or replaces products by id
func (r *SnapshotRepository) UpsertProducts(ctx context.Context, ownerID uuid.UUID, products []*catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]models.ProductModel, 0, len(products))
	for _, p := range products {
		if err := checkOwner(ownerID, p.OwnerID); err != nil {
			return err
		}
		var m models.ProductModel
		m.FromDomain(p)
		rows = append(rows, m)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(&rows, upsertBatchSize).Error
}

// UpsertDocuments inserts or replaces documents by id
func (r *SnapshotRepository) UpsertDocuments(ctx context.Context, ownerID uuid.UUID, docs []*document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]models.DocumentModel, 0, len(docs))
	for _, d := range docs {
		if err := checkOwner(ownerID, d.OwnerID); err != nil {
			return err
		}
		var m models.DocumentModel
		m.FromDomain(d)
		rows = append(rows, m)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(&rows, upsertBatchSize).Error
}

// UpsertLedgers inserts or replaces ledgers together with their postings and
// appointments. Rows are never removed: history is append-only.
func (r *SnapshotRepository) UpsertLedgers(ctx context.Context, ownerID uuid.UUID, ledgers []*ledger.LedgerRecord) error {
	if len(ledgers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range ledgers {
			if err := checkOwner(ownerID, l.OwnerID); err != nil {
				return err
			}
			var m models.LedgerModel
			m.FromDomain(l)

			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&m).Error; err != nil {
				return fmt.Errorf("upsert ledger %s: %w", l.ID, err)
			}
			if len(m.Postings) > 0 {
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
					CreateInBatches(&m.Postings, upsertBatchSize).Error; err != nil {
					return fmt.Errorf("upsert postings of %s: %w", l.ID, err)
				}
			}
			if len(m.Appointments) > 0 {
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
					CreateInBatches(&m.Appointments, upsertBatchSize).Error; err != nil {
					return fmt.Errorf("upsert appointments of %s: %w", l.ID, err)
				}
			}
		}
		return nil
	})
}

// UpsertProfile inserts or replaces the business profile
func (r *SnapshotRepository) UpsertProfile(ctx context.Context, ownerID uuid.UUID, p *profile.BusinessProfile) error {
	if p == nil {
		return nil
	}
	if err := checkOwner(ownerID, p.OwnerID); err != nil {
		return err
	}
	var m models.BusinessProfileModel
	m.FromDomain(p)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&m).Error
}

func checkOwner(expected, actual uuid.UUID) error {
	if actual != expected {
		return ErrOwnerMismatch
	}
	return nil
}

var _ reconciliation.Store = (*SnapshotRepository)(nil)
