package persistence

import (
	"context"

	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OfflineStateRepository persists the offline billing counter on the device
type OfflineStateRepository struct {
	db *gorm.DB
}

// NewOfflineStateRepository creates a new OfflineStateRepository
func NewOfflineStateRepository(db *gorm.DB) *OfflineStateRepository {
	return &OfflineStateRepository{db: db}
}

// Load returns the stored state, or nil when nothing was saved yet
func (r *OfflineStateRepository) Load(ctx context.Context, ownerID uuid.UUID) (*billing.OfflineActivityState, error) {
	var rows []models.OfflineStateModel
	if err := r.db.WithContext(ctx).Scopes(OwnedBy(ownerID)).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// Save replaces the stored state
func (r *OfflineStateRepository) Save(ctx context.Context, state *billing.OfflineActivityState) error {
	var m models.OfflineStateModel
	m.FromDomain(state)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&m).Error
}

var _ billing.StateStore = (*OfflineStateRepository)(nil)
