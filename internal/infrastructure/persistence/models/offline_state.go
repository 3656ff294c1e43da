package models

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/google/uuid"
)

// OfflineStateModel persists the device's deferred billing counter
type OfflineStateModel struct {
	OwnerID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OfflineCount      int       `gorm:"not null;default:0"`
	HasUnpaidDebt     bool      `gorm:"not null;default:false"`
	LastFailureReason string    `gorm:"type:varchar(500)"`
	LastSettledAt     *time.Time
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OfflineStateModel) TableName() string {
	return "offline_activity_state"
}

// ToDomain converts the persistence model to a domain OfflineActivityState
func (m *OfflineStateModel) ToDomain() *billing.OfflineActivityState {
	return &billing.OfflineActivityState{
		OwnerID:           m.OwnerID,
		OfflineCount:      m.OfflineCount,
		HasUnpaidDebt:     m.HasUnpaidDebt,
		LastFailureReason: m.LastFailureReason,
		LastSettledAt:     m.LastSettledAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OfflineActivityState
func (m *OfflineStateModel) FromDomain(s *billing.OfflineActivityState) {
	m.OwnerID = s.OwnerID
	m.OfflineCount = s.OfflineCount
	m.HasUnpaidDebt = s.HasUnpaidDebt
	m.LastFailureReason = s.LastFailureReason
	m.LastSettledAt = s.LastSettledAt
	m.UpdatedAt = s.UpdatedAt
}

// All returns every model managed by the local device store
func All() []any {
	return []any{
		&ProductModel{},
		&DocumentModel{},
		&LedgerModel{},
		&LedgerPostingModel{},
		&AppointmentModel{},
		&BusinessProfileModel{},
		&OfflineStateModel{},
	}
}
