package models

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerModel is the persistence model for the LedgerRecord aggregate.
// Postings and appointments live in child tables.
type LedgerModel struct {
	OwnedAggregateModel
	CustomerKey      string               `gorm:"type:varchar(200);not null;index"`
	CustomerName     string               `gorm:"type:varchar(200);not null"`
	CustomerPhone    string               `gorm:"type:varchar(50)"`
	TotalDebt        decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	RemainingBalance decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Postings         []LedgerPostingModel `gorm:"foreignKey:LedgerID;constraint:OnDelete:CASCADE"`
	Appointments     []AppointmentModel   `gorm:"foreignKey:LedgerID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (LedgerModel) TableName() string {
	return "ledgers"
}

// LedgerPostingModel is one row of a ledger's history.
// Position is the index in the newest-first history.
type LedgerPostingModel struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey"`
	LedgerID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	Position    int                `gorm:"not null"`
	Type        ledger.PostingType `gorm:"type:varchar(20);not null"`
	Kind        string             `gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Description string             `gorm:"type:varchar(500)"`
	Date        time.Time          `gorm:"not null"`
	CreatedAt   time.Time          `gorm:"not null"`
	Status      string             `gorm:"type:varchar(20);not null"`
	DocumentID  *uuid.UUID         `gorm:"type:uuid;index"`
	ReversalOf  *uuid.UUID         `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (LedgerPostingModel) TableName() string {
	return "ledger_postings"
}

// AppointmentModel is a payment follow-up attached to a ledger
type AppointmentModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LedgerID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Date      time.Time  `gorm:"not null"`
	Note      string     `gorm:"type:varchar(500)"`
	PostingID *uuid.UUID `gorm:"type:uuid"`
	Status    string     `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (AppointmentModel) TableName() string {
	return "ledger_appointments"
}

// ToDomain converts the persistence model to a domain LedgerRecord
func (m *LedgerModel) ToDomain() *ledger.LedgerRecord {
	record := &ledger.LedgerRecord{
		OwnedAggregateRoot: m.ToDomainOwnedAggregateRoot(),
		CustomerKey:        m.CustomerKey,
		CustomerName:       m.CustomerName,
		CustomerPhone:      m.CustomerPhone,
		TotalDebt:          m.TotalDebt,
		RemainingBalance:   m.RemainingBalance,
		History:            make([]ledger.LedgerPosting, 0, len(m.Postings)),
		Appointments:       make([]ledger.Appointment, 0, len(m.Appointments)),
	}
	for _, p := range m.Postings {
		record.History = append(record.History, ledger.LedgerPosting{
			ID:          p.ID,
			Type:        p.Type,
			Kind:        ledger.PostingKind(p.Kind),
			Amount:      p.Amount,
			Description: p.Description,
			Date:        p.Date,
			CreatedAt:   p.CreatedAt,
			Status:      ledger.PostingStatus(p.Status),
			DocumentID:  p.DocumentID,
			ReversalOf:  p.ReversalOf,
		})
	}
	for _, a := range m.Appointments {
		record.Appointments = append(record.Appointments, ledger.Appointment{
			ID:        a.ID,
			Date:      a.Date,
			Note:      a.Note,
			PostingID: a.PostingID,
			Status:    ledger.AppointmentStatus(a.Status),
		})
	}
	return record
}

// FromDomain populates the persistence model from a domain LedgerRecord
func (m *LedgerModel) FromDomain(r *ledger.LedgerRecord) {
	m.FromDomainOwnedAggregateRoot(r.OwnedAggregateRoot)
	m.CustomerKey = r.CustomerKey
	m.CustomerName = r.CustomerName
	m.CustomerPhone = r.CustomerPhone
	m.TotalDebt = r.TotalDebt
	m.RemainingBalance = r.RemainingBalance

	m.Postings = make([]LedgerPostingModel, 0, len(r.History))
	for i, p := range r.History {
		m.Postings = append(m.Postings, LedgerPostingModel{
			ID:          p.ID,
			LedgerID:    r.ID,
			Position:    i,
			Type:        p.Type,
			Kind:        p.Kind.String(),
			Amount:      p.Amount,
			Description: p.Description,
			Date:        p.Date,
			CreatedAt:   p.CreatedAt,
			Status:      p.Status.String(),
			DocumentID:  p.DocumentID,
			ReversalOf:  p.ReversalOf,
		})
	}
	m.Appointments = make([]AppointmentModel, 0, len(r.Appointments))
	for _, a := range r.Appointments {
		m.Appointments = append(m.Appointments, AppointmentModel{
			ID:        a.ID,
			LedgerID:  r.ID,
			Date:      a.Date,
			Note:      a.Note,
			PostingID: a.PostingID,
			Status:    string(a.Status),
		})
	}
}
