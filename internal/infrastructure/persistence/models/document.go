package models

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate.
// Line items are stored as a JSON column.
type DocumentModel struct {
	OwnedAggregateModel
	Type                  string              `gorm:"type:varchar(30);not null;index"`
	Number                string              `gorm:"type:varchar(50);index"`
	Date                  time.Time           `gorm:"not null"`
	CustomerName          string              `gorm:"type:varchar(200)"`
	CustomerID            *uuid.UUID          `gorm:"type:uuid;index"`
	Items                 []document.LineItem `gorm:"serializer:json"`
	AmountPaid            decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Notes                 string              `gorm:"type:text"`
	Lifecycle             string              `gorm:"type:varchar(20);not null"`
	FinalizedAt           *time.Time
	ClientBalanceSnapshot decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	Deletion              string              `gorm:"type:varchar(20);not null"`
	DeletedAt             *time.Time
	ParentID              *uuid.UUID `gorm:"type:uuid;index"`
	CompanionID           *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() *document.Document {
	d := &document.Document{
		OwnedAggregateRoot: m.ToDomainOwnedAggregateRoot(),
		Type:               document.DocumentType(m.Type),
		Number:             m.Number,
		Date:               m.Date,
		CustomerName:       m.CustomerName,
		CustomerID:         m.CustomerID,
		Items:              m.Items,
		AmountPaid:         m.AmountPaid,
		Notes:              m.Notes,
		Lifecycle:          document.Lifecycle(m.Lifecycle),
		FinalizedAt:        m.FinalizedAt,
		Deletion:           document.DeletionState(m.Deletion),
		DeletedAt:          m.DeletedAt,
		ParentID:           m.ParentID,
		CompanionID:        m.CompanionID,
	}
	if d.Items == nil {
		d.Items = make([]document.LineItem, 0)
	}
	if m.ClientBalanceSnapshot.Valid {
		snapshot := m.ClientBalanceSnapshot.Decimal
		d.ClientBalanceSnapshot = &snapshot
	}
	return d
}

// FromDomain populates the persistence model from a domain Document
func (m *DocumentModel) FromDomain(d *document.Document) {
	m.FromDomainOwnedAggregateRoot(d.OwnedAggregateRoot)
	m.Type = d.Type.String()
	m.Number = d.Number
	m.Date = d.Date
	m.CustomerName = d.CustomerName
	m.CustomerID = d.CustomerID
	m.Items = d.Items
	m.AmountPaid = d.AmountPaid
	m.Notes = d.Notes
	m.Lifecycle = d.Lifecycle.String()
	m.FinalizedAt = d.FinalizedAt
	m.ClientBalanceSnapshot = decimal.NullDecimal{}
	if d.ClientBalanceSnapshot != nil {
		m.ClientBalanceSnapshot = decimal.NewNullDecimal(*d.ClientBalanceSnapshot)
	}
	m.Deletion = d.Deletion.String()
	m.DeletedAt = d.DeletedAt
	m.ParentID = d.ParentID
	m.CompanionID = d.CompanionID
}
