package models

import (
	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate
type ProductModel struct {
	OwnedAggregateModel
	Name      string          `gorm:"type:varchar(200);not null"`
	NameKey   string          `gorm:"type:varchar(200);not null;index"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Stock     int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		OwnedAggregateRoot: m.ToDomainOwnedAggregateRoot(),
		Name:               m.Name,
		NameKey:            m.NameKey,
		UnitPrice:          m.UnitPrice,
		Stock:              m.Stock,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainOwnedAggregateRoot(p.OwnedAggregateRoot)
	m.Name = p.Name
	m.NameKey = p.NameKey
	m.UnitPrice = p.UnitPrice
	m.Stock = p.Stock
}
