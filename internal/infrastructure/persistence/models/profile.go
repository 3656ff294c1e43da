package models

import (
	"github.com/amadolemli/factureman-sub000/internal/domain/profile"
)

// BusinessProfileModel is the persistence model for the BusinessProfile aggregate
type BusinessProfileModel struct {
	OwnedAggregateModel
	BusinessName string `gorm:"type:varchar(200);not null"`
	Phone        string `gorm:"type:varchar(50)"`
	Address      string `gorm:"type:varchar(500)"`
	TaxID        string `gorm:"type:varchar(50)"`
	Currency     string `gorm:"type:varchar(10)"`
	Footer       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (BusinessProfileModel) TableName() string {
	return "business_profiles"
}

// ToDomain converts the persistence model to a domain BusinessProfile
func (m *BusinessProfileModel) ToDomain() *profile.BusinessProfile {
	return &profile.BusinessProfile{
		OwnedAggregateRoot: m.ToDomainOwnedAggregateRoot(),
		BusinessName:       m.BusinessName,
		Phone:              m.Phone,
		Address:            m.Address,
		TaxID:              m.TaxID,
		Currency:           m.Currency,
		Footer:             m.Footer,
	}
}

// FromDomain populates the persistence model from a domain BusinessProfile
func (m *BusinessProfileModel) FromDomain(p *profile.BusinessProfile) {
	m.FromDomainOwnedAggregateRoot(p.OwnedAggregateRoot)
	m.BusinessName = p.BusinessName
	m.Phone = p.Phone
	m.Address = p.Address
	m.TaxID = p.TaxID
	m.Currency = p.Currency
	m.Footer = p.Footer
}
