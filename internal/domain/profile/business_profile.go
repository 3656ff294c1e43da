package profile

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrProfileNameRequired is returned when a profile has no business name
var ErrProfileNameRequired = shared.NewDomainError("INVALID_INPUT", "Business name cannot be empty")

// BusinessProfile holds the merchant identity printed on documents.
// There is one profile per owner; its id is the owner id.
type BusinessProfile struct {
	shared.OwnedAggregateRoot
	BusinessName string
	Phone        string
	Address      string
	TaxID        string
	Currency     string
	Footer       string
}

// NewBusinessProfile creates the profile for an owner
func NewBusinessProfile(ownerID uuid.UUID, businessName string) (*BusinessProfile, error) {
	if businessName == "" {
		return nil, ErrProfileNameRequired
	}
	p := &BusinessProfile{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		BusinessName:       businessName,
		Currency:           "XOF",
	}
	p.ID = ownerID
	return p, nil
}

// Update replaces the editable fields
func (p *BusinessProfile) Update(businessName, phone, address, taxID, currency, footer string) error {
	if businessName == "" {
		return ErrProfileNameRequired
	}
	p.BusinessName = businessName
	p.Phone = phone
	p.Address = address
	p.TaxID = taxID
	if currency != "" {
		p.Currency = currency
	}
	p.Footer = footer
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Clone returns a copy safe to hand out of a store
func (p *BusinessProfile) Clone() *BusinessProfile {
	c := *p
	c.ClearDomainEvents()
	return &c
}
