package catalog

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound     = shared.NewDomainError("NOT_FOUND", "Product not found")
	ErrProductNameRequired = shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	ErrNegativeStock       = shared.NewDomainError("INVALID_INPUT", "Stock cannot be negative")
	ErrInvalidQuantity     = shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
)

// Product is a sellable item with a stock level that never drops below zero.
// Products are matched to document lines by normalized name.
type Product struct {
	shared.OwnedAggregateRoot
	Name      string
	NameKey   string
	UnitPrice decimal.Decimal
	Stock     int
}

// NewProduct creates a product
func NewProduct(ownerID uuid.UUID, name string, unitPrice decimal.Decimal, stock int) (*Product, error) {
	key := NormalizeProductName(name)
	if key == "" {
		return nil, ErrProductNameRequired
	}
	if stock < 0 {
		return nil, ErrNegativeStock
	}
	return &Product{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		Name:               name,
		NameKey:            key,
		UnitPrice:          unitPrice,
		Stock:              stock,
	}, nil
}

// NormalizeProductName returns the matching key for a product or line description
func NormalizeProductName(name string) string {
	return ledger.NormalizeCustomerName(name)
}

// Decrement removes quantity from stock, clamping at zero. It returns the
// amount actually removed.
func (p *Product) Decrement(quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	removed := quantity
	if removed > p.Stock {
		removed = p.Stock
	}
	p.Stock -= removed
	p.touch()
	return removed, nil
}

// Increment adds quantity to stock
func (p *Product) Increment(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.touch()
	return nil
}

// SetStock overwrites the stock level (inventory count)
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return ErrNegativeStock
	}
	p.Stock = stock
	p.touch()
	return nil
}

// Clone returns a copy safe to hand out of a store
func (p *Product) Clone() *Product {
	c := *p
	c.ClearDomainEvents()
	return &c
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
