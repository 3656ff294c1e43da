package document

import (
	"github.com/shopspring/decimal"
)

// LineItem is one priced line of a document
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Total returns quantity × unit price
func (i LineItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks the line item
func (i LineItem) Validate() error {
	if i.Description == "" || i.Quantity <= 0 || i.UnitPrice.IsNegative() {
		return ErrInvalidLineItem
	}
	return nil
}
