package catalog

import (
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to add a product
type CreateProductRequest struct {
	Name      string          `json:"name" binding:"required,min=1,max=200"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"gte=0"`
	Stock     int             `json:"stock" binding:"min=0"`
}

// SetStockRequest overwrites a product's stock
type SetStockRequest struct {
	Stock int `json:"stock" binding:"min=0"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToProductResponse converts a product
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Stock:     p.Stock,
		UpdatedAt: p.UpdatedAt,
	}
}
