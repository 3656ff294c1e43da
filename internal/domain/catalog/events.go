package catalog

import (
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeProduct is the aggregate type for product events
const AggregateTypeProduct = "Product"

// EventTypeProductChanged is raised when a product is created or its stock is set
const EventTypeProductChanged = "ProductChanged"

// ProductChangedEvent carries the product state after an administrative change
type ProductChangedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
}

// NewProductChangedEvent creates a ProductChangedEvent
func NewProductChangedEvent(p *Product) *ProductChangedEvent {
	return &ProductChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductChanged, AggregateTypeProduct, p.ID, p.OwnerID),
		ProductID:       p.ID,
		Name:            p.Name,
		Stock:           p.Stock,
	}
}
