package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockChange is the stock delta applied to one product
type StockChange struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
	Applied     int       `json:"applied"`
	StockAfter  int       `json:"stock_after"`
}

// StockService holds the product catalog in memory and applies stock movements.
// Products are matched to document lines by normalized name; unmatched names
// are ignored, never created.
type StockService struct {
	mu       sync.RWMutex
	ownerID  uuid.UUID
	products map[uuid.UUID]*catalog.Product
	logger   *zap.Logger

	publisher shared.EventPublisher
}

// NewStockService creates an empty catalog
func NewStockService(ownerID uuid.UUID, logger *zap.Logger) *StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockService{
		ownerID:  ownerID,
		products: make(map[uuid.UUID]*catalog.Product),
		logger:   logger,
	}
}

// SetEventPublisher sets the publisher notified of administrative product changes
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateProduct adds a product to the catalog
func (s *StockService) CreateProduct(ctx context.Context, name string, unitPrice decimal.Decimal, stock int) (*catalog.Product, error) {
	p, err := catalog.NewProduct(s.ownerID, name, unitPrice, stock)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.products[p.ID] = p
	out := p.Clone()
	s.mu.Unlock()
	s.publishChanged(ctx, out)
	return out, nil
}

// SetStock overwrites a product's stock level
func (s *StockService) SetStock(ctx context.Context, productID uuid.UUID, stock int) (*catalog.Product, error) {
	s.mu.Lock()
	p, ok := s.products[productID]
	if !ok {
		s.mu.Unlock()
		return nil, catalog.ErrProductNotFound
	}
	if err := p.SetStock(stock); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	out := p.Clone()
	s.mu.Unlock()
	s.publishChanged(ctx, out)
	return out, nil
}

func (s *StockService) publishChanged(ctx context.Context, p *catalog.Product) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, catalog.NewProductChangedEvent(p)); err != nil {
		s.logger.Warn("Failed to publish product event", zap.String("product_id", p.ID.String()), zap.Error(err))
	}
}

// Get returns a product by id
func (s *StockService) Get(_ context.Context, productID uuid.UUID) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p.Clone(), nil
}

// FindByName returns the product matching name
func (s *StockService) FindByName(_ context.Context, name string) (*catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.matchLocked(name)
	if p == nil {
		return nil, false
	}
	return p.Clone(), true
}

// Decrement removes quantity from the product matching name, clamped at zero.
// ok is false when no product matches.
func (s *StockService) Decrement(_ context.Context, name string, quantity int) (StockChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.matchLocked(name)
	if p == nil {
		return StockChange{}, false
	}
	applied, err := p.Decrement(quantity)
	if err != nil {
		s.logger.Debug("Ignored stock decrement", zap.String("product", p.Name), zap.Error(err))
		return StockChange{}, false
	}
	return StockChange{ProductID: p.ID, ProductName: p.Name, Requested: quantity, Applied: -applied, StockAfter: p.Stock}, true
}

// Increment adds quantity to the product matching name
func (s *StockService) Increment(_ context.Context, name string, quantity int) (StockChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.matchLocked(name)
	if p == nil {
		return StockChange{}, false
	}
	if err := p.Increment(quantity); err != nil {
		s.logger.Debug("Ignored stock increment", zap.String("product", p.Name), zap.Error(err))
		return StockChange{}, false
	}
	return StockChange{ProductID: p.ID, ProductName: p.Name, Requested: quantity, Applied: quantity, StockAfter: p.Stock}, true
}

// List returns every product sorted by name
func (s *StockService) List(_ context.Context) []*catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NameKey == out[j].NameKey {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].NameKey < out[j].NameKey
	})
	return out
}

// Snapshot returns copies of every product
func (s *StockService) Snapshot() []*catalog.Product {
	return s.List(context.Background())
}

// Load replaces the catalog content
func (s *StockService) Load(products []*catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make(map[uuid.UUID]*catalog.Product, len(products))
	for _, p := range products {
		s.products[p.ID] = p.Clone()
	}
}

// MergeRemote applies remote products: remote wins per id, local-only
// products are kept, and products modified locally after since are kept local.
func (s *StockService) MergeRemote(remote []*catalog.Product, since time.Time) (replaced, kept int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rp := range remote {
		if lp, ok := s.products[rp.ID]; ok && lp.UpdatedAt.After(since) {
			kept++
			continue
		}
		s.products[rp.ID] = rp.Clone()
		replaced++
	}
	return replaced, kept
}

// matchLocked returns the oldest product whose name key matches name
func (s *StockService) matchLocked(name string) *catalog.Product {
	key := catalog.NormalizeProductName(name)
	if key == "" {
		return nil
	}
	var match *catalog.Product
	for _, p := range s.products {
		if p.NameKey != key {
			continue
		}
		if match == nil || p.CreatedAt.Before(match.CreatedAt) {
			match = p
		}
	}
	return match
}
