package profile

import (
	"context"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/profile"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrProfileNotFound is returned before a profile has been set up
var ErrProfileNotFound = shared.NewDomainError("NOT_FOUND", "Business profile not set up")

// UpdateProfileRequest replaces the business profile
type UpdateProfileRequest struct {
	BusinessName string `json:"business_name" binding:"required,min=1,max=200"`
	Phone        string `json:"phone" binding:"max=50"`
	Address      string `json:"address" binding:"max=500"`
	TaxID        string `json:"tax_id" binding:"max=50"`
	Currency     string `json:"currency" binding:"omitempty,len=3"`
	Footer       string `json:"footer" binding:"max=1000"`
}

// ProfileResponse represents the business profile in API responses
type ProfileResponse struct {
	OwnerID      uuid.UUID `json:"owner_id"`
	BusinessName string    `json:"business_name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	TaxID        string    `json:"tax_id"`
	Currency     string    `json:"currency"`
	Footer       string    `json:"footer"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToProfileResponse converts a profile
func ToProfileResponse(p *profile.BusinessProfile) ProfileResponse {
	return ProfileResponse{
		OwnerID:      p.OwnerID,
		BusinessName: p.BusinessName,
		Phone:        p.Phone,
		Address:      p.Address,
		TaxID:        p.TaxID,
		Currency:     p.Currency,
		Footer:       p.Footer,
		UpdatedAt:    p.UpdatedAt,
	}
}

// Service holds the merchant's business profile
type Service struct {
	mu        sync.RWMutex
	ownerID   uuid.UUID
	current   *profile.BusinessProfile
	publisher shared.EventPublisher
}

// NewService creates a profile service
func NewService(ownerID uuid.UUID) *Service {
	return &Service{ownerID: ownerID}
}

// SetEventPublisher sets the publisher notified when the profile is saved
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Get returns the current profile
func (s *Service) Get(_ context.Context) (*profile.BusinessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrProfileNotFound
	}
	return s.current.Clone(), nil
}

// Update creates or replaces the profile
func (s *Service) Update(ctx context.Context, req UpdateProfileRequest) (*profile.BusinessProfile, error) {
	s.mu.Lock()
	next := s.current
	if next == nil {
		p, err := profile.NewBusinessProfile(s.ownerID, req.BusinessName)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		next = p
	} else {
		next = next.Clone()
	}
	if err := next.Update(req.BusinessName, req.Phone, req.Address, req.TaxID, req.Currency, req.Footer); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.current = next
	out := next.Clone()
	s.mu.Unlock()

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, profile.NewProfileUpdatedEvent(out))
	}
	return out, nil
}

// Snapshot returns a copy of the profile, or nil
func (s *Service) Snapshot() *profile.BusinessProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current.Clone()
}

// Load replaces the profile
func (s *Service) Load(p *profile.BusinessProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.current = nil
		return
	}
	s.current = p.Clone()
}

// MergeRemote takes the remote profile unless the local one changed after since
func (s *Service) MergeRemote(remote *profile.BusinessProfile, since time.Time) bool {
	if remote == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.UpdatedAt.After(since) {
		return false
	}
	s.current = remote.Clone()
	return true
}
