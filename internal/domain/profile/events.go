package profile

import "github.com/amadolemli/factureman-sub000/internal/domain/shared"

const (
	AggregateTypeBusinessProfile = "BusinessProfile"
	EventTypeProfileUpdated      = "BusinessProfileUpdated"
)

// ProfileUpdatedEvent is raised when the business profile is saved
type ProfileUpdatedEvent struct {
	shared.BaseDomainEvent
	BusinessName string `json:"business_name"`
}

// NewProfileUpdatedEvent creates a ProfileUpdatedEvent
func NewProfileUpdatedEvent(p *BusinessProfile) *ProfileUpdatedEvent {
	return &ProfileUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProfileUpdated, AggregateTypeBusinessProfile, p.ID, p.OwnerID),
		BusinessName:    p.BusinessName,
	}
}
