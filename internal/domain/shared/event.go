package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate and published after the
// aggregate is saved
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	OwnerID() uuid.UUID
}

// AggregateRef names the aggregate instance an event belongs to
type AggregateRef struct {
	ID   uuid.UUID `json:"aggregate_id"`
	Type string    `json:"aggregate_type"`
}

// BaseDomainEvent implements DomainEvent; concrete events embed it and add
// their payload
type BaseDomainEvent struct {
	AggregateRef
	Event uuid.UUID `json:"event_id"`
	Name  string    `json:"event_type"`
	At    time.Time `json:"occurred_at"`
	Owner uuid.UUID `json:"owner_id"`
}

// NewBaseDomainEvent stamps a fresh event id and the current UTC time
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID, ownerID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		AggregateRef: AggregateRef{ID: aggregateID, Type: aggregateType},
		Event:        uuid.New(),
		Name:         eventType,
		At:           time.Now().UTC(),
		Owner:        ownerID,
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID { return e.Event }
func (e *BaseDomainEvent) EventType() string { return e.Name }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggregateRef.ID }
func (e *BaseDomainEvent) AggregateType() string { return e.AggregateRef.Type }
func (e *BaseDomainEvent) OwnerID() uuid.UUID { return e.Owner }
