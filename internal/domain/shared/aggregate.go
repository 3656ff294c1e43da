package shared

import (
	"time"

	"github.com/google/uuid"
)

// OwnedAggregateRoot is the identity shared by every synced collection entry:
// ledgers, documents, products and the business profile. The owner id
// partitions the remote store of record; UpdatedAt drives the merge guard
// that keeps entities edited during a reconciliation cycle.
type OwnedAggregateRoot struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	pending []DomainEvent
}

// NewOwnedAggregateRoot starts a fresh aggregate at version 1
func NewOwnedAggregateRoot(ownerID uuid.UUID) OwnedAggregateRoot {
	now := time.Now()
	return OwnedAggregateRoot{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// RestoreOwnedAggregateRoot rebuilds an aggregate loaded from a store
func RestoreOwnedAggregateRoot(id, ownerID uuid.UUID, createdAt, updatedAt time.Time, version int) OwnedAggregateRoot {
	return OwnedAggregateRoot{
		ID:        id,
		OwnerID:   ownerID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Version:   version,
	}
}

// GetOwnerID returns the owning merchant id
func (a *OwnedAggregateRoot) GetOwnerID() uuid.UUID {
	return a.OwnerID
}

// IncrementVersion bumps the optimistic version
func (a *OwnedAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues an event for publication after the mutation commits
func (a *OwnedAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events
func (a *OwnedAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events
func (a *OwnedAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}
