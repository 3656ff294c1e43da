package billing

import (
	"context"
	"sync"

	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/google/uuid"
)

// MemoryStateStore keeps offline state in memory. It backs tests and
// deployments without a local database.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[uuid.UUID]*billing.OfflineActivityState
	saves  int
}

// NewMemoryStateStore creates an empty store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[uuid.UUID]*billing.OfflineActivityState)}
}

// Load returns the stored state or nil
func (m *MemoryStateStore) Load(_ context.Context, ownerID uuid.UUID) (*billing.OfflineActivityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[ownerID]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

// Save stores a copy of state
func (m *MemoryStateStore) Save(_ context.Context, state *billing.OfflineActivityState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.OwnerID] = state.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save was called
func (m *MemoryStateStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var _ billing.StateStore = (*MemoryStateStore)(nil)
