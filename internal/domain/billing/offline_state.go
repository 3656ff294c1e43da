package billing

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxOfflineDocs is the offline action cap
const DefaultMaxOfflineDocs = 30

// Status is the billing gate state
type Status string

const (
	// StatusClear permits actions up to the offline quota
	StatusClear Status = "CLEAR"
	// StatusBlocked denies every billable action until the debt is settled
	StatusBlocked Status = "BLOCKED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// OfflineActivityState is the device-wide record of unbilled offline actions.
// It is loaded and persisted explicitly through a StateStore.
type OfflineActivityState struct {
	OwnerID           uuid.UUID
	OfflineCount      int
	HasUnpaidDebt     bool
	LastFailureReason string
	LastSettledAt     *time.Time
	UpdatedAt         time.Time
}

// NewOfflineActivityState returns the initial clear state
func NewOfflineActivityState(ownerID uuid.UUID) *OfflineActivityState {
	return &OfflineActivityState{
		OwnerID:   ownerID,
		UpdatedAt: time.Now(),
	}
}

// Status returns BLOCKED when a settlement failed and is still owed
func (s *OfflineActivityState) Status() Status {
	if s.HasUnpaidDebt {
		return StatusBlocked
	}
	return StatusClear
}

// Check decides whether a billable action may run. pending counts offline
// actions already authorized but not yet recorded. It returns the denial
// reason, or "" when the action is permitted.
func (s *OfflineActivityState) Check(online bool, pending, maxOfflineDocs int) DenialReason {
	if s.HasUnpaidDebt {
		return DenialDebtBlocked
	}
	if !online && s.OfflineCount+pending >= maxOfflineDocs {
		return DenialOfflineLimit
	}
	return ""
}

// RecordOfflineAction counts one successful offline action, never beyond the cap
func (s *OfflineActivityState) RecordOfflineAction(maxOfflineDocs int) {
	if s.OfflineCount < maxOfflineDocs {
		s.OfflineCount++
	}
	s.UpdatedAt = time.Now()
}

// MarkSettled clears the counter and the block after a successful lump-sum charge
func (s *OfflineActivityState) MarkSettled() {
	now := time.Now()
	s.OfflineCount = 0
	s.HasUnpaidDebt = false
	s.LastFailureReason = ""
	s.LastSettledAt = &now
	s.UpdatedAt = now
}

// MarkBlocked records a failed settlement. The counter is preserved so the
// same lump sum is retried.
func (s *OfflineActivityState) MarkBlocked(reason string) {
	s.HasUnpaidDebt = true
	s.LastFailureReason = reason
	s.UpdatedAt = time.Now()
}

// Clone returns a copy of the state
func (s *OfflineActivityState) Clone() *OfflineActivityState {
	c := *s
	if s.LastSettledAt != nil {
		t := *s.LastSettledAt
		c.LastSettledAt = &t
	}
	return &c
}
