package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the state of a scheduled follow-up
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// Appointment is a payment follow-up attached to a ledger, optionally
// referencing the posting it was scheduled for.
type Appointment struct {
	ID        uuid.UUID
	Date      time.Time
	Note      string
	PostingID *uuid.UUID
	Status    AppointmentStatus
}

// IsCancelled returns true if the appointment was cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}
