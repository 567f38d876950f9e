package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusHeld      SlotStatus = "held"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCanceled  SlotStatus = "canceled"
)

// Slot is a single bookable interval of a tutor's schedule.
// HeldBy/HoldExpiresAt are set if and only if Status is 'held'.
type Slot struct {
	ID            uuid.UUID  `json:"id"`
	TutorID       uuid.UUID  `json:"tutor_id"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	PriceCents    int        `json:"price_cents"` // snapshot of the tutor's rate at creation time
	Status        SlotStatus `json:"status"`
	HeldBy        *uuid.UUID `json:"held_by"`         // pointer - nil when not held
	HoldExpiresAt *time.Time `json:"hold_expires_at"` // pointer - nil when not held
	CreatedAt     time.Time  `json:"created_at"`
}

// EffectivelyAvailable reports whether the slot can be offered to a student
// at the given moment. A held slot whose hold has expired counts as
// available; the stored status column alone is not authoritative.
func (s *Slot) EffectivelyAvailable(now time.Time) bool {
	switch s.Status {
	case SlotStatusAvailable:
		return true
	case SlotStatusHeld:
		return s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
	default:
		return false
	}
}

// HeldByStudent reports whether the slot carries a live hold owned by the student.
func (s *Slot) HeldByStudent(studentID uuid.UUID, now time.Time) bool {
	if s.Status != SlotStatusHeld || s.HeldBy == nil || s.HoldExpiresAt == nil {
		return false
	}
	return *s.HeldBy == studentID && s.HoldExpiresAt.After(now)
}
