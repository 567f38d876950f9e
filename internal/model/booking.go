package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed      BookingStatus = "confirmed"       // Подтверждено
	BookingStatusPendingPayment BookingStatus = "pending_payment" // Ожидает оплаты
	BookingStatusCanceled       BookingStatus = "canceled"        // Отменено
)

// Booking is the immutable record of a successful reservation. It snapshots
// the slot's interval and price so later slot mutations cannot rewrite it.
type Booking struct {
	ID         uuid.UUID     `json:"id"`
	SlotID     uuid.UUID     `json:"slot_id"`
	TutorID    uuid.UUID     `json:"tutor_id"`
	StudentID  uuid.UUID     `json:"student_id"`
	StartsAt   time.Time     `json:"starts_at"`
	EndsAt     time.Time     `json:"ends_at"`
	PriceCents int           `json:"price_cents"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}
