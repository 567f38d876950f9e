package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tutorlink/booking_service/internal/model"
)

// Store interfaces are defined on the consumer side; the pgx repositories
// implement them. Everything the services rely on for correctness lives
// behind conditional writes in the store, not behind in-process locks.

type SlotStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	GetByTutorID(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]*model.Slot, error)
	GetAvailable(ctx context.Context, tutorID uuid.UUID, from, to, now time.Time) ([]*model.Slot, error)
	CreateBatch(ctx context.Context, slots []*model.Slot) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)

	// Hold attempts available->held (or takes over an expired hold) with a
	// conditional write. A nil slot with nil error means the precondition did
	// not match; the service decides what that means.
	Hold(ctx context.Context, slotID, studentID uuid.UUID, expiresAt, now time.Time) (*model.Slot, error)

	// Release attempts held->available for the same holder and reports rows
	// affected; zero is not an error.
	Release(ctx context.Context, slotID, studentID uuid.UUID) (int64, error)

	ReclaimExpired(ctx context.Context, now time.Time) (int64, error)
}

type BookingStore interface {
	// BookSlot runs held->booked plus the booking-record insert as one
	// logical operation (a single transaction in the pgx implementation).
	// A nil slot with nil error means the slot precondition did not match.
	BookSlot(ctx context.Context, slotID, studentID, bookingID uuid.UUID, now time.Time) (*model.Slot, *model.Booking, error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetBySlotID(ctx context.Context, slotID uuid.UUID) (*model.Booking, error)
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*model.Booking, error)
}

type PatternStore interface {
	GetByTutorID(ctx context.Context, tutorID uuid.UUID) (*model.AvailabilityPattern, error)
	Upsert(ctx context.Context, pattern *model.AvailabilityPattern) error
	GetTutorIDsWithPatterns(ctx context.Context) ([]uuid.UUID, error)
}

type TutorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tutor, error)
}

// Notifier delivers a human-facing message about a new booking. Optional:
// a nil Notifier disables delivery, failures never fail the booking.
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, tutor *model.Tutor, booking *model.Booking) error
}

// EventPublisher emits lifecycle events for downstream consumers (reminders,
// analytics). Optional in the same way as Notifier.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, booking *model.Booking) error
	PublishSlotReleased(ctx context.Context, slot *model.Slot) error
}
