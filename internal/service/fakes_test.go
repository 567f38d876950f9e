package service

// In-memory fakes for the store interfaces. They emulate the storage layer's
// conditional-write semantics (including the partial unique index on
// bookings.slot_id) so the services can be exercised without Postgres.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tutorlink/booking_service/internal/model"
)

type fakeSlotStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*model.Slot
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{slots: make(map[uuid.UUID]*model.Slot)}
}

func (f *fakeSlotStore) put(slot *model.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *slot
	f.slots[slot.ID] = &copied
}

func (f *fakeSlotStore) get(id uuid.UUID) *model.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot, ok := f.slots[id]; ok {
		copied := *slot
		return &copied
	}
	return nil
}

func (f *fakeSlotStore) GetByID(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	return f.get(id), nil
}

func (f *fakeSlotStore) GetByTutorID(_ context.Context, tutorID uuid.UUID, from, to time.Time) ([]*model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Slot
	for _, slot := range f.slots {
		if slot.TutorID == tutorID && !slot.StartsAt.Before(from) && slot.StartsAt.Before(to) {
			copied := *slot
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *fakeSlotStore) GetAvailable(_ context.Context, tutorID uuid.UUID, from, to, now time.Time) ([]*model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Slot
	for _, slot := range f.slots {
		if slot.TutorID != tutorID || slot.StartsAt.Before(from) || !slot.StartsAt.Before(to) {
			continue
		}
		if !slot.StartsAt.After(now) || !slot.EffectivelyAvailable(now) {
			continue
		}
		copied := *slot
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeSlotStore) CreateBatch(_ context.Context, slots []*model.Slot) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, slot := range slots {
		copied := *slot
		f.slots[slot.ID] = &copied
	}
	return int64(len(slots)), nil
}

func (f *fakeSlotStore) DeleteByIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := f.slots[id]; ok {
			delete(f.slots, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeSlotStore) Hold(_ context.Context, slotID, studentID uuid.UUID, expiresAt, now time.Time) (*model.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[slotID]
	if !ok {
		return nil, nil
	}
	if !slot.StartsAt.After(now) || !slot.EffectivelyAvailable(now) {
		return nil, nil
	}
	slot.Status = model.SlotStatusHeld
	holder := studentID
	expiry := expiresAt
	slot.HeldBy = &holder
	slot.HoldExpiresAt = &expiry
	copied := *slot
	return &copied, nil
}

func (f *fakeSlotStore) Release(_ context.Context, slotID, studentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[slotID]
	if !ok || slot.Status != model.SlotStatusHeld || slot.HeldBy == nil || *slot.HeldBy != studentID {
		return 0, nil
	}
	slot.Status = model.SlotStatusAvailable
	slot.HeldBy = nil
	slot.HoldExpiresAt = nil
	return 1, nil
}

func (f *fakeSlotStore) ReclaimExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reclaimed int64
	for _, slot := range f.slots {
		if slot.Status == model.SlotStatusHeld && slot.HoldExpiresAt != nil && !slot.HoldExpiresAt.After(now) {
			slot.Status = model.SlotStatusAvailable
			slot.HeldBy = nil
			slot.HoldExpiresAt = nil
			reclaimed++
		}
	}
	return reclaimed, nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	slots    *fakeSlotStore
	bookings map[uuid.UUID]*model.Booking

	// forceUniqueViolation simulates a request racing past the slot's
	// conditional-write gate and tripping the bookings(slot_id) index.
	forceUniqueViolation bool
}

func newFakeBookingStore(slots *fakeSlotStore) *fakeBookingStore {
	return &fakeBookingStore{
		slots:    slots,
		bookings: make(map[uuid.UUID]*model.Booking),
	}
}

func (f *fakeBookingStore) BookSlot(_ context.Context, slotID, studentID, bookingID uuid.UUID, now time.Time) (*model.Slot, *model.Booking, error) {
	f.slots.mu.Lock()
	defer f.slots.mu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots.slots[slotID]
	if !ok {
		return nil, nil, nil
	}
	if slot.Status != model.SlotStatusHeld || slot.HeldBy == nil || *slot.HeldBy != studentID ||
		slot.HoldExpiresAt == nil || !slot.HoldExpiresAt.After(now) {
		return nil, nil, nil
	}

	if f.forceUniqueViolation {
		return nil, nil, fmt.Errorf("create booking: %w", &pgconn.PgError{Code: "23505"})
	}
	for _, b := range f.bookings {
		if b.SlotID == slotID && b.Status != model.BookingStatusCanceled {
			return nil, nil, fmt.Errorf("create booking: %w", &pgconn.PgError{Code: "23505"})
		}
	}

	slot.Status = model.SlotStatusBooked
	slot.HeldBy = nil
	slot.HoldExpiresAt = nil

	booking := &model.Booking{
		ID:         bookingID,
		SlotID:     slot.ID,
		TutorID:    slot.TutorID,
		StudentID:  studentID,
		StartsAt:   slot.StartsAt,
		EndsAt:     slot.EndsAt,
		PriceCents: slot.PriceCents,
		Status:     model.BookingStatusConfirmed,
		CreatedAt:  now,
	}
	f.bookings[bookingID] = booking

	slotCopy := *slot
	bookingCopy := *booking
	return &slotCopy, &bookingCopy, nil
}

func (f *fakeBookingStore) GetByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if booking, ok := f.bookings[id]; ok {
		copied := *booking
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeBookingStore) GetBySlotID(_ context.Context, slotID uuid.UUID) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, booking := range f.bookings {
		if booking.SlotID == slotID && booking.Status != model.BookingStatusCanceled {
			copied := *booking
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBookingStore) GetByStudentID(_ context.Context, studentID uuid.UUID) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Booking
	for _, booking := range f.bookings {
		if booking.StudentID == studentID {
			copied := *booking
			result = append(result, &copied)
		}
	}
	return result, nil
}

type fakePatternStore struct {
	patterns map[uuid.UUID]*model.AvailabilityPattern
}

func newFakePatternStore() *fakePatternStore {
	return &fakePatternStore{patterns: make(map[uuid.UUID]*model.AvailabilityPattern)}
}

func (f *fakePatternStore) GetByTutorID(_ context.Context, tutorID uuid.UUID) (*model.AvailabilityPattern, error) {
	if pattern, ok := f.patterns[tutorID]; ok {
		copied := *pattern
		return &copied, nil
	}
	return nil, nil
}

func (f *fakePatternStore) Upsert(_ context.Context, pattern *model.AvailabilityPattern) error {
	copied := *pattern
	f.patterns[pattern.TutorID] = &copied
	return nil
}

func (f *fakePatternStore) GetTutorIDsWithPatterns(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.patterns {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeTutorStore struct {
	tutors map[uuid.UUID]*model.Tutor
}

func newFakeTutorStore() *fakeTutorStore {
	return &fakeTutorStore{tutors: make(map[uuid.UUID]*model.Tutor)}
}

func (f *fakeTutorStore) GetByID(_ context.Context, id uuid.UUID) (*model.Tutor, error) {
	if tutor, ok := f.tutors[id]; ok {
		copied := *tutor
		return &copied, nil
	}
	return nil, nil
}
