package service

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/model"
)

const (
	testHorizonDays  = 21
	testSlotDuration = time.Hour
)

type scheduleFixture struct {
	svc      *ScheduleService
	slots    *fakeSlotStore
	patterns *fakePatternStore
	tutors   *fakeTutorStore
	tutorID  uuid.UUID
	clock    *time.Time
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()

	slots := newFakeSlotStore()
	patterns := newFakePatternStore()
	tutors := newFakeTutorStore()

	svc := NewScheduleService(patterns, slots, tutors, testHorizonDays, testSlotDuration, "UTC", zap.NewNop())

	// Понедельник, 12:00 UTC (07:00 в Нью-Йорке); горизонт пересекает
	// весенний переход на летнее время 8 марта 2026.
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	tutorID := uuid.New()
	tutors.tutors[tutorID] = &model.Tutor{
		ID:              tutorID,
		DisplayName:     "Test Tutor",
		HourlyRateCents: 5000,
	}

	return &scheduleFixture{svc: svc, slots: slots, patterns: patterns, tutors: tutors, tutorID: tutorID, clock: &now}
}

func (f *scheduleFixture) setPattern(hours map[int][]int, timezone string) {
	f.patterns.patterns[f.tutorID] = &model.AvailabilityPattern{
		TutorID:        f.tutorID,
		HoursByWeekday: hours,
		Timezone:       timezone,
	}
}

func (f *scheduleFixture) slotList() []*model.Slot {
	var result []*model.Slot
	for _, slot := range f.slots.slots {
		result = append(result, slot)
	}
	return result
}

func TestSyncSchedule_CreatesSlots(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	// Понедельник 9:00 и 10:00 по Нью-Йорку
	f.setPattern(map[int][]int{1: {9, 10}}, "America/New_York")

	report, err := f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)

	// Три понедельника в 21-дневном горизонте: 2, 9 и 16 марта
	assert.Equal(t, 6, report.Created)
	assert.Equal(t, 0, report.Removed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, "America/New_York", report.Timezone)

	slots := f.slotList()
	require.Len(t, slots, 6)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got := map[time.Time]bool{}
	for _, slot := range slots {
		assert.Equal(t, model.SlotStatusAvailable, slot.Status)
		assert.Equal(t, 5000, slot.PriceCents, "price snapshot from tutor rate")
		assert.Equal(t, slot.StartsAt.Add(time.Hour), slot.EndsAt)

		local := slot.StartsAt.In(loc)
		assert.Equal(t, time.Monday, local.Weekday())
		assert.Contains(t, []int{9, 10}, local.Hour(), "local wall clock is stable across DST")
		got[slot.StartsAt.UTC()] = true
	}

	// 2 марта (EST, -05:00): 9:00 -> 14:00 UTC; после перехода 8 марта
	// (EDT, -04:00): 9:00 -> 13:00 UTC. Смещение меняется ровно на дате
	// перехода, локальное время — нет.
	for _, want := range []time.Time{
		time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 13, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 16, 13, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 16, 14, 0, 0, 0, time.UTC),
	} {
		assert.True(t, got[want], "missing slot at %s", want)
	}
}

func TestSyncSchedule_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	f.setPattern(map[int][]int{1: {9}, 3: {14, 15}}, "Europe/Berlin")

	first, err := f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)
	require.Positive(t, first.Created)

	second, err := f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Removed)
	assert.Equal(t, first.Created, second.Skipped)
}

func TestSyncSchedule_BookedSlotSurvivesPatternEdit(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	f.setPattern(map[int][]int{1: {9}}, "UTC")

	report, err := f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)
	// 9:00 первого понедельника уже позади (now = 12:00), остаются два
	require.Equal(t, 2, report.Created)

	// Бронируем один из слотов
	slots := f.slotList()
	booked := slots[0]
	booked.Status = model.SlotStatusBooked
	f.slots.put(booked)

	// Репетитор убирает этот час из шаблона
	f.setPattern(map[int][]int{2: {9}}, "UTC")

	report, err = f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 1, report.Removed, "only non-booked slots are removed")

	survivor := f.slots.get(booked.ID)
	require.NotNil(t, survivor, "booked slot must survive a schedule edit")
	assert.Equal(t, model.SlotStatusBooked, survivor.Status)
}

func TestSyncSchedule_HeldSlotIsRemovable(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	f.setPattern(map[int][]int{1: {9}}, "UTC")

	_, err := f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)

	slots := f.slotList()
	held := slots[0]
	student := uuid.New()
	expiry := f.clock.Add(10 * time.Minute)
	held.Status = model.SlotStatusHeld
	held.HeldBy = &student
	held.HoldExpiresAt = &expiry
	f.slots.put(held)

	f.setPattern(map[int][]int{2: {9}}, "UTC")

	report, err := f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Removed, "a hold is a soft reservation, not a booking")
	assert.Nil(t, f.slots.get(held.ID))
}

func TestSyncSchedule_EmptyPatternIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	f.setPattern(map[int][]int{1: {}}, "UTC")

	manual := &model.Slot{
		ID:         uuid.New(),
		TutorID:    f.tutorID,
		StartsAt:   f.clock.Add(24 * time.Hour),
		EndsAt:     f.clock.Add(25 * time.Hour),
		PriceCents: 7000,
		Status:     model.SlotStatusAvailable,
	}
	f.slots.put(manual)

	report, err := f.svc.SyncSchedule(ctx, f.tutorID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 0, report.Removed)

	require.NotNil(t, f.slots.get(manual.ID), "manually created slots survive an empty pattern")
}

func TestSyncSchedule_TimezonePreference(t *testing.T) {
	ctx := context.Background()

	t.Run("Pattern timezone wins", func(t *testing.T) {
		f := newScheduleFixture(t)
		f.tutors.tutors[f.tutorID].Timezone = "Europe/Berlin"
		f.setPattern(map[int][]int{1: {9}}, "Asia/Tokyo")

		report, err := f.svc.SyncSchedule(ctx, f.tutorID)
		require.NoError(t, err)
		assert.Equal(t, "Asia/Tokyo", report.Timezone)
	})

	t.Run("Falls back to tutor profile", func(t *testing.T) {
		f := newScheduleFixture(t)
		f.tutors.tutors[f.tutorID].Timezone = "Europe/Berlin"
		f.setPattern(map[int][]int{1: {9}}, "")

		report, err := f.svc.SyncSchedule(ctx, f.tutorID)
		require.NoError(t, err)
		assert.Equal(t, "Europe/Berlin", report.Timezone)
	})

	t.Run("Falls back to system default", func(t *testing.T) {
		f := newScheduleFixture(t)
		f.setPattern(map[int][]int{1: {9}}, "")

		report, err := f.svc.SyncSchedule(ctx, f.tutorID)
		require.NoError(t, err)
		assert.Equal(t, "UTC", report.Timezone)
	})
}

func TestSyncSchedule_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown timezone", func(t *testing.T) {
		f := newScheduleFixture(t)
		f.setPattern(map[int][]int{1: {9}}, "Mars/Olympus_Mons")

		_, err := f.svc.SyncSchedule(ctx, f.tutorID)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Hour out of range", func(t *testing.T) {
		f := newScheduleFixture(t)
		f.setPattern(map[int][]int{1: {24}}, "UTC")

		_, err := f.svc.SyncSchedule(ctx, f.tutorID)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Tutor not found", func(t *testing.T) {
		f := newScheduleFixture(t)

		_, err := f.svc.SyncSchedule(ctx, uuid.New())
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Nil tutor id", func(t *testing.T) {
		f := newScheduleFixture(t)

		_, err := f.svc.SyncSchedule(ctx, uuid.Nil)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestSavePattern(t *testing.T) {
	ctx := context.Background()

	t.Run("Saves and resyncs", func(t *testing.T) {
		f := newScheduleFixture(t)

		report, err := f.svc.SavePattern(ctx, f.tutorID, map[int][]int{2: {9, 9, 10}}, "Europe/Berlin")
		require.NoError(t, err)
		// Три вторника в горизонте, часы дедуплицируются при нормализации
		assert.Equal(t, 6, report.Created)
		assert.Equal(t, "Europe/Berlin", report.Timezone)

		saved := f.patterns.patterns[f.tutorID]
		require.NotNil(t, saved)
		assert.Equal(t, []int{9, 10}, saved.HoursByWeekday[2])
	})

	t.Run("Edit shrinks the schedule", func(t *testing.T) {
		f := newScheduleFixture(t)

		_, err := f.svc.SavePattern(ctx, f.tutorID, map[int][]int{2: {9}}, "UTC")
		require.NoError(t, err)

		report, err := f.svc.SavePattern(ctx, f.tutorID, map[int][]int{3: {9}}, "UTC")
		require.NoError(t, err)
		assert.Equal(t, 3, report.Created)
		assert.Equal(t, 3, report.Removed)
	})

	t.Run("Invalid hour", func(t *testing.T) {
		f := newScheduleFixture(t)

		_, err := f.svc.SavePattern(ctx, f.tutorID, map[int][]int{1: {-1}}, "UTC")
		require.ErrorIs(t, err, ErrValidation)
		assert.Nil(t, f.patterns.patterns[f.tutorID], "invalid pattern must not be persisted")
	})

	t.Run("Unknown timezone", func(t *testing.T) {
		f := newScheduleFixture(t)

		_, err := f.svc.SavePattern(ctx, f.tutorID, map[int][]int{1: {9}}, "Mars/Olympus_Mons")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Tutor not found", func(t *testing.T) {
		f := newScheduleFixture(t)

		_, err := f.svc.SavePattern(ctx, uuid.New(), map[int][]int{1: {9}}, "UTC")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	f.setPattern(map[int][]int{1: {9}}, "UTC")

	// Второй репетитор с шаблоном, но без профиля: его сбой не должен
	// прерывать обход.
	f.patterns.patterns[uuid.New()] = &model.AvailabilityPattern{
		HoursByWeekday: map[int][]int{2: {10}},
	}

	require.NoError(t, f.svc.SyncAll(ctx))

	slots, err := f.slots.GetByTutorID(ctx, f.tutorID, f.clock.Add(-time.Hour), f.clock.AddDate(0, 0, testHorizonDays))
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}
