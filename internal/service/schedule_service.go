package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/model"
	"github.com/tutorlink/booking_service/internal/schedule"
)

// SyncReport итог сверки слотов с шаблоном
type SyncReport struct {
	Created  int    `json:"created"`
	Removed  int    `json:"removed"`
	Skipped  int    `json:"skipped"` // целевые моменты, под которые слот уже существовал
	Timezone string `json:"timezone"`
}

// removableStatuses: какие слоты разрешено удалять при сверке.
// Booked (и любой статус вне этого набора) не трогаем никогда —
// забронированный урок обязан пережить правку расписания.
var removableStatuses = map[model.SlotStatus]bool{
	model.SlotStatusAvailable: true,
	model.SlotStatusHeld:      true,
	model.SlotStatusCanceled:  true,
}

// ScheduleService сверяет слоты в хранилище с шаблоном еженедельной
// доступности репетитора. Операция идемпотентна: повторный запуск при
// неизменном шаблоне даёт {created: 0, removed: 0}.
type ScheduleService struct {
	patternStore    PatternStore
	slotStore       SlotStore
	tutorStore      TutorStore
	horizonDays     int
	slotDuration    time.Duration
	defaultTimezone string
	logger          *zap.Logger
	now             func() time.Time
}

func NewScheduleService(
	patternStore PatternStore,
	slotStore SlotStore,
	tutorStore TutorStore,
	horizonDays int,
	slotDuration time.Duration,
	defaultTimezone string,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		patternStore:    patternStore,
		slotStore:       slotStore,
		tutorStore:      tutorStore,
		horizonDays:     horizonDays,
		slotDuration:    slotDuration,
		defaultTimezone: defaultTimezone,
		logger:          logger,
		now:             time.Now,
	}
}

// SyncSchedule создаёт недостающие будущие слоты по шаблону и удаляет
// будущие слоты, выпавшие из шаблона (только в удаляемых статусах).
func (s *ScheduleService) SyncSchedule(ctx context.Context, tutorID uuid.UUID) (*SyncReport, error) {
	if tutorID == uuid.Nil {
		return nil, fmt.Errorf("%w: tutor id is required", ErrValidation)
	}

	tutor, err := s.tutorStore.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, fmt.Errorf("%w: tutor %s", ErrNotFound, tutorID)
	}

	pattern, err := s.patternStore.GetByTutorID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get pattern: %w", err)
	}

	timezone := s.resolveTimezone(pattern, tutor)
	report := &SyncReport{Timezone: timezone}

	// Пустой шаблон — no-op: не удаляем вручную созданные слоты только
	// потому, что репетитор временно очистил расписание.
	if pattern == nil || pattern.IsEmpty() {
		return report, nil
	}

	if err := pattern.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrValidation, timezone)
	}

	now := s.now()
	target := schedule.Project(pattern, loc, now, s.horizonDays, s.slotDuration)

	// Окно выборки совпадает с диапазоном проектора: от now до начала
	// первого локального дня за горизонтом. Иначе сверка начинает
	// "хлопать" слотами на краю горизонта и теряет идемпотентность.
	base := now.In(loc)
	horizonEnd := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, s.horizonDays).UTC()

	existing, err := s.slotStore.GetByTutorID(ctx, tutorID, now.UTC(), horizonEnd)
	if err != nil {
		return nil, fmt.Errorf("load existing slots: %w", err)
	}

	existingByStart := make(map[int64]*model.Slot, len(existing))
	for _, slot := range existing {
		existingByStart[slot.StartsAt.Unix()] = slot
	}

	targetSet := make(map[int64]bool, len(target))
	var toCreate []*model.Slot
	for _, interval := range target {
		targetSet[interval.StartsAt.Unix()] = true
		if _, ok := existingByStart[interval.StartsAt.Unix()]; ok {
			report.Skipped++
			continue
		}
		toCreate = append(toCreate, &model.Slot{
			ID:         uuid.New(),
			TutorID:    tutorID,
			StartsAt:   interval.StartsAt,
			EndsAt:     interval.EndsAt,
			PriceCents: tutor.HourlyRateCents, // снимок текущей ставки
			Status:     model.SlotStatusAvailable,
		})
	}

	var toRemove []uuid.UUID
	for _, slot := range existing {
		if targetSet[slot.StartsAt.Unix()] {
			continue
		}
		if !slot.StartsAt.After(now) {
			continue
		}
		if !removableStatuses[slot.Status] {
			continue
		}
		toRemove = append(toRemove, slot.ID)
	}

	// Батчи независимы и нечувствительны к порядку; каждый применяется
	// одной bulk-операцией. Сбой одного не откатывает другой, но всегда
	// репортится наверх вместе с тем, что успело примениться.
	created, err := s.slotStore.CreateBatch(ctx, toCreate)
	report.Created = int(created)
	if err != nil {
		return report, fmt.Errorf("create slot batch: %w", err)
	}

	removed, err := s.slotStore.DeleteByIDs(ctx, toRemove)
	report.Removed = int(removed)
	if err != nil {
		return report, fmt.Errorf("remove slot batch: %w", err)
	}

	s.logger.Info("Schedule synced",
		zap.String("tutor_id", tutorID.String()),
		zap.String("timezone", timezone),
		zap.Int("created", report.Created),
		zap.Int("removed", report.Removed),
		zap.Int("skipped", report.Skipped),
	)

	return report, nil
}

// SavePattern сохраняет шаблон доступности репетитора и сразу пересверяет
// слоты. Одна строка на репетитора, last write wins: шаблон редактирует
// только сам репетитор, гонка записей не страшна.
func (s *ScheduleService) SavePattern(ctx context.Context, tutorID uuid.UUID, hours map[int][]int, timezone string) (*SyncReport, error) {
	if tutorID == uuid.Nil {
		return nil, fmt.Errorf("%w: tutor id is required", ErrValidation)
	}

	tutor, err := s.tutorStore.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, fmt.Errorf("%w: tutor %s", ErrNotFound, tutorID)
	}

	pattern := &model.AvailabilityPattern{
		TutorID:        tutorID,
		HoursByWeekday: hours,
		Timezone:       timezone,
	}
	if err := pattern.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrValidation, timezone)
		}
	}

	if err := s.patternStore.Upsert(ctx, pattern); err != nil {
		return nil, fmt.Errorf("save pattern: %w", err)
	}

	s.logger.Info("Pattern saved",
		zap.String("tutor_id", tutorID.String()),
		zap.String("timezone", timezone),
	)

	return s.SyncSchedule(ctx, tutorID)
}

// resolveTimezone: шаблон -> профиль репетитора -> системный дефолт
func (s *ScheduleService) resolveTimezone(pattern *model.AvailabilityPattern, tutor *model.Tutor) string {
	if pattern != nil && pattern.Timezone != "" {
		return pattern.Timezone
	}
	if tutor.Timezone != "" {
		return tutor.Timezone
	}
	return s.defaultTimezone
}

// SyncAll сверяет расписания всех репетиторов с настроенным шаблоном.
// Ошибки отдельных репетиторов логируются и не прерывают обход —
// SyncSchedule идемпотентен, следующий запуск доделает.
func (s *ScheduleService) SyncAll(ctx context.Context) error {
	tutorIDs, err := s.patternStore.GetTutorIDsWithPatterns(ctx)
	if err != nil {
		return fmt.Errorf("get tutors with patterns: %w", err)
	}

	totalCreated, totalRemoved := 0, 0
	for _, tutorID := range tutorIDs {
		report, err := s.SyncSchedule(ctx, tutorID)
		if err != nil {
			s.logger.Error("Failed to sync tutor schedule",
				zap.Error(err),
				zap.String("tutor_id", tutorID.String()),
			)
			continue
		}
		totalCreated += report.Created
		totalRemoved += report.Removed
	}

	s.logger.Info("Synced all tutor schedules",
		zap.Int("tutors", len(tutorIDs)),
		zap.Int("total_created", totalCreated),
		zap.Int("total_removed", totalRemoved),
	)

	return nil
}
