package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorlink/booking_service/internal/model"
	"github.com/tutorlink/booking_service/internal/repository/base"
)

// BookingService реализует жизненный цикл слота: hold -> book / release.
// Все переходы — условные записи в хранилище; сервис не держит локов и
// никогда не ретраит Conflict (это легитимный исход, а не сбой).
type BookingService struct {
	slotStore    SlotStore
	bookingStore BookingStore
	tutorStore   TutorStore
	notifier     Notifier
	events       EventPublisher
	holdDuration time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewBookingService(
	slotStore SlotStore,
	bookingStore BookingStore,
	tutorStore TutorStore,
	notifier Notifier,
	events EventPublisher,
	holdDuration time.Duration,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		slotStore:    slotStore,
		bookingStore: bookingStore,
		tutorStore:   tutorStore,
		notifier:     notifier,
		events:       events,
		holdDuration: holdDuration,
		logger:       logger,
		now:          time.Now,
	}
}

// HoldSlot захватывает слот для студента на время holdDuration.
// Протухший чужой hold можно перехватить той же условной записью.
func (s *BookingService) HoldSlot(ctx context.Context, slotID, studentID uuid.UUID) (*model.Slot, error) {
	if slotID == uuid.Nil || studentID == uuid.Nil {
		return nil, fmt.Errorf("%w: slot id and student id are required", ErrValidation)
	}

	now := s.now()
	slot, err := s.slotStore.Hold(ctx, slotID, studentID, now.Add(s.holdDuration), now)
	if err != nil {
		return nil, fmt.Errorf("hold slot: %w", err)
	}

	if slot == nil {
		// Прекондиция не совпала: разбираем почему, не меняя ничего.
		return nil, s.classifyHoldFailure(ctx, slotID, now)
	}

	s.logger.Info("Slot held",
		zap.String("slot_id", slot.ID.String()),
		zap.String("student_id", studentID.String()),
		zap.Time("hold_expires_at", *slot.HoldExpiresAt),
	)

	return slot, nil
}

func (s *BookingService) classifyHoldFailure(ctx context.Context, slotID uuid.UUID, now time.Time) error {
	slot, err := s.slotStore.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
	}
	if !slot.StartsAt.After(now) {
		return fmt.Errorf("%w: slot is in the past", ErrConflict)
	}
	return ErrConflict
}

// ReleaseSlot освобождает hold того же студента. Идемпотентен: повторный
// release и release уже свободного слота — тихий no-op (double-click/retry).
// Попытка снять чужой живой hold — Unauthorized, слот не трогаем.
func (s *BookingService) ReleaseSlot(ctx context.Context, slotID, studentID uuid.UUID) error {
	if slotID == uuid.Nil || studentID == uuid.Nil {
		return fmt.Errorf("%w: slot id and student id are required", ErrValidation)
	}

	affected, err := s.slotStore.Release(ctx, slotID, studentID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	if affected == 0 {
		slot, err := s.slotStore.GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
		}
		if slot.Status == model.SlotStatusHeld && slot.HeldBy != nil && *slot.HeldBy != studentID && !slot.EffectivelyAvailable(s.now()) {
			return fmt.Errorf("%w: slot is held by another student", ErrUnauthorized)
		}
		// Не был захвачен (или hold уже протух) — no-op.
		return nil
	}

	s.logger.Info("Slot released",
		zap.String("slot_id", slotID.String()),
		zap.String("student_id", studentID.String()),
	)

	if s.events != nil {
		slot, err := s.slotStore.GetByID(ctx, slotID)
		if err == nil && slot != nil {
			if err := s.events.PublishSlotReleased(ctx, slot); err != nil {
				s.logger.Warn("Failed to publish slot released event",
					zap.Error(err),
					zap.String("slot_id", slotID.String()),
				)
			}
		}
	}

	return nil
}

// BookSlot переводит hold студента в booked и создаёт запись о бронировании.
// Протухший hold бронировать нельзя — это часть контракта честности:
// после hold_expires_at слот может перехватить другой студент.
func (s *BookingService) BookSlot(ctx context.Context, slotID, studentID uuid.UUID) (*model.Booking, error) {
	if slotID == uuid.Nil || studentID == uuid.Nil {
		return nil, fmt.Errorf("%w: slot id and student id are required", ErrValidation)
	}

	now := s.now()
	slot, booking, err := s.bookingStore.BookSlot(ctx, slotID, studentID, uuid.New(), now)
	if err != nil {
		if base.IsUniqueViolation(err) {
			// Слот проскочил условную запись, но unique-индекс по slot_id устоял.
			return nil, fmt.Errorf("%w: slot already has a booking", ErrConflict)
		}
		return nil, fmt.Errorf("book slot: %w", err)
	}

	if slot == nil {
		return nil, s.classifyBookFailure(ctx, slotID, studentID, now)
	}

	s.logger.Info("Slot booked",
		zap.String("booking_id", booking.ID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.String("student_id", studentID.String()),
		zap.Int("price_cents", booking.PriceCents),
	)

	s.afterBooking(ctx, slot.TutorID, booking)

	return booking, nil
}

func (s *BookingService) classifyBookFailure(ctx context.Context, slotID, studentID uuid.UUID, now time.Time) error {
	slot, err := s.slotStore.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return fmt.Errorf("%w: slot %s", ErrNotFound, slotID)
	}
	if slot.Status == model.SlotStatusHeld && slot.HeldBy != nil && *slot.HeldBy == studentID &&
		slot.HoldExpiresAt != nil && !slot.HoldExpiresAt.After(now) {
		return ErrHoldExpired
	}
	return ErrConflict
}

// afterBooking доставляет уведомление и событие. Оба канала best-effort:
// бронирование уже зафиксировано, сбой доставки его не отменяет.
func (s *BookingService) afterBooking(ctx context.Context, tutorID uuid.UUID, booking *model.Booking) {
	if s.notifier != nil {
		tutor, err := s.tutorStore.GetByID(ctx, tutorID)
		if err != nil {
			s.logger.Warn("Failed to load tutor for notification", zap.Error(err))
		} else if tutor != nil {
			if err := s.notifier.NotifyBookingCreated(ctx, tutor, booking); err != nil {
				s.logger.Warn("Failed to notify tutor",
					zap.Error(err),
					zap.String("booking_id", booking.ID.String()),
				)
			}
		}
	}

	if s.events != nil {
		if err := s.events.PublishBookingCreated(ctx, booking); err != nil {
			s.logger.Warn("Failed to publish booking created event",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
		}
	}
}

// ListAvailableSlots возвращает слоты репетитора, которые можно предложить
// студенту в окне [from, to), по возрастанию времени начала. Протухшие
// hold'ы считаются доступными (производное состояние, не колонка status).
func (s *BookingService) ListAvailableSlots(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]*model.Slot, error) {
	if tutorID == uuid.Nil {
		return nil, fmt.Errorf("%w: tutor id is required", ErrValidation)
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty time window", ErrValidation)
	}

	slots, err := s.slotStore.GetAvailable(ctx, tutorID, from, to, s.now())
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}

	return slots, nil
}

// GetBooking получает бронирование по ID
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookingStore.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	return booking, nil
}

// ReclaimExpiredHolds возвращает протухшие hold'ы в available одной bulk-операцией.
// Вызывается фоновым свипером; корректность от него не зависит.
func (s *BookingService) ReclaimExpiredHolds(ctx context.Context) (int64, error) {
	reclaimed, err := s.slotStore.ReclaimExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("reclaim expired holds: %w", err)
	}

	if reclaimed > 0 {
		s.logger.Info("Reclaimed expired holds", zap.Int64("count", reclaimed))
	}

	return reclaimed, nil
}
