package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlink/booking_service/internal/model"
	"github.com/tutorlink/booking_service/internal/repository/base"
)

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// BookSlot переводит hold в booked и создаёт запись о бронировании в одной
// транзакции. Прекондиция перехода проверяется в WHERE условного UPDATE:
// hold принадлежит студенту и ещё не протух. Возвращает (nil, nil, nil),
// если прекондиция не выполнилась — разбор причины на стороне сервиса.
//
// Частичный unique-индекс bookings(slot_id) — последняя линия защиты от
// двойного бронирования; нарушение поднимается наверх как есть, сервис
// разбирает код 23505.
func (r *BookingRepository) BookSlot(ctx context.Context, slotID, studentID, bookingID uuid.UUID, now time.Time) (*model.Slot, *model.Booking, error) {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin book transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE slots
		SET status = 'booked', held_by = NULL, hold_expires_at = NULL
		WHERE id = $1
		  AND status = 'held'
		  AND held_by = $2
		  AND hold_expires_at > $3
		RETURNING id, tutor_id, starts_at, ends_at, price_cents, status, held_by, hold_expires_at, created_at
	`

	var slot model.Slot
	err = tx.QueryRow(ctx, updateQuery, slotID, studentID, now).Scan(
		&slot.ID,
		&slot.TutorID,
		&slot.StartsAt,
		&slot.EndsAt,
		&slot.PriceCents,
		&slot.Status,
		&slot.HeldBy,
		&slot.HoldExpiresAt,
		&slot.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("book slot: %w", err)
	}

	booking := &model.Booking{
		ID:         bookingID,
		SlotID:     slot.ID,
		TutorID:    slot.TutorID,
		StudentID:  studentID,
		StartsAt:   slot.StartsAt,
		EndsAt:     slot.EndsAt,
		PriceCents: slot.PriceCents,
		Status:     model.BookingStatusConfirmed,
	}

	insertQuery := `
		INSERT INTO bookings (id, slot_id, tutor_id, student_id, starts_at, ends_at, price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err = tx.QueryRow(
		ctx, insertQuery,
		booking.ID,
		booking.SlotID,
		booking.TutorID,
		booking.StudentID,
		booking.StartsAt,
		booking.EndsAt,
		booking.PriceCents,
		booking.Status,
	).Scan(&booking.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("create booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit book transaction: %w", err)
	}

	return &slot, booking, nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `
		SELECT id, slot_id, tutor_id, student_id, starts_at, ends_at, price_cents, status, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking model.Booking
	err := r.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.SlotID,
		&booking.TutorID,
		&booking.StudentID,
		&booking.StartsAt,
		&booking.EndsAt,
		&booking.PriceCents,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return &booking, nil
}

// GetBySlotID получает живое бронирование слота, если оно есть
func (r *BookingRepository) GetBySlotID(ctx context.Context, slotID uuid.UUID) (*model.Booking, error) {
	query := `
		SELECT id, slot_id, tutor_id, student_id, starts_at, ends_at, price_cents, status, created_at
		FROM bookings
		WHERE slot_id = $1 AND status <> 'canceled'
	`

	var booking model.Booking
	err := r.QueryRow(ctx, query, slotID).Scan(
		&booking.ID,
		&booking.SlotID,
		&booking.TutorID,
		&booking.StudentID,
		&booking.StartsAt,
		&booking.EndsAt,
		&booking.PriceCents,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by slot: %w", err)
	}

	return &booking, nil
}

// GetByStudentID получает все бронирования студента
func (r *BookingRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*model.Booking, error) {
	query := `
		SELECT id, slot_id, tutor_id, student_id, starts_at, ends_at, price_cents, status, created_at
		FROM bookings
		WHERE student_id = $1
		ORDER BY starts_at
	`

	rows, err := r.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by student: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		var booking model.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.SlotID,
			&booking.TutorID,
			&booking.StudentID,
			&booking.StartsAt,
			&booking.EndsAt,
			&booking.PriceCents,
			&booking.Status,
			&booking.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, rows.Err()
}
