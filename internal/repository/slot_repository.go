package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlink/booking_service/internal/model"
	"github.com/tutorlink/booking_service/internal/repository/base"
)

const slotColumns = `id, tutor_id, starts_at, ends_at, price_cents, status, held_by, hold_expires_at, created_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
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
		return nil, err
	}
	return &slot, nil
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, tutor_id, starts_at, ends_at, price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.ID,
		slot.TutorID,
		slot.StartsAt,
		slot.EndsAt,
		slot.PriceCents,
		slot.Status,
	).Scan(&slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// CreateBatch вставляет пачку слотов одной bulk-операцией
func (r *SlotRepository) CreateBatch(ctx context.Context, slots []*model.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	copied, err := r.Pool().CopyFrom(
		ctx,
		pgx.Identifier{"slots"},
		[]string{"id", "tutor_id", "starts_at", "ends_at", "price_cents", "status", "created_at"},
		pgx.CopyFromSlice(len(slots), func(i int) ([]interface{}, error) {
			s := slots[i]
			return []interface{}{s.ID, s.TutorID, s.StartsAt, s.EndsAt, s.PriceCents, s.Status, now}, nil
		}),
	)
	if err != nil {
		return copied, fmt.Errorf("create slot batch: %w", err)
	}

	return copied, nil
}

// DeleteByIDs удаляет слоты по списку ID одной bulk-операцией
func (r *SlotRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM slots WHERE id = ANY($1)`

	deleted, err := r.ExecAffected(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("delete slot batch: %w", err)
	}

	return deleted, nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByTutorID получает все слоты репетитора в заданном диапазоне времени
func (r *SlotRepository) GetByTutorID(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE tutor_id = $1
		  AND starts_at >= $2
		  AND starts_at < $3
		ORDER BY starts_at
	`

	return r.querySlots(ctx, query, tutorID, from, to)
}

// GetAvailable получает слоты, которые можно предложить студенту.
// Протухший hold считается доступным — статус в колонке не авторитетен.
func (r *SlotRepository) GetAvailable(ctx context.Context, tutorID uuid.UUID, from, to time.Time, now time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE tutor_id = $1
		  AND starts_at >= $2
		  AND starts_at < $3
		  AND starts_at > $4
		  AND (status = 'available' OR (status = 'held' AND hold_expires_at <= $4))
		ORDER BY starts_at
	`

	return r.querySlots(ctx, query, tutorID, from, to, now)
}

// Hold пытается захватить слот для студента условным UPDATE.
// Прекондиция проверяется в WHERE: слот свободен (или hold протух) и ещё в будущем.
// Возвращает (nil, nil), если прекондиция не выполнилась — разбор причины на стороне сервиса.
func (r *SlotRepository) Hold(ctx context.Context, slotID, studentID uuid.UUID, expiresAt, now time.Time) (*model.Slot, error) {
	query := `
		UPDATE slots
		SET status = 'held', held_by = $2, hold_expires_at = $3
		WHERE id = $1
		  AND starts_at > $4
		  AND (status = 'available' OR (status = 'held' AND hold_expires_at <= $4))
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.QueryRow(ctx, query, slotID, studentID, expiresAt, now))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("hold slot: %w", err)
	}

	return slot, nil
}

// Release освобождает hold того же студента. Нулевое число строк — не ошибка:
// release идемпотентен.
func (r *SlotRepository) Release(ctx context.Context, slotID, studentID uuid.UUID) (int64, error) {
	query := `
		UPDATE slots
		SET status = 'available', held_by = NULL, hold_expires_at = NULL
		WHERE id = $1
		  AND status = 'held'
		  AND held_by = $2
	`

	affected, err := r.ExecAffected(ctx, query, slotID, studentID)
	if err != nil {
		return 0, fmt.Errorf("release slot: %w", err)
	}

	return affected, nil
}

// ReclaimExpired возвращает протухшие hold'ы в статус available одной командой.
// Это оптимизация: корректность обеспечивается ленивой проверкой hold_expires_at.
func (r *SlotRepository) ReclaimExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE slots
		SET status = 'available', held_by = NULL, hold_expires_at = NULL
		WHERE status = 'held'
		  AND hold_expires_at <= $1
	`

	reclaimed, err := r.ExecAffected(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired holds: %w", err)
	}

	return reclaimed, nil
}

func (r *SlotRepository) querySlots(ctx context.Context, query string, args ...interface{}) ([]*model.Slot, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}
