package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlink/booking_service/internal/model"
	"github.com/tutorlink/booking_service/internal/repository/base"
)

type TutorRepository struct {
	*base.Repository
}

func NewTutorRepository(pool *pgxpool.Pool) *TutorRepository {
	return &TutorRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает репетитора по ID
func (r *TutorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tutor, error) {
	query := `
		SELECT id, display_name, timezone, hourly_rate_cents, telegram_chat_id, created_at
		FROM tutors
		WHERE id = $1
	`

	var tutor model.Tutor
	err := r.QueryRow(ctx, query, id).Scan(
		&tutor.ID,
		&tutor.DisplayName,
		&tutor.Timezone,
		&tutor.HourlyRateCents,
		&tutor.TelegramChatID,
		&tutor.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tutor by id: %w", err)
	}

	return &tutor, nil
}

// Create создаёт репетитора (используется сидером и тестовой обвязкой)
func (r *TutorRepository) Create(ctx context.Context, tutor *model.Tutor) error {
	query := `
		INSERT INTO tutors (id, display_name, timezone, hourly_rate_cents, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.QueryRow(
		ctx, query,
		tutor.ID,
		tutor.DisplayName,
		tutor.Timezone,
		tutor.HourlyRateCents,
		tutor.TelegramChatID,
	).Scan(&tutor.CreatedAt)

	if err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}

	return nil
}
