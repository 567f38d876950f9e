package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlink/booking_service/internal/model"
	"github.com/tutorlink/booking_service/internal/repository/base"
)

type PatternRepository struct {
	*base.Repository
}

func NewPatternRepository(pool *pgxpool.Pool) *PatternRepository {
	return &PatternRepository{Repository: base.NewRepository(pool)}
}

// GetByTutorID получает шаблон доступности репетитора
func (r *PatternRepository) GetByTutorID(ctx context.Context, tutorID uuid.UUID) (*model.AvailabilityPattern, error) {
	query := `
		SELECT tutor_id, hours_by_weekday, timezone, updated_at
		FROM availability_patterns
		WHERE tutor_id = $1
	`

	var (
		pattern model.AvailabilityPattern
		raw     []byte
	)
	err := r.QueryRow(ctx, query, tutorID).Scan(
		&pattern.TutorID,
		&raw,
		&pattern.Timezone,
		&pattern.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pattern by tutor: %w", err)
	}

	hours, err := decodeHours(raw)
	if err != nil {
		return nil, fmt.Errorf("decode pattern hours: %w", err)
	}
	pattern.HoursByWeekday = hours

	return &pattern, nil
}

// Upsert сохраняет шаблон целиком (одна строка на репетитора, last write wins)
func (r *PatternRepository) Upsert(ctx context.Context, pattern *model.AvailabilityPattern) error {
	raw, err := encodeHours(pattern.HoursByWeekday)
	if err != nil {
		return fmt.Errorf("encode pattern hours: %w", err)
	}

	query := `
		INSERT INTO availability_patterns (tutor_id, hours_by_weekday, timezone, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tutor_id)
		DO UPDATE SET hours_by_weekday = EXCLUDED.hours_by_weekday,
		              timezone = EXCLUDED.timezone,
		              updated_at = now()
		RETURNING updated_at
	`

	err = r.QueryRow(ctx, query, pattern.TutorID, raw, pattern.Timezone).Scan(&pattern.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert pattern: %w", err)
	}

	return nil
}

// GetTutorIDsWithPatterns возвращает репетиторов, у которых настроен шаблон
func (r *PatternRepository) GetTutorIDsWithPatterns(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT tutor_id FROM availability_patterns ORDER BY tutor_id`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get tutor ids with patterns: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tutor id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// JSONB keys are strings, the model keys weekdays as ints.

func decodeHours(raw []byte) (map[int][]int, error) {
	var byName map[string][]int
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, err
	}

	hours := make(map[int][]int, len(byName))
	for key, list := range byName {
		weekday, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("weekday key %q: %w", key, err)
		}
		hours[weekday] = list
	}
	return hours, nil
}

func encodeHours(hours map[int][]int) ([]byte, error) {
	byName := make(map[string][]int, len(hours))
	for weekday, list := range hours {
		if list == nil {
			list = []int{}
		}
		byName[strconv.Itoa(weekday)] = list
	}
	return json.Marshal(byName)
}
