package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AvailabilityPattern представляет шаблон еженедельной доступности репетитора
type AvailabilityPattern struct {
	TutorID        uuid.UUID     `json:"tutor_id"`
	HoursByWeekday map[int][]int `json:"hours_by_weekday"` // 0 = Sunday, 6 = Saturday -> hours 0-23
	Timezone       string        `json:"timezone"`         // IANA name, may be empty
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsEmpty reports whether the pattern has no hours configured on any weekday.
func (p *AvailabilityPattern) IsEmpty() bool {
	for _, hours := range p.HoursByWeekday {
		if len(hours) > 0 {
			return false
		}
	}
	return true
}

// HoursFor returns the configured hours for a weekday, sorted ascending.
func (p *AvailabilityPattern) HoursFor(weekday time.Weekday) []int {
	hours := append([]int(nil), p.HoursByWeekday[int(weekday)]...)
	sort.Ints(hours)
	return hours
}

// Normalize deduplicates hours and validates ranges. Called before the
// pattern is persisted or projected.
func (p *AvailabilityPattern) Normalize() error {
	normalized := make(map[int][]int, len(p.HoursByWeekday))
	for weekday, hours := range p.HoursByWeekday {
		if weekday < 0 || weekday > 6 {
			return fmt.Errorf("weekday %d out of range [0,6]", weekday)
		}
		seen := make(map[int]bool, len(hours))
		var dedup []int
		for _, h := range hours {
			if h < 0 || h > 23 {
				return fmt.Errorf("hour %d out of range [0,23]", h)
			}
			if seen[h] {
				continue
			}
			seen[h] = true
			dedup = append(dedup, h)
		}
		sort.Ints(dedup)
		normalized[weekday] = dedup
	}
	p.HoursByWeekday = normalized
	return nil
}
