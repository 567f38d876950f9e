// Package schedule projects recurring weekly availability patterns onto
// concrete UTC slot intervals over a rolling horizon.
package schedule

import (
	"sort"
	"time"

	"github.com/tutorlink/booking_service/internal/model"
)

// Interval is one projected slot boundary pair, always in UTC.
type Interval struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// Project maps the pattern onto UTC instants for every day in
// [now, now + horizonDays), interpreted in loc.
//
// The weekday of each horizon day is taken in loc, not in UTC — a UTC day
// boundary can fall on a different local weekday. Each listed hour becomes
// the local wall-clock instant "date @ hour:00" converted with the zone
// offset in effect on that date, so the same nominal hour maps to different
// UTC offsets across a DST transition.
//
// A local hour erased by a spring-forward gap normalizes past the gap (the
// later valid interpretation); an hour repeated by a fall-back resolves to
// the single instant time.Date picks. Either way output is deduplicated by
// UTC start, and instants at or before now are dropped.
func Project(pattern *model.AvailabilityPattern, loc *time.Location, now time.Time, horizonDays int, slotDuration time.Duration) []Interval {
	if pattern == nil || horizonDays <= 0 || slotDuration <= 0 {
		return nil
	}

	base := now.In(loc)
	seen := make(map[int64]bool)
	var intervals []Interval

	for day := 0; day < horizonDays; day++ {
		date := base.AddDate(0, 0, day)

		for _, hour := range pattern.HoursFor(date.Weekday()) {
			start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc).UTC()

			// No retroactive slots.
			if !start.After(now) {
				continue
			}
			if seen[start.Unix()] {
				continue
			}
			seen[start.Unix()] = true

			intervals = append(intervals, Interval{
				StartsAt: start,
				EndsAt:   start.Add(slotDuration),
			})
		}
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].StartsAt.Before(intervals[j].StartsAt)
	})

	return intervals
}
