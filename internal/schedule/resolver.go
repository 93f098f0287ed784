package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

const dateLayout = "2006-01-02"

// AppointmentFinder reports the booked intervals the resolver must avoid.
// Only appointments in the scheduled state count.
type AppointmentFinder interface {
	ScheduledRanges(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]TimeRange, error)
}

// Resolver expands a doctor's weekly windows into bookable slots for a
// concrete date. Returned slots are not reserved; booking re-validates at
// commit time.
type Resolver struct {
	repo         Repository
	appointments AppointmentFinder
	slotDuration time.Duration
}

func NewResolver(repo Repository, appointments AppointmentFinder, slotDuration time.Duration) *Resolver {
	return &Resolver{
		repo:         repo,
		appointments: appointments,
		slotDuration: slotDuration,
	}
}

// ResolveSlots returns the open slot start times ("HH:MM") for the doctor on
// the given date. A doctor with no matching window yields an empty slice, not
// an error; a malformed date is a hard validation error.
func (r *Resolver) ResolveSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	day, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return nil, ErrInvalidDate
	}

	windows, err := r.repo.ListOpenByDoctorDay(ctx, doctorID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []string{}, nil
	}

	candidates := make(map[time.Time]struct{})
	for _, w := range windows {
		window, err := w.windowOn(day)
		if err != nil {
			// A malformed stored window is skipped rather than failing
			// the whole listing.
			continue
		}
		for cur := window.Start; !cur.Add(r.slotDuration).After(window.End); cur = cur.Add(r.slotDuration) {
			candidates[cur] = struct{}{}
		}
	}

	booked, err := r.appointments.ScheduledRanges(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	free := make([]time.Time, 0, len(candidates))
	for start := range candidates {
		if !intersectsBooked(start, booked) {
			free = append(free, start)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i].Before(free[j]) })

	result := make([]string, 0, len(free))
	for _, t := range free {
		result = append(result, t.Format(clockLayout))
	}
	return result, nil
}

// intersectsBooked drops a candidate whose start coincides with, or falls
// strictly inside, a booked [start, end) interval.
func intersectsBooked(start time.Time, booked []TimeRange) bool {
	for _, b := range booked {
		if start.Equal(b.Start) || (start.After(b.Start) && start.Before(b.End)) {
			return true
		}
	}
	return false
}

// WithinWorkingHours reports whether [start, end) lies entirely within at
// least one non-blocked window for the doctor on that weekday.
func (r *Resolver) WithinWorkingHours(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error) {
	windows, err := r.repo.ListOpenByDoctorDay(ctx, doctorID, int(start.Weekday()))
	if err != nil {
		return false, err
	}

	for _, w := range windows {
		window, err := w.windowOn(start)
		if err != nil {
			continue
		}
		if !start.Before(window.Start) && !end.After(window.End) {
			return true, nil
		}
	}
	return false, nil
}
