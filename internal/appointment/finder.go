package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

// RangeFinder exposes booked intervals to the availability resolver.
type RangeFinder struct {
	repo Repository
}

func NewRangeFinder(repo Repository) *RangeFinder {
	return &RangeFinder{repo: repo}
}

func (f *RangeFinder) ScheduledRanges(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.TimeRange, error) {
	appts, err := f.repo.ListScheduledInRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}

	ranges := make([]schedule.TimeRange, 0, len(appts))
	for _, a := range appts {
		ranges = append(ranges, schedule.TimeRange{Start: a.StartTime, End: a.EndTime})
	}
	return ranges, nil
}
