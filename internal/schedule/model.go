package schedule

import (
	"time"

	"github.com/google/uuid"
)

// WeeklySlot is one recurring availability window for a doctor.
// DayOfWeek follows time.Weekday: 0 = Sunday .. 6 = Saturday.
// Start and End are clock times in "HH:MM" form.
type WeeklySlot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	DayOfWeek int
	Start     string
	End       string
	Blocked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps applies the half-open interval test.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

const clockLayout = "15:04"

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// windowOn anchors the weekly window to a concrete calendar date.
func (s WeeklySlot) windowOn(date time.Time) (TimeRange, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	startOffset, err := parseClock(s.Start)
	if err != nil {
		return TimeRange{}, err
	}
	endOffset, err := parseClock(s.End)
	if err != nil {
		return TimeRange{}, err
	}

	return TimeRange{
		Start: startOfDay.Add(startOffset),
		End:   startOfDay.Add(endOffset),
	}, nil
}
