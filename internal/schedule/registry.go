package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/auth"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

var (
	ErrInvalidDay    = errors.New("dayOfWeek must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidTime   = errors.New("times must be in HH:MM format")
	ErrInvalidWindow = errors.New("start time must be before end time")
	ErrNotSlotOwner  = errors.New("not authorized to manage this schedule")
)

// DoctorDirectory resolves the doctor profile behind an authenticated user.
type DoctorDirectory interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*user.Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*user.Doctor, error)
}

// Registry manages a doctor's recurring weekly availability windows.
type Registry struct {
	repo    Repository
	doctors DoctorDirectory
	log     zerolog.Logger
}

func NewRegistry(repo Repository, doctors DoctorDirectory, log zerolog.Logger) *Registry {
	return &Registry{repo: repo, doctors: doctors, log: log}
}

// AddSlot creates a weekly window. Overlap between windows of the same doctor
// is allowed; redundant windows only ever expand into already-free time.
func (g *Registry) AddSlot(ctx context.Context, actor auth.Identity, doctorID uuid.UUID, dayOfWeek int, start, end string, blocked bool) (*WeeklySlot, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, ErrInvalidDay
	}

	startOffset, err := parseClock(start)
	if err != nil {
		return nil, ErrInvalidTime
	}
	endOffset, err := parseClock(end)
	if err != nil {
		return nil, ErrInvalidTime
	}
	if startOffset >= endOffset {
		return nil, ErrInvalidWindow
	}

	if err := g.authorize(ctx, actor, doctorID); err != nil {
		return nil, err
	}

	if _, err := g.doctors.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	slot, err := g.repo.CreateSlot(ctx, &WeeklySlot{
		DoctorID:  doctorID,
		DayOfWeek: dayOfWeek,
		Start:     start,
		End:       end,
		Blocked:   blocked,
	})
	if err != nil {
		return nil, err
	}

	g.log.Info().
		Str("doctor_id", doctorID.String()).
		Int("day_of_week", dayOfWeek).
		Str("window", start+"-"+end).
		Msg("schedule slot added")

	return slot, nil
}

// RemoveSlot deletes a window. Only the owning doctor or an admin may do so.
func (g *Registry) RemoveSlot(ctx context.Context, actor auth.Identity, slotID uuid.UUID) error {
	slot, err := g.repo.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}

	if err := g.authorize(ctx, actor, slot.DoctorID); err != nil {
		return err
	}

	return g.repo.DeleteSlot(ctx, slotID)
}

// ListSlots returns all windows for a doctor sorted by (dayOfWeek, start).
func (g *Registry) ListSlots(ctx context.Context, doctorID uuid.UUID) ([]WeeklySlot, error) {
	return g.repo.ListByDoctor(ctx, doctorID)
}

func (g *Registry) authorize(ctx context.Context, actor auth.Identity, doctorID uuid.UUID) error {
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleDoctor:
		doctor, err := g.doctors.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return ErrNotSlotOwner
		}
		if doctor.ID != doctorID {
			return ErrNotSlotOwner
		}
		return nil
	default:
		return ErrNotSlotOwner
	}
}
