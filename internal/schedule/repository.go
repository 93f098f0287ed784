package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound = errors.New("schedule slot not found")
)

// Repository contains all DB interactions for weekly schedule slots.
type Repository interface {
	CreateSlot(ctx context.Context, slot *WeeklySlot) (*WeeklySlot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*WeeklySlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	// ListByDoctor returns all slots sorted by (day_of_week, start).
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]WeeklySlot, error)

	// ListOpenByDoctorDay returns the non-blocked slots for one weekday.
	ListOpenByDoctorDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]WeeklySlot, error)
}
