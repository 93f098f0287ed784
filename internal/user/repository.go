package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrEmailTaken     = errors.New("user already exists with this email")
)

// Repository contains all DB interactions needed by the user service and the
// booking/notification components that look up parties.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ListByRole(ctx context.Context, role Role) ([]User, error)

	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	GetDoctorProfile(ctx context.Context, id uuid.UUID) (*DoctorProfile, error)
	ListDoctorProfiles(ctx context.Context) ([]DoctorProfile, error)
	CreateDoctor(ctx context.Context, d *Doctor) (*Doctor, error)
	UpdateDoctor(ctx context.Context, d *Doctor) (*Doctor, error)

	// DeleteDoctor removes the doctor and its user row. Schedules,
	// appointments and open requests go with it (FK cascade); doctor
	// removal is destructive, not archival.
	DeleteDoctor(ctx context.Context, id uuid.UUID) error
}
