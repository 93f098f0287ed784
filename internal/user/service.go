package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrMissingFields = errors.New("name, email and password are required")
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateUser registers a user with an explicitly hashed password.
func (s *Service) CreateUser(ctx context.Context, name, email string, phone *string, password string, role Role) (*User, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID.String()).Str("role", string(role)).Msg("user created")
	return created, nil
}

type DoctorInput struct {
	Name      string
	Email     string
	Phone     *string
	Password  string
	Specialty string
	Bio       *string
	Location  *string
	Price     *int
}

// CreateDoctor registers the doctor user and its profile row.
func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	if in.Specialty == "" {
		return nil, errors.New("specialty is required")
	}

	u, err := s.CreateUser(ctx, in.Name, in.Email, in.Phone, in.Password, RoleDoctor)
	if err != nil {
		return nil, err
	}

	doctor, err := s.repo.CreateDoctor(ctx, &Doctor{
		UserID:    u.ID,
		Specialty: in.Specialty,
		Bio:       in.Bio,
		Location:  in.Location,
		Price:     in.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("create doctor profile: %w", err)
	}

	return doctor, nil
}

type DoctorUpdate struct {
	Name      *string
	Email     *string
	Phone     *string
	Password  *string
	Specialty *string
	Bio       *string
	Location  *string
	Price     *int
}

// UpdateDoctor patches the doctor profile and, when present, its user fields.
// A password change goes through HashPassword like any other write.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, in DoctorUpdate) error {
	doctor, err := s.repo.GetDoctorByID(ctx, id)
	if err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, doctor.UserID)
	if err != nil {
		return err
	}

	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	if _, err := s.repo.Update(ctx, u); err != nil {
		return err
	}

	if in.Specialty != nil {
		doctor.Specialty = *in.Specialty
	}
	if in.Bio != nil {
		doctor.Bio = in.Bio
	}
	if in.Location != nil {
		doctor.Location = in.Location
	}
	if in.Price != nil {
		doctor.Price = in.Price
	}
	if _, err := s.repo.UpdateDoctor(ctx, doctor); err != nil {
		return err
	}

	return nil
}

// DeleteDoctor is destructive: the doctor's schedules, appointments and open
// requests are removed with it.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteDoctor(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("doctor_id", id.String()).Msg("doctor deleted with cascade")
	return nil
}

type PatientUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Password *string
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in PatientUpdate) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role != RolePatient {
		return ErrUserNotFound
	}

	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}

	_, err = s.repo.Update(ctx, u)
	return err
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role != RolePatient {
		return ErrUserNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context) ([]User, error) {
	return s.repo.ListByRole(ctx, RolePatient)
}

func (s *Service) ListDoctors(ctx context.Context) ([]DoctorProfile, error) {
	return s.repo.ListDoctorProfiles(ctx)
}

func (s *Service) GetDoctorProfile(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	return s.repo.GetDoctorProfile(ctx, id)
}
