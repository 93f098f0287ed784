package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        *string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Doctor struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Specialty string
	Bio       *string
	Location  *string
	Price     *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DoctorProfile joins the doctor record with its user identity for listings.
type DoctorProfile struct {
	Doctor
	Name  string
	Email string
	Phone *string
}
