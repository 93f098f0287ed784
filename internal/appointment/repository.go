package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrRequestNotFound     = errors.New("reschedule request not found")
	ErrEmergencyNotFound   = errors.New("emergency request not found")

	// ErrSlotTaken is returned both by the application-level overlap check
	// and by the storage layer when the partial unique index on
	// (doctor_id, start_time) rejects a concurrent insert.
	ErrSlotTaken = errors.New("time slot already booked")

	// ErrReschedulePending is the storage-level guarantee that at most one
	// pending request exists per appointment.
	ErrReschedulePending = errors.New("a reschedule request is already pending for this appointment")
)

// DoctorCount is one row of the per-doctor analytics aggregate.
type DoctorCount struct {
	DoctorID   uuid.UUID
	DoctorName string
	Count      int
}

// Repository contains all DB interactions needed by the booking and approval
// services. Status-changing updates are compare-and-set: they match the
// expected current status and report ErrAppointmentNotFound when the row has
// moved on, so racing transitions lose cleanly.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time, from, to Status) (*Appointment, error)

	// FindOverlapping applies the half-open interval test
	// (start < end_new AND end > start_new) against scheduled appointments.
	// exclude skips the appointment being moved.
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*Appointment, error)

	ListScheduledInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// ClaimDueReminders atomically marks unreminded scheduled appointments
	// starting before the deadline as reminded and returns them. The claim
	// lives in storage so each appointment is returned exactly once, across
	// restarts and concurrent workers alike.
	ClaimDueReminders(ctx context.Context, deadline time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error)
	ListAll(ctx context.Context) ([]Detail, error)

	CreateRescheduleRequest(ctx context.Context, req *RescheduleRequest) (*RescheduleRequest, error)
	GetRescheduleRequest(ctx context.Context, id uuid.UUID) (*RescheduleRequest, error)

	// DecideRescheduleRequest moves a pending request to approved or
	// rejected; a request already decided reports ErrRequestNotFound.
	DecideRescheduleRequest(ctx context.Context, id uuid.UUID, to RequestStatus, decidedBy uuid.UUID) (*RescheduleRequest, error)

	CreateEmergencyRequest(ctx context.Context, req *EmergencyRequest) (*EmergencyRequest, error)
	GetEmergencyRequest(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error)
	MarkEmergencyDoctorApproved(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error)
	MarkEmergencyAdminApproved(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error)
	MarkEmergencyRejected(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error)

	// ConfirmEmergency records the second approval (whichever party it came
	// from) and creates the materialized appointment in one transaction; an
	// overlap conflict rolls back both.
	ConfirmEmergency(ctx context.Context, id uuid.UUID, appt *Appointment) (*EmergencyRequest, *Appointment, error)

	CountByStatus(ctx context.Context) (map[Status]int, error)
	CountPerDoctor(ctx context.Context) ([]DoctorCount, error)
}
