package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled         Status = "scheduled"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	StatusPendingReschedule Status = "pending_reschedule"
)

// Appointment is never hard-deleted outside doctor-removal cascades; it only
// moves between statuses.
type Appointment struct {
	ID       uuid.UUID
	DoctorID uuid.UUID

	// PatientID is nil for phone-in bookings, in which case ManualContact
	// holds the caller's phone number or name.
	PatientID     *uuid.UUID
	ManualContact *string

	StartTime time.Time
	EndTime   time.Time
	Reason    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Detail joins an appointment with the display names of its parties.
type Detail struct {
	Appointment
	PatientName     string
	DoctorName      string
	DoctorSpecialty string
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// RescheduleRequest is a patient-proposed time change awaiting a doctor or
// admin decision. While one is pending the appointment sits in
// pending_reschedule, so no concurrent slot check sees stale times.
type RescheduleRequest struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	NewStartTime  time.Time
	NewEndTime    time.Time
	Status        RequestStatus
	DecidedBy     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EmergencyRequest is an out-of-band booking that needs independent doctor
// and admin sign-off. Rejected is sticky; both approvals materialize an
// appointment.
type EmergencyRequest struct {
	ID             uuid.UUID
	DoctorID       uuid.UUID
	PatientID      uuid.UUID
	Date           string // YYYY-MM-DD
	Time           string // HH:MM
	Reason         string
	DoctorApproved bool
	AdminApproved  bool
	Rejected       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// State composes the flag triple into the effective workflow state.
func (e *EmergencyRequest) State() string {
	switch {
	case e.Rejected:
		return "rejected_emergency"
	case e.DoctorApproved && e.AdminApproved:
		return "confirmed_emergency"
	case e.DoctorApproved:
		return "doctor_approved"
	case e.AdminApproved:
		return "admin_approved"
	default:
		return "pending_emergency"
	}
}

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	dateTimeLayout = "2006-01-02 15:04"
)

// ParseDateTime combines a YYYY-MM-DD date and HH:MM clock into an instant
// on the canonical (UTC) clock.
func ParseDateTime(date, clock string) (time.Time, error) {
	return time.ParseInLocation(dateTimeLayout, date+" "+clock, time.UTC)
}
