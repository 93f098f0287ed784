package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/auth"
	"github.com/clinicore/clinic-scheduling/internal/config"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

var (
	ErrMissingFields   = errors.New("doctor, date and time are required")
	ErrInvalidDateTime = errors.New("date must be YYYY-MM-DD and time must be HH:MM")

	// ErrOutsideSchedule means the requested interval is not contained in
	// any open working window for that weekday.
	ErrOutsideSchedule = errors.New("selected time is outside of doctor working hours")

	ErrNotOwner   = errors.New("appointment does not belong to this user")
	ErrNotAllowed = errors.New("operation not permitted for this role")

	// ErrCancelNotice enforces the minimum patient notice for cancelling
	// or proposing a reschedule.
	ErrCancelNotice = errors.New("appointments can only be changed before the minimum notice period")

	// ErrNotScheduled is reported when a status transition finds the
	// appointment no longer in the scheduled state.
	ErrNotScheduled = errors.New("appointment is not in a scheduled state")
)

// ScheduleChecker validates a booking interval against the doctor's weekly
// working windows.
type ScheduleChecker interface {
	WithinWorkingHours(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, error)
}

// Directory resolves the parties of an appointment.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*user.Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*user.Doctor, error)
}

// Notifier fans booking events out to the affected users. Delivery is best
// effort; booking outcomes never depend on it.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, message string)
	NotifyAdmins(ctx context.Context, message string)
}

type Service struct {
	repo      Repository
	schedules ScheduleChecker
	users     Directory
	notifier  Notifier
	locker    redisclient.Locker

	slotDuration time.Duration
	cancelNotice time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

func NewService(
	repo Repository,
	schedules ScheduleChecker,
	users Directory,
	notifier Notifier,
	locker redisclient.Locker,
	cfg config.Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		schedules:    schedules,
		users:        users,
		notifier:     notifier,
		locker:       locker,
		slotDuration: cfg.SlotDuration,
		cancelNotice: cfg.CancelNotice,
		log:          log,
		now:          time.Now,
	}
}

type BookingInput struct {
	DoctorID uuid.UUID
	Date     string // YYYY-MM-DD
	Time     string // HH:MM
	Reason   string
}

// ManualBookingInput books on behalf of a caller who has no account. Contact
// is free text, usually a phone number.
type ManualBookingInput struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
	Reason   string
	Contact  string
}

// Book creates a scheduled appointment for the acting patient. The working
// hours and overlap checks run under the per-doctor lock so concurrent
// bookings of the same slot cannot both pass. Reason is optional.
func (s *Service) Book(ctx context.Context, actor auth.Identity, in BookingInput) (*Appointment, error) {
	if in.DoctorID == uuid.Nil || in.Date == "" || in.Time == "" {
		return nil, ErrMissingFields
	}

	start, err := ParseDateTime(in.Date, in.Time)
	if err != nil {
		return nil, ErrInvalidDateTime
	}
	end := start.Add(s.slotDuration)

	if _, err := s.users.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, err
	}

	patientID := actor.UserID
	created, err := s.createLocked(ctx, &Appointment{
		DoctorID:  in.DoctorID,
		PatientID: &patientID,
		StartTime: start,
		EndTime:   end,
		Reason:    in.Reason,
		Status:    StatusScheduled,
	}, nil)
	if err != nil {
		return nil, err
	}

	s.notifyParties(ctx, created, fmt.Sprintf("Appointment booked for %s.", created.StartTime.Format(dateTimeLayout)))
	return created, nil
}

// BookManual records a phone-in booking taken by an admin. No patient account
// is attached; the contact string identifies the caller.
func (s *Service) BookManual(ctx context.Context, actor auth.Identity, in ManualBookingInput) (*Appointment, error) {
	if actor.Role != user.RoleAdmin {
		return nil, ErrNotAllowed
	}
	if in.DoctorID == uuid.Nil || in.Date == "" || in.Time == "" || in.Reason == "" || in.Contact == "" {
		return nil, ErrMissingFields
	}

	start, err := ParseDateTime(in.Date, in.Time)
	if err != nil {
		return nil, ErrInvalidDateTime
	}
	end := start.Add(s.slotDuration)

	if _, err := s.users.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, err
	}

	contact := in.Contact
	created, err := s.createLocked(ctx, &Appointment{
		DoctorID:      in.DoctorID,
		ManualContact: &contact,
		StartTime:     start,
		EndTime:       end,
		Reason:        in.Reason,
		Status:        StatusScheduled,
	}, nil)
	if err != nil {
		return nil, err
	}

	s.notifyDoctor(ctx, created.DoctorID, fmt.Sprintf("New phone-in appointment for %s (%s).", created.StartTime.Format(dateTimeLayout), contact))
	return created, nil
}

// createLocked runs the containment and overlap checks and the insert under
// the doctor's lock. exclude carries the appointment being moved, if any.
func (s *Service) createLocked(ctx context.Context, appt *Appointment, exclude *uuid.UUID) (*Appointment, error) {
	var created *Appointment

	err := s.locker.WithDoctorLock(ctx, appt.DoctorID, func(ctx context.Context) error {
		ok, err := s.schedules.WithinWorkingHours(ctx, appt.DoctorID, appt.StartTime, appt.EndTime)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOutsideSchedule
		}

		if _, err := s.repo.FindOverlapping(ctx, appt.DoctorID, appt.StartTime, appt.EndTime, exclude); err == nil {
			return ErrSlotTaken
		} else if !errors.Is(err, ErrAppointmentNotFound) {
			return err
		}

		created, err = s.repo.Create(ctx, appt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Cancel moves a scheduled appointment to cancelled. Patients may only cancel
// their own appointments and only outside the notice window; doctors only
// their own calendar; admins any.
func (s *Service) Cancel(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeChange(ctx, actor, appt); err != nil {
		return nil, err
	}
	if actor.Role == user.RolePatient && s.withinNotice(appt.StartTime) {
		return nil, ErrCancelNotice
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotScheduled
		}
		return nil, err
	}

	s.notifyParties(ctx, updated, fmt.Sprintf("Appointment for %s was cancelled.", updated.StartTime.Format(dateTimeLayout)))
	return updated, nil
}

// Complete marks a scheduled appointment as completed. Only the assigned
// doctor or an admin may do this.
func (s *Service) Complete(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role == user.RolePatient {
		return nil, ErrNotAllowed
	}
	if err := s.authorizeChange(ctx, actor, appt); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotScheduled
		}
		return nil, err
	}

	s.notifyParties(ctx, updated, fmt.Sprintf("Appointment for %s was marked completed.", updated.StartTime.Format(dateTimeLayout)))
	return updated, nil
}

// MoveDirect reschedules a scheduled appointment immediately, without the
// patient proposal flow. Reserved for the assigned doctor and admins.
func (s *Service) MoveDirect(ctx context.Context, actor auth.Identity, id uuid.UUID, date, clock string) (*Appointment, error) {
	if actor.Role == user.RolePatient {
		return nil, ErrNotAllowed
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeChange(ctx, actor, appt); err != nil {
		return nil, err
	}

	start, err := ParseDateTime(date, clock)
	if err != nil {
		return nil, ErrInvalidDateTime
	}
	end := start.Add(s.slotDuration)

	var updated *Appointment
	err = s.locker.WithDoctorLock(ctx, appt.DoctorID, func(ctx context.Context) error {
		ok, err := s.schedules.WithinWorkingHours(ctx, appt.DoctorID, start, end)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOutsideSchedule
		}

		excl := appt.ID
		if _, err := s.repo.FindOverlapping(ctx, appt.DoctorID, start, end, &excl); err == nil {
			return ErrSlotTaken
		} else if !errors.Is(err, ErrAppointmentNotFound) {
			return err
		}

		updated, err = s.repo.UpdateTimes(ctx, id, start, end, StatusScheduled, StatusScheduled)
		if errors.Is(err, ErrAppointmentNotFound) {
			return ErrNotScheduled
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifyParties(ctx, updated, fmt.Sprintf("Appointment moved to %s.", updated.StartTime.Format(dateTimeLayout)))
	return updated, nil
}

// ListForPatient returns the acting patient's appointments.
func (s *Service) ListForPatient(ctx context.Context, actor auth.Identity) ([]Detail, error) {
	return s.repo.ListByPatient(ctx, actor.UserID)
}

// ListForDoctor returns a doctor's calendar. Doctors see only their own;
// admins see any doctor's.
func (s *Service) ListForDoctor(ctx context.Context, actor auth.Identity, doctorID uuid.UUID) ([]Detail, error) {
	if actor.Role == user.RoleDoctor {
		doc, err := s.users.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if doc.ID != doctorID {
			return nil, ErrNotOwner
		}
	}
	return s.repo.ListByDoctor(ctx, doctorID)
}

func (s *Service) ListAll(ctx context.Context) ([]Detail, error) {
	return s.repo.ListAll(ctx)
}

// Stats is the admin analytics snapshot.
type Stats struct {
	Total     int
	ByStatus  map[Status]int
	PerDoctor []DoctorCount
}

func (s *Service) Analytics(ctx context.Context) (*Stats, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	perDoctor, err := s.repo.CountPerDoctor(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &Stats{Total: total, ByStatus: byStatus, PerDoctor: perDoctor}, nil
}

// RemindDueBy sends a reminder to every patient whose scheduled appointment
// starts before the deadline and has not been reminded yet. Claiming happens
// in storage, so restarts neither skip nor double-send and concurrent worker
// instances never race.
func (s *Service) RemindDueBy(ctx context.Context, deadline time.Time) (int, error) {
	appts, err := s.repo.ClaimDueReminders(ctx, deadline)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range appts {
		a := &appts[i]
		if a.PatientID == nil {
			continue
		}
		s.notifier.NotifyUser(ctx, *a.PatientID, fmt.Sprintf("Reminder: you have an appointment at %s.", a.StartTime.Format(dateTimeLayout)))
		sent++
	}
	return sent, nil
}

// authorizeChange checks that the actor may mutate this appointment.
func (s *Service) authorizeChange(ctx context.Context, actor auth.Identity, appt *Appointment) error {
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleDoctor:
		doc, err := s.users.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if doc.ID != appt.DoctorID {
			return ErrNotOwner
		}
		return nil
	case user.RolePatient:
		if appt.PatientID == nil || *appt.PatientID != actor.UserID {
			return ErrNotOwner
		}
		return nil
	default:
		return ErrNotAllowed
	}
}

func (s *Service) withinNotice(start time.Time) bool {
	return s.now().Add(s.cancelNotice).After(start)
}

// notifyParties informs the patient (if any), the doctor's user and the
// admins about a booking event.
func (s *Service) notifyParties(ctx context.Context, appt *Appointment, message string) {
	if appt.PatientID != nil {
		s.notifier.NotifyUser(ctx, *appt.PatientID, message)
	}
	s.notifyDoctor(ctx, appt.DoctorID, message)
	s.notifier.NotifyAdmins(ctx, message)
}

func (s *Service) notifyDoctor(ctx context.Context, doctorID uuid.UUID, message string) {
	doc, err := s.users.GetDoctorByID(ctx, doctorID)
	if err != nil {
		s.log.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("notify doctor: lookup failed")
		return
	}
	s.notifier.NotifyUser(ctx, doc.UserID, message)
}
