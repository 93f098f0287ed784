package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/auth"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

var (
	// ErrAlreadyDecided means the reschedule request left the pending
	// state before this decision landed.
	ErrAlreadyDecided = errors.New("reschedule request has already been decided")
)

type RescheduleInput struct {
	Date string // YYYY-MM-DD
	Time string // HH:MM
}

// ProposeReschedule files a patient's request to move their appointment.
// The appointment is parked in pending_reschedule while the request is open,
// which also guarantees at most one open request per appointment.
func (s *Service) ProposeReschedule(ctx context.Context, actor auth.Identity, appointmentID uuid.UUID, in RescheduleInput) (*RescheduleRequest, error) {
	if actor.Role != user.RolePatient {
		return nil, ErrNotAllowed
	}

	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID == nil || *appt.PatientID != actor.UserID {
		return nil, ErrNotOwner
	}
	if appt.Status == StatusPendingReschedule {
		return nil, ErrReschedulePending
	}
	if appt.Status != StatusScheduled {
		return nil, ErrNotScheduled
	}
	if s.withinNotice(appt.StartTime) {
		return nil, ErrCancelNotice
	}

	start, err := ParseDateTime(in.Date, in.Time)
	if err != nil {
		return nil, ErrInvalidDateTime
	}
	end := start.Add(s.slotDuration)

	var req *RescheduleRequest
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

		if _, err := s.repo.UpdateStatus(ctx, appt.ID, StatusScheduled, StatusPendingReschedule); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrNotScheduled
			}
			return err
		}

		req, err = s.repo.CreateRescheduleRequest(ctx, &RescheduleRequest{
			AppointmentID: appt.ID,
			PatientID:     actor.UserID,
			DoctorID:      appt.DoctorID,
			NewStartTime:  start,
			NewEndTime:    end,
		})
		if err != nil {
			// Put the appointment back so a failed insert does not strand
			// it in pending_reschedule.
			if _, revertErr := s.repo.UpdateStatus(ctx, appt.ID, StatusPendingReschedule, StatusScheduled); revertErr != nil {
				s.log.Error().Err(revertErr).Str("appointment_id", appt.ID.String()).Msg("revert pending_reschedule failed")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Reschedule requested: move appointment to %s.", start.Format(dateTimeLayout))
	s.notifyDoctor(ctx, appt.DoctorID, msg)
	s.notifier.NotifyAdmins(ctx, msg)
	return req, nil
}

// ApproveReschedule applies a pending request. The new interval is
// re-validated under the doctor's lock at decision time; a conflict that
// appeared since the proposal fails the approval and leaves the request
// pending.
func (s *Service) ApproveReschedule(ctx context.Context, actor auth.Identity, requestID uuid.UUID) (*RescheduleRequest, error) {
	req, err := s.repo.GetRescheduleRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(ctx, actor, req.DoctorID); err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, ErrAlreadyDecided
	}

	var decided *RescheduleRequest
	err = s.locker.WithDoctorLock(ctx, req.DoctorID, func(ctx context.Context) error {
		ok, err := s.schedules.WithinWorkingHours(ctx, req.DoctorID, req.NewStartTime, req.NewEndTime)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOutsideSchedule
		}

		excl := req.AppointmentID
		if _, err := s.repo.FindOverlapping(ctx, req.DoctorID, req.NewStartTime, req.NewEndTime, &excl); err == nil {
			return ErrSlotTaken
		} else if !errors.Is(err, ErrAppointmentNotFound) {
			return err
		}

		if _, err := s.repo.UpdateTimes(ctx, req.AppointmentID, req.NewStartTime, req.NewEndTime, StatusPendingReschedule, StatusScheduled); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrAlreadyDecided
			}
			return err
		}

		decided, err = s.repo.DecideRescheduleRequest(ctx, req.ID, RequestApproved, actor.UserID)
		if errors.Is(err, ErrRequestNotFound) {
			return ErrAlreadyDecided
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Reschedule approved: appointment moved to %s.", req.NewStartTime.Format(dateTimeLayout))
	s.notifier.NotifyUser(ctx, req.PatientID, msg)
	s.notifyDoctor(ctx, req.DoctorID, msg)
	s.notifier.NotifyAdmins(ctx, msg)
	return decided, nil
}

// RejectReschedule declines a pending request and returns the appointment to
// its original scheduled slot.
func (s *Service) RejectReschedule(ctx context.Context, actor auth.Identity, requestID uuid.UUID, reason string) (*RescheduleRequest, error) {
	req, err := s.repo.GetRescheduleRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(ctx, actor, req.DoctorID); err != nil {
		return nil, err
	}
	if req.Status != RequestPending {
		return nil, ErrAlreadyDecided
	}

	decided, err := s.repo.DecideRescheduleRequest(ctx, req.ID, RequestRejected, actor.UserID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, ErrAlreadyDecided
		}
		return nil, err
	}

	if _, err := s.repo.UpdateStatus(ctx, req.AppointmentID, StatusPendingReschedule, StatusScheduled); err != nil {
		// The appointment may have been cancelled meanwhile; the rejection
		// itself stands.
		s.log.Warn().Err(err).Str("appointment_id", req.AppointmentID.String()).Msg("restore scheduled after rejection failed")
	}

	msg := "Your reschedule request was rejected."
	if reason != "" {
		msg = fmt.Sprintf("Your reschedule request was rejected: %s", reason)
	}
	s.notifier.NotifyUser(ctx, req.PatientID, msg)

	update := fmt.Sprintf("Reschedule request for %s was rejected.", req.NewStartTime.Format(dateTimeLayout))
	s.notifyDoctor(ctx, req.DoctorID, update)
	s.notifier.NotifyAdmins(ctx, update)
	return decided, nil
}

// authorizeDecision allows the assigned doctor or any admin to decide a
// request targeting doctorID.
func (s *Service) authorizeDecision(ctx context.Context, actor auth.Identity, doctorID uuid.UUID) error {
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleDoctor:
		doc, err := s.users.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if doc.ID != doctorID {
			return ErrNotOwner
		}
		return nil
	default:
		return ErrNotAllowed
	}
}
