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
	// ErrAlreadyRejected makes rejection sticky: no approval can follow it.
	ErrAlreadyRejected = errors.New("emergency request was already rejected")

	// ErrAlreadyResponded means this party recorded its decision before.
	ErrAlreadyResponded = errors.New("this emergency request was already responded to")
)

type EmergencyInput struct {
	DoctorID uuid.UUID
	Date     string // YYYY-MM-DD
	Time     string // HH:MM
	Reason   string
}

// RequestEmergency files an out-of-band booking request that needs both a
// doctor and an admin approval before it becomes an appointment. Reason is
// optional.
func (s *Service) RequestEmergency(ctx context.Context, actor auth.Identity, in EmergencyInput) (*EmergencyRequest, error) {
	if actor.Role != user.RolePatient {
		return nil, ErrNotAllowed
	}
	if in.DoctorID == uuid.Nil || in.Date == "" || in.Time == "" {
		return nil, ErrMissingFields
	}
	if _, err := ParseDateTime(in.Date, in.Time); err != nil {
		return nil, ErrInvalidDateTime
	}

	if _, err := s.users.GetDoctorByID(ctx, in.DoctorID); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateEmergencyRequest(ctx, &EmergencyRequest{
		DoctorID:  in.DoctorID,
		PatientID: actor.UserID,
		Date:      in.Date,
		Time:      in.Time,
		Reason:    in.Reason,
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Emergency appointment requested for %s %s.", in.Date, in.Time)
	s.notifyDoctor(ctx, in.DoctorID, msg)
	s.notifier.NotifyAdmins(ctx, msg)
	return created, nil
}

// DoctorRespondEmergency records the assigned doctor's decision. A rejection
// ends the workflow; an approval hands the request to the admins.
func (s *Service) DoctorRespondEmergency(ctx context.Context, actor auth.Identity, id uuid.UUID, approve bool) (*EmergencyRequest, error) {
	req, err := s.repo.GetEmergencyRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != user.RoleDoctor {
		return nil, ErrNotAllowed
	}
	doc, err := s.users.GetDoctorByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if doc.ID != req.DoctorID {
		return nil, ErrNotOwner
	}
	if req.Rejected {
		return nil, ErrAlreadyRejected
	}
	if req.DoctorApproved {
		return nil, ErrAlreadyResponded
	}

	if !approve {
		updated, err := s.repo.MarkEmergencyRejected(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEmergencyNotFound) {
				return nil, ErrAlreadyRejected
			}
			return nil, err
		}
		s.notifier.NotifyUser(ctx, req.PatientID, "Doctor rejected your emergency request.")
		return updated, nil
	}

	// When the admin already signed off, the doctor's approval is the
	// second one and materializes the appointment.
	if req.AdminApproved {
		updated, _, err := s.confirmEmergency(ctx, req)
		return updated, err
	}

	updated, err := s.repo.MarkEmergencyDoctorApproved(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEmergencyNotFound) {
			return nil, ErrAlreadyResponded
		}
		return nil, err
	}
	s.notifier.NotifyUser(ctx, req.PatientID, "Doctor approved your emergency request. Await admin approval.")
	return updated, nil
}

// AdminRespondEmergency records the admin decision. When the doctor has
// already approved, the admin's approval is the second one and materializes
// the appointment; if the slot was taken meanwhile, neither the approval nor
// the appointment is recorded.
func (s *Service) AdminRespondEmergency(ctx context.Context, actor auth.Identity, id uuid.UUID, approve bool) (*EmergencyRequest, *Appointment, error) {
	if actor.Role != user.RoleAdmin {
		return nil, nil, ErrNotAllowed
	}

	req, err := s.repo.GetEmergencyRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Rejected {
		return nil, nil, ErrAlreadyRejected
	}
	if req.AdminApproved {
		return nil, nil, ErrAlreadyResponded
	}

	if !approve {
		updated, err := s.repo.MarkEmergencyRejected(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEmergencyNotFound) {
				return nil, nil, ErrAlreadyRejected
			}
			return nil, nil, err
		}
		s.notifier.NotifyUser(ctx, req.PatientID, "Admin rejected your emergency request.")
		return updated, nil, nil
	}

	if !req.DoctorApproved {
		updated, err := s.repo.MarkEmergencyAdminApproved(ctx, id)
		if err != nil {
			if errors.Is(err, ErrEmergencyNotFound) {
				return nil, nil, ErrAlreadyResponded
			}
			return nil, nil, err
		}
		s.notifier.NotifyUser(ctx, req.PatientID, "Admin approved your emergency request. Await doctor approval.")
		return updated, nil, nil
	}

	return s.confirmEmergency(ctx, req)
}

// confirmEmergency records the second approval and creates the appointment.
// The overlap check and the transactional confirm run under the doctor's
// lock; on conflict neither the approval nor the appointment is recorded, so
// the request stays one-approval-short and can be re-decided once the
// patient is rebooked.
func (s *Service) confirmEmergency(ctx context.Context, req *EmergencyRequest) (*EmergencyRequest, *Appointment, error) {
	start, err := ParseDateTime(req.Date, req.Time)
	if err != nil {
		return nil, nil, ErrInvalidDateTime
	}
	end := start.Add(s.slotDuration)

	var (
		updated *EmergencyRequest
		appt    *Appointment
	)
	err = s.locker.WithDoctorLock(ctx, req.DoctorID, func(ctx context.Context) error {
		if _, err := s.repo.FindOverlapping(ctx, req.DoctorID, start, end, nil); err == nil {
			return ErrSlotTaken
		} else if !errors.Is(err, ErrAppointmentNotFound) {
			return err
		}

		patientID := req.PatientID
		updated, appt, err = s.repo.ConfirmEmergency(ctx, req.ID, &Appointment{
			DoctorID:  req.DoctorID,
			PatientID: &patientID,
			StartTime: start,
			EndTime:   end,
			Reason:    req.Reason,
			Status:    StatusScheduled,
		})
		if errors.Is(err, ErrEmergencyNotFound) {
			return ErrAlreadyResponded
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	msg := fmt.Sprintf("Emergency appointment confirmed for %s.", start.Format(dateTimeLayout))
	s.notifier.NotifyUser(ctx, req.PatientID, msg)
	s.notifyDoctor(ctx, req.DoctorID, msg)
	return updated, appt, nil
}
