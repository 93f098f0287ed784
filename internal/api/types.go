package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/notification"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
}

type ManualBookingRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
	Contact  string `json:"contact"`
}

type RescheduleAppointmentRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

type EmergencyCreateRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
}

type EmergencyDecisionRequest struct {
	Approve bool `json:"approve"`
}

type ScheduleSlotRequest struct {
	DoctorID  string `json:"doctor_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Blocked   bool   `json:"blocked"`
}

type CreateDoctorRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	Password  string  `json:"password"`
	Specialty string  `json:"specialty"`
	Bio       *string `json:"bio,omitempty"`
	Location  *string `json:"location,omitempty"`
	Price     *int    `json:"price,omitempty"`
}

type UpdateDoctorRequest struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Password  *string `json:"password,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Location  *string `json:"location,omitempty"`
	Price     *int    `json:"price,omitempty"`
}

type UpdatePatientRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Password *string `json:"password,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID  `json:"id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	PatientID     *uuid.UUID `json:"patient_id,omitempty"`
	ManualContact *string    `json:"manual_contact,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		ManualContact: a.ManualContact,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Reason:        a.Reason,
		Status:        string(a.Status),
	}
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	PatientName     string `json:"patient_name"`
	DoctorName      string `json:"doctor_name"`
	DoctorSpecialty string `json:"doctor_specialty"`
}

func toDetailResponses(details []appointment.Detail) []AppointmentDetailResponse {
	out := make([]AppointmentDetailResponse, 0, len(details))
	for i := range details {
		d := &details[i]
		out = append(out, AppointmentDetailResponse{
			AppointmentResponse: toAppointmentResponse(&d.Appointment),
			PatientName:         d.PatientName,
			DoctorName:          d.DoctorName,
			DoctorSpecialty:     d.DoctorSpecialty,
		})
	}
	return out
}

type RescheduleRequestResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	NewStartTime  time.Time  `json:"new_start_time"`
	NewEndTime    time.Time  `json:"new_end_time"`
	Status        string     `json:"status"`
	DecidedBy     *uuid.UUID `json:"decided_by,omitempty"`
}

func toRescheduleResponse(r *appointment.RescheduleRequest) RescheduleRequestResponse {
	return RescheduleRequestResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		NewStartTime:  r.NewStartTime,
		NewEndTime:    r.NewEndTime,
		Status:        string(r.Status),
		DecidedBy:     r.DecidedBy,
	}
}

type EmergencyResponse struct {
	ID          uuid.UUID            `json:"id"`
	DoctorID    uuid.UUID            `json:"doctor_id"`
	PatientID   uuid.UUID            `json:"patient_id"`
	Date        string               `json:"date"`
	Time        string               `json:"time"`
	Reason      string               `json:"reason"`
	State       string               `json:"state"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}

func toEmergencyResponse(e *appointment.EmergencyRequest, appt *appointment.Appointment) EmergencyResponse {
	resp := EmergencyResponse{
		ID:        e.ID,
		DoctorID:  e.DoctorID,
		PatientID: e.PatientID,
		Date:      e.Date,
		Time:      e.Time,
		Reason:    e.Reason,
		State:     e.State(),
	}
	if appt != nil {
		a := toAppointmentResponse(appt)
		resp.Appointment = &a
	}
	return resp
}

type ScheduleSlotResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Blocked   bool      `json:"blocked"`
}

func toSlotResponse(s *schedule.WeeklySlot) ScheduleSlotResponse {
	return ScheduleSlotResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		DayOfWeek: s.DayOfWeek,
		StartTime: s.Start,
		EndTime:   s.End,
		Blocked:   s.Blocked,
	}
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
}

type DoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          *string   `json:"phone,omitempty"`
	Specialty      string    `json:"specialty"`
	Bio            *string   `json:"bio,omitempty"`
	Location       *string   `json:"location,omitempty"`
	Price          *int      `json:"price,omitempty"`
	AvailableToday bool      `json:"available_today"`
}

func toDoctorResponse(p *user.DoctorProfile, availableToday bool) DoctorResponse {
	return DoctorResponse{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Specialty:      p.Specialty,
		Bio:            p.Bio,
		Location:       p.Location,
		Price:          p.Price,
		AvailableToday: availableToday,
	}
}

type PatientResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone *string   `json:"phone,omitempty"`
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponses(ns []notification.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

type AnalyticsResponse struct {
	Total     int                   `json:"total"`
	ByStatus  map[string]int        `json:"by_status"`
	PerDoctor []DoctorCountResponse `json:"per_doctor"`
}

type DoctorCountResponse struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Count      int       `json:"count"`
}
