package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/notification"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleDomainError maps service errors onto HTTP statuses: validation and
// policy violations are 400, authorization failures 403, unknown resources
// 404, and state conflicts 409.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrMissingFields),
		errors.Is(err, appointment.ErrInvalidDateTime),
		errors.Is(err, appointment.ErrOutsideSchedule),
		errors.Is(err, appointment.ErrCancelNotice),
		errors.Is(err, schedule.ErrInvalidDay),
		errors.Is(err, schedule.ErrInvalidTime),
		errors.Is(err, schedule.ErrInvalidWindow),
		errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, user.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())

	case errors.Is(err, appointment.ErrNotOwner),
		errors.Is(err, appointment.ErrNotAllowed),
		errors.Is(err, schedule.ErrNotSlotOwner):
		writeError(w, http.StatusForbidden, "access_denied", err.Error())

	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, appointment.ErrRequestNotFound),
		errors.Is(err, appointment.ErrEmergencyNotFound),
		errors.Is(err, schedule.ErrSlotNotFound),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrReschedulePending):
		writeError(w, http.StatusConflict, "reschedule_pending", err.Error())
	case errors.Is(err, appointment.ErrNotScheduled),
		errors.Is(err, appointment.ErrAlreadyDecided),
		errors.Is(err, appointment.ErrAlreadyRejected),
		errors.Is(err, appointment.ErrAlreadyResponded),
		errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, "state_conflict", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "doctor_busy", "another booking for this doctor is in progress, please retry shortly")

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
