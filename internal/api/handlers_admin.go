package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/auth"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

func createDoctorHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctor, err := users.CreateDoctor(r.Context(), user.DoctorInput{
			Name:      req.Name,
			Email:     req.Email,
			Phone:     req.Phone,
			Password:  req.Password,
			Specialty: req.Specialty,
			Bio:       req.Bio,
			Location:  req.Location,
			Price:     req.Price,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": doctor.ID})
	}
}

func updateDoctorHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		var req UpdateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		err := users.UpdateDoctor(r.Context(), id, user.DoctorUpdate{
			Name:      req.Name,
			Email:     req.Email,
			Phone:     req.Phone,
			Password:  req.Password,
			Specialty: req.Specialty,
			Bio:       req.Bio,
			Location:  req.Location,
			Price:     req.Price,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteDoctorHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		if err := users.DeleteDoctor(r.Context(), id); err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listPatientsHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := users.ListPatients(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		out := make([]PatientResponse, 0, len(patients))
		for _, p := range patients {
			out = append(out, PatientResponse{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func updatePatientHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		var req UpdatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		err := users.UpdatePatient(r.Context(), id, user.PatientUpdate{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deletePatientHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		if err := users.DeletePatient(r.Context(), id); err != nil {
			handleDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// manualBookingHandler records a phone-in appointment taken at the front
// desk. The caller has no account; contact identifies them.
func manualBookingHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.FromContext(r.Context())

		var req ManualBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		appt, err := svc.BookManual(r.Context(), actor, appointment.ManualBookingInput{
			DoctorID: doctorID,
			Date:     req.Date,
			Time:     req.Time,
			Reason:   req.Reason,
			Contact:  req.Contact,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAllAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := svc.ListAll(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}

func analyticsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Analytics(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		byStatus := make(map[string]int, len(stats.ByStatus))
		for s, n := range stats.ByStatus {
			byStatus[string(s)] = n
		}

		perDoctor := make([]DoctorCountResponse, 0, len(stats.PerDoctor))
		for _, dc := range stats.PerDoctor {
			perDoctor = append(perDoctor, DoctorCountResponse{
				DoctorID:   dc.DoctorID,
				DoctorName: dc.DoctorName,
				Count:      dc.Count,
			})
		}

		writeJSON(w, http.StatusOK, AnalyticsResponse{
			Total:     stats.Total,
			ByStatus:  byStatus,
			PerDoctor: perDoctor,
		})
	}
}
