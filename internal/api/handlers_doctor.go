package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// listDoctorsHandler is public: it powers the booking page. available_today
// is a convenience flag derived from the resolver for the current date.
func listDoctorsHandler(users *user.Service, resolver *schedule.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := users.ListDoctors(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		today := time.Now().UTC().Format("2006-01-02")
		out := make([]DoctorResponse, 0, len(profiles))
		for i := range profiles {
			p := &profiles[i]
			slots, err := resolver.ResolveSlots(r.Context(), p.ID, today)
			if err != nil {
				handleDomainError(w, err)
				return
			}
			out = append(out, toDoctorResponse(p, len(slots) > 0))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func getDoctorHandler(users *user.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		profile, err := users.GetDoctorProfile(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(profile, false))
	}
}

// availabilityHandler returns the open slot start times for one doctor on one
// date. The result is advisory; booking re-checks under the doctor lock.
func availabilityHandler(resolver *schedule.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}

		slots, err := resolver.ResolveSlots(r.Context(), id, date)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{DoctorID: id, Date: date, Slots: slots})
	}
}
