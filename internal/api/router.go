package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/auth"
	"github.com/clinicore/clinic-scheduling/internal/notification"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Users         *user.Service
	Registry      *schedule.Registry
	Resolver      *schedule.Resolver
	Notifications notification.Repository

	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	Env       string
	Version   string
	Log       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(RecoverMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public booking-page endpoints.
	r.Get("/doctors", listDoctorsHandler(cfg.Users, cfg.Resolver))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Users))
	r.Get("/doctors/{id}/availability", availabilityHandler(cfg.Resolver))

	// Everything below needs a verified identity.
	r.Group(func(r chi.Router) {
		r.Use(auth.Verify(cfg.JWTSecret))

		r.With(auth.Require(user.RoleDoctor, user.RoleAdmin)).
			Get("/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Appointments))
		r.Get("/doctors/{id}/schedules", listScheduleSlotsHandler(cfg.Registry))

		r.With(auth.Require(user.RoleDoctor, user.RoleAdmin)).
			Post("/schedules", addScheduleSlotHandler(cfg.Registry))
		r.With(auth.Require(user.RoleDoctor, user.RoleAdmin)).
			Delete("/schedules/{id}", removeScheduleSlotHandler(cfg.Registry))

		r.With(auth.Require(user.RolePatient)).
			Post("/appointments", bookAppointmentHandler(cfg.Appointments))
		r.With(auth.Require(user.RolePatient)).
			Get("/appointments", listMyAppointmentsHandler(cfg.Appointments))

		// Ownership and role rules beyond the coarse role gate live in the
		// service layer.
		r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Appointments))
		r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Appointments))
		r.With(auth.Require(user.RoleDoctor, user.RoleAdmin)).
			Put("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))

		r.With(auth.Require(user.RoleDoctor, user.RoleAdmin)).
			Post("/reschedule-requests/{id}/approve", approveRescheduleHandler(cfg.Appointments))
		r.With(auth.Require(user.RoleDoctor, user.RoleAdmin)).
			Post("/reschedule-requests/{id}/reject", rejectRescheduleHandler(cfg.Appointments))

		r.With(auth.Require(user.RolePatient)).
			Post("/emergency", createEmergencyHandler(cfg.Appointments))
		r.With(auth.Require(user.RoleDoctor)).
			Put("/emergency/{id}/doctor", doctorEmergencyDecisionHandler(cfg.Appointments))
		r.With(auth.Require(user.RoleAdmin)).
			Put("/emergency/{id}/admin", adminEmergencyDecisionHandler(cfg.Appointments))

		r.Get("/notifications", listNotificationsHandler(cfg.Notifications))
		r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))
		r.Post("/notifications/read-all", markAllNotificationsReadHandler(cfg.Notifications))

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Require(user.RoleAdmin))

			r.Post("/doctors", createDoctorHandler(cfg.Users))
			r.Put("/doctors/{id}", updateDoctorHandler(cfg.Users))
			r.Delete("/doctors/{id}", deleteDoctorHandler(cfg.Users))

			r.Get("/patients", listPatientsHandler(cfg.Users))
			r.Put("/patients/{id}", updatePatientHandler(cfg.Users))
			r.Delete("/patients/{id}", deletePatientHandler(cfg.Users))

			r.Get("/appointments", listAllAppointmentsHandler(cfg.Appointments))
			r.Post("/appointments/manual", manualBookingHandler(cfg.Appointments))

			r.Get("/analytics", analyticsHandler(cfg.Appointments))
		})
	})

	return r
}
