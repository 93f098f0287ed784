package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/auth"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

const testSecret = "test-secret"

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		JWTSecret: testSecret,
		Env:       "test",
		Version:   "test",
		Log:       zerolog.Nop(),
	})
}

func bearer(t *testing.T, role user.Role) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, auth.Identity{UserID: uuid.New(), Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A provided request ID is kept.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	handler := RecoverMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"outside schedule", appointment.ErrOutsideSchedule, http.StatusBadRequest},
		{"cancel notice", appointment.ErrCancelNotice, http.StatusBadRequest},
		{"invalid day", schedule.ErrInvalidDay, http.StatusBadRequest},
		{"not owner", appointment.ErrNotOwner, http.StatusForbidden},
		{"not slot owner", schedule.ErrNotSlotOwner, http.StatusForbidden},
		{"appointment not found", appointment.ErrAppointmentNotFound, http.StatusNotFound},
		{"doctor not found", user.ErrDoctorNotFound, http.StatusNotFound},
		{"slot taken", appointment.ErrSlotTaken, http.StatusConflict},
		{"reschedule pending", appointment.ErrReschedulePending, http.StatusConflict},
		{"already decided", appointment.ErrAlreadyDecided, http.StatusConflict},
		{"lock busy", redisclient.ErrLockNotAcquired, http.StatusConflict},
		{"email taken", user.ErrEmailTaken, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleDomainError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRouterRequiresToken(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterRoleGates(t *testing.T) {
	router := testRouter(t)

	// A patient cannot reach admin endpoints.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/analytics", nil)
	req.Header.Set("Authorization", bearer(t, user.RolePatient))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// A doctor cannot book patient appointments.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/appointments", nil)
	req.Header.Set("Authorization", bearer(t, user.RoleDoctor))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
