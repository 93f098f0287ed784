package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/auth"
	"github.com/clinicore/clinic-scheduling/internal/config"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

// memRepo mirrors the storage-level guarantees of the Postgres repository:
// the partial unique constraints and the compare-and-set status updates.
type memRepo struct {
	appts       map[uuid.UUID]*Appointment
	reqs        map[uuid.UUID]*RescheduleRequest
	emergencies map[uuid.UUID]*EmergencyRequest
	reminded    map[uuid.UUID]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		appts:       make(map[uuid.UUID]*Appointment),
		reqs:        make(map[uuid.UUID]*RescheduleRequest),
		emergencies: make(map[uuid.UUID]*EmergencyRequest),
		reminded:    make(map[uuid.UUID]bool),
	}
}

func (m *memRepo) Create(_ context.Context, appt *Appointment) (*Appointment, error) {
	for _, a := range m.appts {
		if a.DoctorID == appt.DoctorID && a.Status == StatusScheduled && a.StartTime.Equal(appt.StartTime) {
			return nil, ErrSlotTaken
		}
	}
	cp := *appt
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	out := *a
	return &out, nil
}

func (m *memRepo) UpdateTimes(_ context.Context, id uuid.UUID, start, end time.Time, from, to Status) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.StartTime = start
	a.EndTime = end
	a.Status = to
	a.UpdatedAt = time.Now()
	out := *a
	return &out, nil
}

func (m *memRepo) FindOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*Appointment, error) {
	for _, a := range m.appts {
		if a.DoctorID != doctorID || a.Status != StatusScheduled {
			continue
		}
		if exclude != nil && a.ID == *exclude {
			continue
		}
		if a.StartTime.Before(end) && a.EndTime.After(start) {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepo) ListScheduledInRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status == StatusScheduled && !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) ClaimDueReminders(_ context.Context, deadline time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.Status == StatusScheduled && !m.reminded[a.ID] && a.StartTime.Before(deadline) {
			m.reminded[a.ID] = true
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Detail, error) {
	var out []Detail
	for _, a := range m.appts {
		if a.PatientID != nil && *a.PatientID == patientID {
			out = append(out, Detail{Appointment: *a})
		}
	}
	return out, nil
}

func (m *memRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]Detail, error) {
	var out []Detail
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			out = append(out, Detail{Appointment: *a})
		}
	}
	return out, nil
}

func (m *memRepo) ListAll(_ context.Context) ([]Detail, error) {
	var out []Detail
	for _, a := range m.appts {
		out = append(out, Detail{Appointment: *a})
	}
	return out, nil
}

func (m *memRepo) CreateRescheduleRequest(_ context.Context, req *RescheduleRequest) (*RescheduleRequest, error) {
	for _, r := range m.reqs {
		if r.AppointmentID == req.AppointmentID && r.Status == RequestPending {
			return nil, ErrReschedulePending
		}
	}
	cp := *req
	cp.ID = uuid.New()
	cp.Status = RequestPending
	m.reqs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) GetRescheduleRequest(_ context.Context, id uuid.UUID) (*RescheduleRequest, error) {
	r, ok := m.reqs[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	out := *r
	return &out, nil
}

func (m *memRepo) DecideRescheduleRequest(_ context.Context, id uuid.UUID, to RequestStatus, decidedBy uuid.UUID) (*RescheduleRequest, error) {
	r, ok := m.reqs[id]
	if !ok || r.Status != RequestPending {
		return nil, ErrRequestNotFound
	}
	r.Status = to
	r.DecidedBy = &decidedBy
	out := *r
	return &out, nil
}

func (m *memRepo) CreateEmergencyRequest(_ context.Context, req *EmergencyRequest) (*EmergencyRequest, error) {
	cp := *req
	cp.ID = uuid.New()
	m.emergencies[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) GetEmergencyRequest(_ context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	e, ok := m.emergencies[id]
	if !ok {
		return nil, ErrEmergencyNotFound
	}
	out := *e
	return &out, nil
}

func (m *memRepo) MarkEmergencyDoctorApproved(_ context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	e, ok := m.emergencies[id]
	if !ok || e.Rejected || e.DoctorApproved {
		return nil, ErrEmergencyNotFound
	}
	e.DoctorApproved = true
	out := *e
	return &out, nil
}

func (m *memRepo) MarkEmergencyAdminApproved(_ context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	e, ok := m.emergencies[id]
	if !ok || e.Rejected || e.AdminApproved {
		return nil, ErrEmergencyNotFound
	}
	e.AdminApproved = true
	out := *e
	return &out, nil
}

func (m *memRepo) MarkEmergencyRejected(_ context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	e, ok := m.emergencies[id]
	if !ok || e.Rejected {
		return nil, ErrEmergencyNotFound
	}
	e.Rejected = true
	out := *e
	return &out, nil
}

func (m *memRepo) ConfirmEmergency(ctx context.Context, id uuid.UUID, appt *Appointment) (*EmergencyRequest, *Appointment, error) {
	e, ok := m.emergencies[id]
	if !ok || e.Rejected || e.DoctorApproved == e.AdminApproved {
		return nil, nil, ErrEmergencyNotFound
	}
	created, err := m.Create(ctx, appt)
	if err != nil {
		return nil, nil, err
	}
	e.DoctorApproved = true
	e.AdminApproved = true
	out := *e
	return &out, created, nil
}

func (m *memRepo) CountByStatus(_ context.Context) (map[Status]int, error) {
	out := make(map[Status]int)
	for _, a := range m.appts {
		out[a.Status]++
	}
	return out, nil
}

func (m *memRepo) CountPerDoctor(_ context.Context) ([]DoctorCount, error) {
	counts := make(map[uuid.UUID]int)
	for _, a := range m.appts {
		counts[a.DoctorID]++
	}
	var out []DoctorCount
	for id, n := range counts {
		out = append(out, DoctorCount{DoctorID: id, Count: n})
	}
	return out, nil
}

type fakeSchedules struct {
	within func(start, end time.Time) bool
}

func (f *fakeSchedules) WithinWorkingHours(_ context.Context, _ uuid.UUID, start, end time.Time) (bool, error) {
	if f.within == nil {
		return true, nil
	}
	return f.within(start, end), nil
}

type fakeDirectory struct {
	doctors map[uuid.UUID]*user.Doctor
}

func (f *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return &user.User{ID: id}, nil
}

func (f *fakeDirectory) GetDoctorByID(_ context.Context, id uuid.UUID) (*user.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, user.ErrDoctorNotFound
	}
	return d, nil
}

func (f *fakeDirectory) GetDoctorByUserID(_ context.Context, userID uuid.UUID) (*user.Doctor, error) {
	for _, d := range f.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, user.ErrDoctorNotFound
}

type recordingNotifier struct {
	userMsgs  map[uuid.UUID][]string
	adminMsgs []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{userMsgs: make(map[uuid.UUID][]string)}
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID uuid.UUID, message string) {
	n.userMsgs[userID] = append(n.userMsgs[userID], message)
}

func (n *recordingNotifier) NotifyAdmins(_ context.Context, message string) {
	n.adminMsgs = append(n.adminMsgs, message)
}

type passLocker struct{}

func (passLocker) WithDoctorLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	notifier *recordingNotifier

	doctorID     uuid.UUID
	doctorUserID uuid.UUID
	patientID    uuid.UUID
	adminID      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doctorID := uuid.New()
	doctorUserID := uuid.New()

	repo := newMemRepo()
	notifier := newRecordingNotifier()
	dir := &fakeDirectory{doctors: map[uuid.UUID]*user.Doctor{
		doctorID: {ID: doctorID, UserID: doctorUserID, Specialty: "cardiology"},
	}}

	svc := NewService(repo, &fakeSchedules{}, dir, notifier, passLocker{}, config.Config{
		SlotDuration: time.Hour,
		CancelNotice: 24 * time.Hour,
	}, zerolog.Nop())

	return &fixture{
		svc:          svc,
		repo:         repo,
		notifier:     notifier,
		doctorID:     doctorID,
		doctorUserID: doctorUserID,
		patientID:    uuid.New(),
		adminID:      uuid.New(),
	}
}

func (f *fixture) patient() auth.Identity {
	return auth.Identity{UserID: f.patientID, Role: user.RolePatient}
}

func (f *fixture) doctor() auth.Identity {
	return auth.Identity{UserID: f.doctorUserID, Role: user.RoleDoctor}
}

func (f *fixture) admin() auth.Identity {
	return auth.Identity{UserID: f.adminID, Role: user.RoleAdmin}
}

func farFuture(t *testing.T) (string, string, time.Time) {
	t.Helper()
	day := time.Now().UTC().AddDate(0, 0, 14).Truncate(24 * time.Hour).Add(10 * time.Hour)
	return day.Format("2006-01-02"), day.Format("15:04"), day
}

func TestBookCreatesScheduledAppointment(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID,
		Date:     date,
		Time:     clock,
		Reason:   "checkup",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, appt.Status)
	assert.True(t, appt.StartTime.Equal(start))
	assert.True(t, appt.EndTime.Equal(start.Add(time.Hour)))
	require.NotNil(t, appt.PatientID)
	assert.Equal(t, f.patientID, *appt.PatientID)

	assert.Len(t, f.notifier.userMsgs[f.patientID], 1)
	assert.Len(t, f.notifier.userMsgs[f.doctorUserID], 1)
	assert.Len(t, f.notifier.adminMsgs, 1)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	_, err := f.svc.Book(context.Background(), f.patient(), BookingInput{DoctorID: f.doctorID, Date: date})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: "not-a-date", Time: clock, Reason: "x",
	})
	assert.ErrorIs(t, err, ErrInvalidDateTime)

	_, err = f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: uuid.New(), Date: date, Time: clock, Reason: "x",
	})
	assert.ErrorIs(t, err, user.ErrDoctorNotFound)
}

func TestBookWithoutReason(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock,
	})
	require.NoError(t, err)
	assert.Empty(t, appt.Reason)
	assert.Equal(t, StatusScheduled, appt.Status)

	_, err = f.svc.RequestEmergency(context.Background(), f.patient(), EmergencyInput{
		DoctorID: f.doctorID, Date: date, Time: clock,
	})
	require.NoError(t, err)
}

func TestBookOutsideWorkingHours(t *testing.T) {
	f := newFixture(t)
	f.svc.schedules = &fakeSchedules{within: func(time.Time, time.Time) bool { return false }}
	date, clock, _ := farFuture(t)

	_, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	assert.ErrorIs(t, err, ErrOutsideSchedule)
}

func TestBookRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	in := BookingInput{DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup"}
	_, err := f.svc.Book(context.Background(), f.patient(), in)
	require.NoError(t, err)

	other := auth.Identity{UserID: uuid.New(), Role: user.RolePatient}
	_, err = f.svc.Book(context.Background(), other, in)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookManual(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	appt, err := f.svc.BookManual(context.Background(), f.admin(), ManualBookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "walk-in", Contact: "+1 555 0100",
	})
	require.NoError(t, err)
	assert.Nil(t, appt.PatientID)
	require.NotNil(t, appt.ManualContact)
	assert.Equal(t, "+1 555 0100", *appt.ManualContact)

	_, err = f.svc.BookManual(context.Background(), f.patient(), ManualBookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "walk-in", Contact: "+1 555 0100",
	})
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestCancelOwnershipAndNotice(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	other := auth.Identity{UserID: uuid.New(), Role: user.RolePatient}
	_, err = f.svc.Cancel(context.Background(), other, appt.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	// Inside the notice window the patient is refused but the doctor is not.
	f.svc.now = func() time.Time { return start.Add(-10 * time.Hour) }
	_, err = f.svc.Cancel(context.Background(), f.patient(), appt.ID)
	assert.ErrorIs(t, err, ErrCancelNotice)

	f.svc.now = func() time.Time { return start.Add(-30 * time.Hour) }
	cancelled, err := f.svc.Cancel(context.Background(), f.patient(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(context.Background(), f.patient(), appt.ID)
	assert.ErrorIs(t, err, ErrNotScheduled)
}

func TestCancelByDoctorIgnoresNotice(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(-time.Hour) }
	cancelled, err := f.svc.Cancel(context.Background(), f.doctor(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), f.patient(), appt.ID)
	assert.ErrorIs(t, err, ErrNotAllowed)

	patientBefore := len(f.notifier.userMsgs[f.patientID])
	doctorBefore := len(f.notifier.userMsgs[f.doctorUserID])
	adminsBefore := len(f.notifier.adminMsgs)

	done, err := f.svc.Complete(context.Background(), f.doctor(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	// Completion fans out to all parties like any other transition.
	assert.Greater(t, len(f.notifier.userMsgs[f.patientID]), patientBefore)
	assert.Greater(t, len(f.notifier.userMsgs[f.doctorUserID]), doctorBefore)
	assert.Greater(t, len(f.notifier.adminMsgs), adminsBefore)

	_, err = f.svc.Complete(context.Background(), f.doctor(), appt.ID)
	assert.ErrorIs(t, err, ErrNotScheduled)
}

func TestMoveDirect(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	_, err = f.svc.MoveDirect(context.Background(), f.patient(), appt.ID, date, "12:00")
	assert.ErrorIs(t, err, ErrNotAllowed)

	newStart := start.Add(2 * time.Hour)
	moved, err := f.svc.MoveDirect(context.Background(), f.doctor(), appt.ID, date, newStart.Format("15:04"))
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(newStart))
	assert.Equal(t, StatusScheduled, moved.Status)

	// A second appointment cannot be moved onto the first.
	other, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: start.Add(4 * time.Hour).Format("15:04"), Reason: "followup",
	})
	require.NoError(t, err)

	_, err = f.svc.MoveDirect(context.Background(), f.doctor(), other.ID, date, newStart.Format("15:04"))
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestRescheduleFlow(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	newStart := start.Add(3 * time.Hour)
	req, err := f.svc.ProposeReschedule(context.Background(), f.patient(), appt.ID, RescheduleInput{
		Date: date, Time: newStart.Format("15:04"),
	})
	require.NoError(t, err)
	assert.Equal(t, RequestPending, req.Status)

	parked, err := f.repo.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingReschedule, parked.Status)

	_, err = f.svc.ProposeReschedule(context.Background(), f.patient(), appt.ID, RescheduleInput{
		Date: date, Time: newStart.Format("15:04"),
	})
	assert.ErrorIs(t, err, ErrReschedulePending)

	decided, err := f.svc.ApproveReschedule(context.Background(), f.doctor(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, decided.Status)

	moved, err := f.repo.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, moved.Status)
	assert.True(t, moved.StartTime.Equal(newStart))

	_, err = f.svc.ApproveReschedule(context.Background(), f.doctor(), req.ID)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestApproveRescheduleLateConflict(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	newStart := start.Add(3 * time.Hour)
	req, err := f.svc.ProposeReschedule(context.Background(), f.patient(), appt.ID, RescheduleInput{
		Date: date, Time: newStart.Format("15:04"),
	})
	require.NoError(t, err)

	// Another patient books the proposed time before the decision.
	other := auth.Identity{UserID: uuid.New(), Role: user.RolePatient}
	_, err = f.svc.Book(context.Background(), other, BookingInput{
		DoctorID: f.doctorID, Date: date, Time: newStart.Format("15:04"), Reason: "urgent",
	})
	require.NoError(t, err)

	_, err = f.svc.ApproveReschedule(context.Background(), f.doctor(), req.ID)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// The request is still pending and can be rejected instead.
	doctorBefore := len(f.notifier.userMsgs[f.doctorUserID])
	adminsBefore := len(f.notifier.adminMsgs)

	rejected, err := f.svc.RejectReschedule(context.Background(), f.doctor(), req.ID, "slot no longer free")
	require.NoError(t, err)
	assert.Equal(t, RequestRejected, rejected.Status)

	// Rejection fans out to the doctor and admins, not just the patient.
	assert.Greater(t, len(f.notifier.userMsgs[f.doctorUserID]), doctorBefore)
	assert.Greater(t, len(f.notifier.adminMsgs), adminsBefore)

	restored, err := f.repo.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, restored.Status)
	assert.True(t, restored.StartTime.Equal(start))

	msgs := f.notifier.userMsgs[f.patientID]
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "slot no longer free")
}

func TestRescheduleProposalGuards(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	other := auth.Identity{UserID: uuid.New(), Role: user.RolePatient}
	_, err = f.svc.ProposeReschedule(context.Background(), other, appt.ID, RescheduleInput{Date: date, Time: "12:00"})
	assert.ErrorIs(t, err, ErrNotOwner)

	f.svc.now = func() time.Time { return start.Add(-10 * time.Hour) }
	_, err = f.svc.ProposeReschedule(context.Background(), f.patient(), appt.ID, RescheduleInput{Date: date, Time: "12:00"})
	assert.ErrorIs(t, err, ErrCancelNotice)
}

func TestEmergencyFullApproval(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	req, err := f.svc.RequestEmergency(context.Background(), f.patient(), EmergencyInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "severe pain",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending_emergency", req.State())

	afterDoctor, err := f.svc.DoctorRespondEmergency(context.Background(), f.doctor(), req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "doctor_approved", afterDoctor.State())

	confirmed, appt, err := f.svc.AdminRespondEmergency(context.Background(), f.admin(), req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "confirmed_emergency", confirmed.State())
	require.NotNil(t, appt)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.True(t, appt.StartTime.Equal(start))
	require.NotNil(t, appt.PatientID)
	assert.Equal(t, f.patientID, *appt.PatientID)
}

func TestEmergencyAdminApprovesFirst(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	req, err := f.svc.RequestEmergency(context.Background(), f.patient(), EmergencyInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "severe pain",
	})
	require.NoError(t, err)

	// Admin first: no appointment yet, the request waits on the doctor.
	afterAdmin, appt, err := f.svc.AdminRespondEmergency(context.Background(), f.admin(), req.ID, true)
	require.NoError(t, err)
	assert.Nil(t, appt)
	assert.Equal(t, "admin_approved", afterAdmin.State())

	// The doctor's approval is the second one and materializes.
	confirmed, err := f.svc.DoctorRespondEmergency(context.Background(), f.doctor(), req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "confirmed_emergency", confirmed.State())

	booked, err := f.repo.FindOverlapping(context.Background(), f.doctorID, start, start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, booked.Status)
	require.NotNil(t, booked.PatientID)
	assert.Equal(t, f.patientID, *booked.PatientID)
}

func TestEmergencyRejectionIsSticky(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	req, err := f.svc.RequestEmergency(context.Background(), f.patient(), EmergencyInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "severe pain",
	})
	require.NoError(t, err)

	rejected, err := f.svc.DoctorRespondEmergency(context.Background(), f.doctor(), req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "rejected_emergency", rejected.State())

	_, _, err = f.svc.AdminRespondEmergency(context.Background(), f.admin(), req.ID, true)
	assert.ErrorIs(t, err, ErrAlreadyRejected)

	_, err = f.svc.DoctorRespondEmergency(context.Background(), f.doctor(), req.ID, true)
	assert.ErrorIs(t, err, ErrAlreadyRejected)
}

func TestEmergencyLateConflictDoesNotRecordApproval(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	req, err := f.svc.RequestEmergency(context.Background(), f.patient(), EmergencyInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "severe pain",
	})
	require.NoError(t, err)

	_, err = f.svc.DoctorRespondEmergency(context.Background(), f.doctor(), req.ID, true)
	require.NoError(t, err)

	// The slot is taken by a regular booking before the admin decides.
	other := auth.Identity{UserID: uuid.New(), Role: user.RolePatient}
	_, err = f.svc.Book(context.Background(), other, BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	_, _, err = f.svc.AdminRespondEmergency(context.Background(), f.admin(), req.ID, true)
	assert.ErrorIs(t, err, ErrSlotTaken)

	current, err := f.repo.GetEmergencyRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.False(t, current.AdminApproved)
}

func TestRemindDueBy(t *testing.T) {
	f := newFixture(t)
	date, clock, start := farFuture(t)

	_, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)

	_, err = f.svc.BookManual(context.Background(), f.admin(), ManualBookingInput{
		DoctorID: f.doctorID, Date: date, Time: start.Add(2 * time.Hour).Format("15:04"), Reason: "walk-in", Contact: "+1 555 0100",
	})
	require.NoError(t, err)

	f.notifier.userMsgs = make(map[uuid.UUID][]string)
	deadline := start.Add(3 * time.Hour)
	sent, err := f.svc.RemindDueBy(context.Background(), deadline)
	require.NoError(t, err)

	// Phone-in bookings have no account to notify.
	assert.Equal(t, 1, sent)
	assert.Len(t, f.notifier.userMsgs[f.patientID], 1)

	// The claim is recorded in storage, so a re-run (or a restarted
	// worker) sends nothing twice.
	sent, err = f.svc.RemindDueBy(context.Background(), deadline)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, f.notifier.userMsgs[f.patientID], 1)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	date, clock, _ := farFuture(t)

	appt, err := f.svc.Book(context.Background(), f.patient(), BookingInput{
		DoctorID: f.doctorID, Date: date, Time: clock, Reason: "checkup",
	})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), f.doctor(), appt.ID)
	require.NoError(t, err)

	stats, err := f.svc.Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	require.Len(t, stats.PerDoctor, 1)
	assert.Equal(t, f.doctorID, stats.PerDoctor[0].DoctorID)
}
