package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const apptColumns = `id, doctor_id, patient_id, manual_contact, start_time, end_time, reason, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.ManualContact,
		&a.StartTime,
		&a.EndTime,
		&a.Reason,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanRescheduleRequest(row pgx.Row) (*RescheduleRequest, error) {
	var r RescheduleRequest

	err := row.Scan(
		&r.ID,
		&r.AppointmentID,
		&r.PatientID,
		&r.DoctorID,
		&r.NewStartTime,
		&r.NewEndTime,
		&r.Status,
		&r.DecidedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	return &r, nil
}

func scanEmergencyRequest(row pgx.Row) (*EmergencyRequest, error) {
	var e EmergencyRequest

	err := row.Scan(
		&e.ID,
		&e.DoctorID,
		&e.PatientID,
		&e.Date,
		&e.Time,
		&e.Reason,
		&e.DoctorApproved,
		&e.AdminApproved,
		&e.Rejected,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmergencyNotFound
		}
		return nil, err
	}

	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Appointments

func (r *PgRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, manual_contact, start_time, end_time, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+apptColumns+`
	`, id, appt.DoctorID, appt.PatientID, appt.ManualContact, appt.StartTime, appt.EndTime, appt.Reason, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $2,
		    end_time = $3,
		    status = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $5
		RETURNING `+apptColumns+`
	`, id, start, end, to, from)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) FindOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'scheduled'
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		LIMIT 1
	`, doctorID, start, end, exclude)

	return scanAppointment(row)
}

func (r *PgRepository) ListScheduledInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'scheduled'
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ClaimDueReminders(ctx context.Context, deadline time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE appointments
		SET reminder_sent = true,
		    updated_at = now()
		WHERE status = 'scheduled'
		  AND NOT reminder_sent
		  AND start_time >= now()
		  AND start_time < $1
		RETURNING `+apptColumns+`
	`, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

const detailQuery = `
	SELECT a.id, a.doctor_id, a.patient_id, a.manual_contact, a.start_time, a.end_time, a.reason, a.status, a.created_at, a.updated_at,
	       COALESCE(p.name, a.manual_contact, ''),
	       du.name,
	       d.specialty
	FROM appointments a
	LEFT JOIN users p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users du ON du.id = d.user_id
`

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail

	err := row.Scan(
		&d.ID,
		&d.DoctorID,
		&d.PatientID,
		&d.ManualContact,
		&d.StartTime,
		&d.EndTime,
		&d.Reason,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PatientName,
		&d.DoctorName,
		&d.DoctorSpecialty,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &d, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.start_time
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.doctor_id = $1
		ORDER BY a.start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListAll(ctx context.Context) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		ORDER BY a.start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]Detail, error) {
	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// Reschedule requests

const requestColumns = `id, appointment_id, patient_id, doctor_id, new_start_time, new_end_time, status, decided_by, created_at, updated_at`

func (r *PgRepository) CreateRescheduleRequest(ctx context.Context, req *RescheduleRequest) (*RescheduleRequest, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO reschedule_requests (id, appointment_id, patient_id, doctor_id, new_start_time, new_end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', now(), now())
		RETURNING `+requestColumns+`
	`, id, req.AppointmentID, req.PatientID, req.DoctorID, req.NewStartTime, req.NewEndTime)

	created, err := scanRescheduleRequest(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrReschedulePending
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetRescheduleRequest(ctx context.Context, id uuid.UUID) (*RescheduleRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM reschedule_requests
		WHERE id = $1
	`, id)
	return scanRescheduleRequest(row)
}

func (r *PgRepository) DecideRescheduleRequest(ctx context.Context, id uuid.UUID, to RequestStatus, decidedBy uuid.UUID) (*RescheduleRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reschedule_requests
		SET status = $2,
		    decided_by = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+requestColumns+`
	`, id, to, decidedBy)

	return scanRescheduleRequest(row)
}

// Emergency requests

const emergencyColumns = `id, doctor_id, patient_id, date, time, reason, doctor_approved, admin_approved, rejected, created_at, updated_at`

func (r *PgRepository) CreateEmergencyRequest(ctx context.Context, req *EmergencyRequest) (*EmergencyRequest, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO emergency_requests (id, doctor_id, patient_id, date, time, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+emergencyColumns+`
	`, id, req.DoctorID, req.PatientID, req.Date, req.Time, req.Reason)

	return scanEmergencyRequest(row)
}

func (r *PgRepository) GetEmergencyRequest(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+emergencyColumns+`
		FROM emergency_requests
		WHERE id = $1
	`, id)
	return scanEmergencyRequest(row)
}

func (r *PgRepository) MarkEmergencyDoctorApproved(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE emergency_requests
		SET doctor_approved = true,
		    updated_at = now()
		WHERE id = $1
		  AND NOT rejected
		  AND NOT doctor_approved
		RETURNING `+emergencyColumns+`
	`, id)
	return scanEmergencyRequest(row)
}

func (r *PgRepository) MarkEmergencyAdminApproved(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE emergency_requests
		SET admin_approved = true,
		    updated_at = now()
		WHERE id = $1
		  AND NOT rejected
		  AND NOT admin_approved
		RETURNING `+emergencyColumns+`
	`, id)
	return scanEmergencyRequest(row)
}

func (r *PgRepository) MarkEmergencyRejected(ctx context.Context, id uuid.UUID) (*EmergencyRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE emergency_requests
		SET rejected = true,
		    updated_at = now()
		WHERE id = $1
		  AND NOT rejected
		RETURNING `+emergencyColumns+`
	`, id)
	return scanEmergencyRequest(row)
}

func (r *PgRepository) ConfirmEmergency(ctx context.Context, id uuid.UUID, appt *Appointment) (*EmergencyRequest, *Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin confirm emergency: %w", err)
	}
	defer tx.Rollback(ctx)

	// Exactly one approval must already be present; confirming sets both.
	row := tx.QueryRow(ctx, `
		UPDATE emergency_requests
		SET doctor_approved = true,
		    admin_approved = true,
		    updated_at = now()
		WHERE id = $1
		  AND NOT rejected
		  AND (doctor_approved OR admin_approved)
		  AND NOT (doctor_approved AND admin_approved)
		RETURNING `+emergencyColumns+`
	`, id)
	updated, err := scanEmergencyRequest(row)
	if err != nil {
		return nil, nil, err
	}

	apptID := uuid.New()
	row = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, manual_contact, start_time, end_time, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+apptColumns+`
	`, apptID, appt.DoctorID, appt.PatientID, appt.ManualContact, appt.StartTime, appt.EndTime, appt.Reason, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrSlotTaken
		}
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit confirm emergency: %w", err)
	}

	return updated, created, nil
}

// Analytics

func (r *PgRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM appointments
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}
	return result, rows.Err()
}

func (r *PgRepository) CountPerDoctor(ctx context.Context) ([]DoctorCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.doctor_id, du.name, COUNT(*)
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		JOIN users du ON du.id = d.user_id
		GROUP BY a.doctor_id, du.name
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorCount
	for rows.Next() {
		var dc DoctorCount
		if err := rows.Scan(&dc.DoctorID, &dc.DoctorName, &dc.Count); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}
