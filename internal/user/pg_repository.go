package user

import (
	"context"
	"errors"
	"fmt"

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

const userColumns = `id, name, email, phone, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Specialty,
		&d.Bio,
		&d.Location,
		&d.Price,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *PgRepository) Create(ctx context.Context, u *User) (*User, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, phone, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+userColumns+`
	`, id, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) Update(ctx context.Context, u *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $2,
		    email = $3,
		    phone = $4,
		    password_hash = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, u.ID, u.Name, u.Email, u.Phone, u.PasswordHash)

	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) ListByRole(ctx context.Context, role Role) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = $1
		ORDER BY name
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}

	return result, rows.Err()
}

const doctorColumns = `id, user_id, specialty, bio, location, price, created_at, updated_at`

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE user_id = $1
	`, userID)
	return scanDoctor(row)
}

func scanDoctorProfile(row pgx.Row) (*DoctorProfile, error) {
	var p DoctorProfile

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Specialty,
		&p.Bio,
		&p.Location,
		&p.Price,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Name,
		&p.Email,
		&p.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &p, nil
}

const doctorProfileQuery = `
	SELECT d.id, d.user_id, d.specialty, d.bio, d.location, d.price, d.created_at, d.updated_at,
	       u.name, u.email, u.phone
	FROM doctors d
	JOIN users u ON u.id = d.user_id
`

func (r *PgRepository) GetDoctorProfile(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	row := r.pool.QueryRow(ctx, doctorProfileQuery+` WHERE d.id = $1`, id)
	return scanDoctorProfile(row)
}

func (r *PgRepository) ListDoctorProfiles(ctx context.Context) ([]DoctorProfile, error) {
	rows, err := r.pool.Query(ctx, doctorProfileQuery+` ORDER BY u.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorProfile
	for rows.Next() {
		p, err := scanDoctorProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	return result, rows.Err()
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, specialty, bio, location, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+doctorColumns+`
	`, id, d.UserID, d.Specialty, d.Bio, d.Location, d.Price)

	return scanDoctor(row)
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET specialty = $2,
		    bio = $3,
		    location = $4,
		    price = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+doctorColumns+`
	`, d.ID, d.Specialty, d.Bio, d.Location, d.Price)

	return scanDoctor(row)
}

func (r *PgRepository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	doctor, err := r.GetDoctorByID(ctx, id)
	if err != nil {
		return err
	}

	// Deleting the user row cascades to the doctor, its schedules,
	// appointments and open requests.
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, doctor.UserID)
	if err != nil {
		return fmt.Errorf("delete doctor user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}
