package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/user"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	// One hash shared across seeded accounts keeps the run fast; these are
	// throwaway dev credentials.
	hash, err := user.HashPassword("password123")
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	if err := seedAdmins(context.Background(), pool, hash, 2); err != nil {
		log.Fatalf("seed admins: %v", err)
	}
	doctorIDs, err := seedDoctors(context.Background(), pool, hash, 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}
	if err := seedPatients(context.Background(), pool, hash, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedAdmins(ctx context.Context, pool *pgxpool.Pool, hash string, count int) error {
	log.Printf("seeding %d admins", count)

	for i := 0; i < count; i++ {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'admin', now(), now())
		`, uuid.New(), gofakeit.Name(), gofakeit.Email(), hash)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, hash string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		userID := uuid.New()
		doctorID := uuid.New()
		phone := gofakeit.Phone()

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, phone, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'doctor', now(), now())
		`, userID, gofakeit.Name(), gofakeit.Email(), phone, hash)
		if err != nil {
			return nil, err
		}

		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		price := gofakeit.Number(50, 300)
		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, specialty, location, price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, doctorID, userID, spec, gofakeit.City(), price)
		if err != nil {
			return nil, err
		}

		ids = append(ids, doctorID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	log.Println("doctors seeded")
	return ids, nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding schedules for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		// Weekday mornings plus a random afternoon block.
		for day := 1; day <= 5; day++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO weekly_schedule_slots (id, doctor_id, day_of_week, start_time, end_time, blocked, created_at, updated_at)
				VALUES ($1, $2, $3, '09:00', '12:00', false, now(), now())
			`, uuid.New(), doctorID, day)
			if err != nil {
				return err
			}
		}

		day := gofakeit.Number(1, 5)
		_, err := tx.Exec(ctx, `
			INSERT INTO weekly_schedule_slots (id, doctor_id, day_of_week, start_time, end_time, blocked, created_at, updated_at)
			VALUES ($1, $2, $3, '14:00', '17:00', false, now(), now())
		`, uuid.New(), doctorID, day)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("schedules seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, hash string, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			phone := gofakeit.Phone()
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, phone, password_hash, role, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 'patient', now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), phone, hash)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}
