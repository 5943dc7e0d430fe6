package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on startup. Statements are idempotent so repeated
// startups against the same database are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS doctors (
		id            uuid PRIMARY KEY,
		name          text NOT NULL,
		specialty     text,
		fees          numeric(10,2) NOT NULL CHECK (fees > 0),
		available     boolean NOT NULL DEFAULT true,
		address_line1 text,
		address_line2 text,
		created_at    timestamptz NOT NULL DEFAULT now(),
		updated_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id         uuid PRIMARY KEY,
		name       text NOT NULL,
		email      text,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id             uuid PRIMARY KEY,
		patient_id     uuid NOT NULL REFERENCES patients(id),
		doctor_id      uuid NOT NULL REFERENCES doctors(id),
		slot_date      text NOT NULL,
		slot_time      text NOT NULL,
		slot_starts_at timestamptz NOT NULL,
		amount         numeric(10,2) NOT NULL,
		currency       text NOT NULL,
		doctor_name    text NOT NULL,
		doctor_addr1   text,
		doctor_addr2   text,
		status         text NOT NULL DEFAULT 'pending',
		payment_ref    text,
		paid_at        timestamptz,
		cancelled_at   timestamptz,
		created_at     timestamptz NOT NULL DEFAULT now(),
		updated_at     timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS appointments_doctor_idx ON appointments (doctor_id, created_at DESC)`,
	// The booking ledger. The primary key on (doctor_id, slot_date, slot_time)
	// is what makes a reservation a single atomic conditional insert.
	`CREATE TABLE IF NOT EXISTS booked_slots (
		doctor_id      uuid NOT NULL REFERENCES doctors(id),
		slot_date      text NOT NULL,
		slot_time      text NOT NULL,
		appointment_id uuid NOT NULL REFERENCES appointments(id),
		starts_at      timestamptz NOT NULL,
		created_at     timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (doctor_id, slot_date, slot_time)
	)`,
	`CREATE INDEX IF NOT EXISTS booked_slots_starts_at_idx ON booked_slots (starts_at)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id             bigserial PRIMARY KEY,
		event_type     text NOT NULL,
		appointment_id uuid,
		payload        jsonb,
		created_at     timestamptz NOT NULL DEFAULT now()
	)`,
}

// ApplySchema creates the tables and indexes the service needs.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
