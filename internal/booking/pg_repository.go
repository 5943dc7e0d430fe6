package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const apptColumns = `id, patient_id, doctor_id, slot_date, slot_time, slot_starts_at,
	amount::float8, currency, doctor_name, doctor_addr1, doctor_addr2,
	status, payment_ref, paid_at, cancelled_at, created_at, updated_at`

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.Fees,
		&d.Available,
		&d.AddressLine1,
		&d.AddressLine2,
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

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.SlotDate,
		&a.SlotTime,
		&a.SlotStartsAt,
		&a.Amount,
		&a.Currency,
		&a.DoctorName,
		&a.DoctorAddr1,
		&a.DoctorAddr2,
		&a.Status,
		&a.PaymentRef,
		&a.PaidAt,
		&a.CancelledAt,
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

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, fees::float8, available, address_line1, address_line2, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, fees::float8, available, address_line1, address_line2, created_at, updated_at
		FROM doctors
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) BookedSlots(ctx context.Context, doctorID uuid.UUID) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_date, slot_time
		FROM booked_slots
		WHERE doctor_id = $1
		ORDER BY starts_at
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booked := make(map[string][]string)
	for rows.Next() {
		var date, slotTime string
		if err := rows.Scan(&date, &slotTime); err != nil {
			return nil, err
		}
		booked[date] = append(booked[date], slotTime)
	}
	return booked, rows.Err()
}

func (r *PgRepository) CreateBooking(ctx context.Context, appt *Appointment) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, slot_date, slot_time, slot_starts_at,
			amount, currency, doctor_name, doctor_addr1, doctor_addr2, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending', now(), now())
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.SlotDate, appt.SlotTime, appt.SlotStartsAt,
		appt.Amount, appt.Currency, appt.DoctorName, appt.DoctorAddr1, appt.DoctorAddr2)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	// The ledger's primary key is the reservation: a conflicting insert means
	// another active appointment already holds the slot.
	tag, err := tx.Exec(ctx, `
		INSERT INTO booked_slots (doctor_id, slot_date, slot_time, appointment_id, starts_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING
	`, appt.DoctorID, appt.SlotDate, appt.SlotTime, appt.ID, appt.SlotStartsAt)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}

	appt.Status = StatusPending
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apptColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, at time.Time, releaseSlot bool) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancelled_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'paid')
		RETURNING `+apptColumns, id, at)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if releaseSlot {
		// Missing row means the slot was already unreserved (e.g. pruned);
		// that is a benign outcome, not a failure.
		_, err = tx.Exec(ctx, `
			DELETE FROM booked_slots
			WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3 AND appointment_id = $4
		`, appt.DoctorID, appt.SlotDate, appt.SlotTime, appt.ID)
		if err != nil {
			return nil, fmt.Errorf("release slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'paid',
		    payment_ref = $2,
		    paid_at = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+apptColumns, id, paymentRef, at)
	return scanAppointment(row)
}

func (r *PgRepository) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'paid')
		RETURNING `+apptColumns, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(ctx, `patient_id`, patientID, limit, offset)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.listAppointments(ctx, `doctor_id`, doctorID, limit, offset)
}

func (r *PgRepository) listAppointments(ctx context.Context, ownerColumn string, ownerID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE `+ownerColumn+` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (r *PgRepository) DoctorDashboard(ctx context.Context, doctorID uuid.UUID, latest int) (*Dashboard, error) {
	var dash Dashboard

	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status <> 'cancelled'),
			count(DISTINCT patient_id),
			COALESCE(sum(amount) FILTER (WHERE paid_at IS NOT NULL), 0)::float8
		FROM appointments
		WHERE doctor_id = $1
	`, doctorID).Scan(&dash.Appointments, &dash.Patients, &dash.Earnings)
	if err != nil {
		return nil, fmt.Errorf("dashboard aggregates: %w", err)
	}

	dash.Latest, err = r.ListAppointmentsByDoctor(ctx, doctorID, latest, 0)
	if err != nil {
		return nil, fmt.Errorf("dashboard latest: %w", err)
	}
	return &dash, nil
}

func (r *PgRepository) PrunePastSlots(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM booked_slots
		WHERE starts_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune past slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
