package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all storage interactions needed by the service.
//
// CreateBooking and CancelAppointment mutate the booking ledger and the
// appointment record inside one transaction, so the ledger never disagrees
// with the appointment set: a row exists in the ledger exactly when an
// active appointment holds that slot.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// BookedSlots returns the doctor's reserved slots keyed by date key.
	BookedSlots(ctx context.Context, doctorID uuid.UUID) (map[string][]string, error)

	// CreateBooking reserves the slot and persists the appointment as one
	// atomic unit. Returns ErrSlotUnavailable when the slot is already held
	// by an active appointment.
	CreateBooking(ctx context.Context, appt *Appointment) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CancelAppointment transitions pending/paid to cancelled and, when
	// releaseSlot is set, removes the ledger row in the same transaction.
	// A missing ledger row is a benign no-op. Returns the updated record,
	// or ErrAppointmentNotFound when the conditional update matched nothing.
	CancelAppointment(ctx context.Context, id uuid.UUID, at time.Time, releaseSlot bool) (*Appointment, error)

	// MarkPaid transitions pending to paid, recording the payment reference
	// exactly once. Returns ErrAppointmentNotFound when the conditional
	// update matched nothing.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef string, at time.Time) (*Appointment, error)

	// CompleteAppointment transitions pending or paid to completed. Returns
	// ErrAppointmentNotFound when the conditional update matched nothing.
	CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)
	DoctorDashboard(ctx context.Context, doctorID uuid.UUID, latest int) (*Dashboard, error)

	// PrunePastSlots deletes ledger rows whose slot started before cutoff.
	// Used by the janitor; past slots are no longer offerable so keeping
	// their rows only grows the ledger.
	PrunePastSlots(ctx context.Context, cutoff time.Time) (int64, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
