package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusPaid      AppointmentStatus = "paid"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Doctor struct {
	ID           uuid.UUID
	Name         string
	Specialty    *string
	Fees         float64
	Available    bool
	AddressLine1 *string
	AddressLine2 *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment carries a snapshot of the doctor's fee and address taken at
// booking time. Later doctor profile edits do not change what the patient
// agreed to pay or where the appointment takes place.
type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	SlotDate     string // ledger date key, d_m_y
	SlotTime     string // ledger time string, e.g. "10:30 AM"
	SlotStartsAt time.Time
	Amount       float64
	Currency     string
	DoctorName   string
	DoctorAddr1  *string
	DoctorAddr2  *string
	Status       AppointmentStatus
	PaymentRef   *string
	PaidAt       *time.Time
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Dashboard is the doctor-facing aggregate view. Earnings sum the fee
// snapshots of appointments whose payment was confirmed.
type Dashboard struct {
	Appointments int64
	Patients     int64
	Earnings     float64
	Latest       []Appointment
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
