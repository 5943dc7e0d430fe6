package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/prescripto/clinic-booking/internal/booking"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	SlotDate  string `json:"slot_date"`
	SlotTime  string `json:"slot_time"`
}

type CancelAppointmentRequest struct {
	RequesterID string `json:"requester_id"`
}

type ConfirmPaymentRequest struct {
	PaymentRef string `json:"payment_ref"`
}

type EnrollRequest struct {
	Token string `json:"token"`
}

type VerifyRequest struct {
	Token string `json:"token"`
}

type AppointmentResponse struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	DoctorID   uuid.UUID  `json:"doctor_id"`
	DoctorName string     `json:"doctor_name"`
	SlotDate   string     `json:"slot_date"`
	SlotTime   string     `json:"slot_time"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
	PaymentRef *string    `json:"payment_ref,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		PatientID:  a.PatientID,
		DoctorID:   a.DoctorID,
		DoctorName: a.DoctorName,
		SlotDate:   a.SlotDate,
		SlotTime:   a.SlotTime,
		Amount:     a.Amount,
		Currency:   a.Currency,
		Status:     string(a.Status),
		PaymentRef: a.PaymentRef,
		PaidAt:     a.PaidAt,
		CreatedAt:  a.CreatedAt,
	}
}

func toAppointmentResponses(appts []booking.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
	Fees      float64   `json:"fees"`
	Available bool      `json:"available"`
}

type DashboardResponse struct {
	Appointments int64                 `json:"appointments"`
	Patients     int64                 `json:"patients"`
	Earnings     float64               `json:"earnings"`
	Latest       []AppointmentResponse `json:"latest"`
}

type PaymentSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type WaitingRoomResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Verified *bool     `json:"verified,omitempty"`
	Count    int64     `json:"waiting_count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
