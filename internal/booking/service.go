package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/prescripto/clinic-booking/internal/config"
	"github.com/prescripto/clinic-booking/internal/payments"
	redisclient "github.com/prescripto/clinic-booking/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentPaid      = "APPOINTMENT_PAID"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"

	// DashboardLatest is how many recent appointments the dashboard carries.
	DashboardLatest = 5
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	gateway payments.Gateway
	cfg     config.Config
	nowFn   func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, gateway payments.Gateway, cfg config.Config) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		gateway: gateway,
		cfg:     cfg,
		nowFn:   time.Now,
	}
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// OfferableSlots returns the doctor's 7-day calendar of open slots. A doctor
// with available=false still gets a calendar; availability gates booking,
// not generation.
func (s *Service) OfferableSlots(ctx context.Context, doctorID uuid.UUID) ([]DaySlots, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	booked, err := s.repo.BookedSlots(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}
	return OfferableSlots(s.nowFn(), booked), nil
}

// Book reserves the slot and creates the appointment as one atomic unit.
// Concurrent bookings of the same (doctor, date, time) are serialized through
// a per-slot lock, and the ledger's conditional insert guarantees that even
// without the lock exactly one caller wins; the rest observe
// ErrSlotUnavailable.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, slotDate, slotTime string) (*Appointment, error) {
	startsAt, err := ParseSlot(slotDate, slotTime, s.nowFn().Location())
	if err != nil {
		return nil, err
	}
	if !slotInWindow(startsAt) || startsAt.Before(s.nowFn()) {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidSlot, slotDate, slotTime)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Available {
		return nil, ErrDoctorUnavailable
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, doctorID, slotDate+"/"+slotTime, func(lockCtx context.Context) error {
		appt := &Appointment{
			ID:           uuid.New(),
			PatientID:    patientID,
			DoctorID:     doctorID,
			SlotDate:     slotDate,
			SlotTime:     slotTime,
			SlotStartsAt: startsAt,
			Amount:       doctor.Fees,
			Currency:     s.cfg.Currency,
			DoctorName:   doctor.Name,
			DoctorAddr1:  doctor.AddressLine1,
			DoctorAddr2:  doctor.AddressLine2,
		}

		if err := s.repo.CreateBooking(lockCtx, appt); err != nil {
			return err
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"slot_date":  slotDate,
			"slot_time":  slotTime,
			"amount":     doctor.Fees,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Cancel transitions the appointment to cancelled. Only the owning patient
// or the owning doctor may cancel; completed appointments are terminal and
// stay uncancellable. The ledger slot is released only when its date has not
// passed; past slots are no longer offerable, so there is nothing to free.
func (s *Service) Cancel(ctx context.Context, appointmentID, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if requesterID != appt.PatientID && requesterID != appt.DoctorID {
		return nil, ErrNotOwner
	}

	switch appt.Status {
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	case StatusCompleted:
		return nil, ErrCompleted
	}

	now := s.nowFn()
	releaseSlot := !startOfDay(appt.SlotStartsAt).Before(startOfDay(now))

	updated, err := s.repo.CancelAppointment(ctx, appointmentID, now, releaseSlot)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race against another mutation of the same record; the
			// conditional update tells us the prior state is gone.
			return nil, s.reloadConflict(ctx, appointmentID)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"requester_id":  requesterID.String(),
		"slot_released": releaseSlot,
	})
	return updated, nil
}

// CreatePaymentSession opens a gateway session for an unpaid appointment.
// Gateway failures leave the appointment pending; the client may retry.
func (s *Service) CreatePaymentSession(ctx context.Context, appointmentID uuid.UUID) (*payments.Session, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusCancelled:
		return nil, ErrCancelled
	case StatusPaid, StatusCompleted:
		return nil, ErrAlreadyPaid
	}
	if appt.PaymentRef != nil {
		return nil, ErrAlreadyPaid
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	session, err := s.gateway.CreateSession(gwCtx, payments.SessionRequest{
		AppointmentID: appt.ID,
		Amount:        appt.Amount,
		Currency:      appt.Currency,
		Description:   fmt.Sprintf("Appointment with Dr. %s on %s at %s", appt.DoctorName, appt.SlotDate, appt.SlotTime),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment session: %w", err)
	}
	return session, nil
}

// ConfirmPayment records a confirmed gateway result exactly once.
func (s *Service) ConfirmPayment(ctx context.Context, appointmentID uuid.UUID, paymentRef string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusCancelled:
		return nil, ErrCancelled
	case StatusPaid, StatusCompleted:
		return nil, ErrAlreadyPaid
	}

	updated, err := s.repo.MarkPaid(ctx, appointmentID, paymentRef, s.nowFn())
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.reloadConflict(ctx, appointmentID)
		}
		return nil, fmt.Errorf("mark paid: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentPaid, map[string]any{
		"payment_ref": paymentRef,
	})
	return updated, nil
}

// Complete marks the appointment done. Completing an already completed
// appointment is a no-op; a cancelled one is rejected.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusCancelled:
		return nil, ErrCancelled
	case StatusCompleted:
		return appt, nil
	}

	updated, err := s.repo.CompleteAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.reloadConflict(ctx, appointmentID)
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{})
	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) PatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) DoctorAppointments(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appts, err := s.repo.ListAppointmentsByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) Dashboard(ctx context.Context, doctorID uuid.UUID) (*Dashboard, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	dash, err := s.repo.DoctorDashboard(ctx, doctorID, DashboardLatest)
	if err != nil {
		return nil, fmt.Errorf("doctor dashboard: %w", err)
	}
	return dash, nil
}

// PrunePastSlots drops ledger rows for slots that started before today.
// Intended to be called periodically by the janitor worker.
func (s *Service) PrunePastSlots(ctx context.Context) (int64, error) {
	return s.repo.PrunePastSlots(ctx, startOfDay(s.nowFn()))
}

// reloadConflict maps a failed conditional update to the state that caused
// it, so callers see AlreadyCancelled/AlreadyPaid rather than NotFound when
// they lost a race on the same record.
func (s *Service) reloadConflict(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}
	switch appt.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusCompleted:
		return ErrCompleted
	case StatusPaid:
		return ErrAlreadyPaid
	default:
		return ErrAppointmentNotFound
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.nowFn(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
