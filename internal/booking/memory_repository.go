package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by tests and single-node
// dev runs. One mutex stands in for the database's transactional guarantees,
// so the ledger and appointment set mutate together here as well.
type MemoryRepository struct {
	mu           sync.Mutex
	doctors      map[uuid.UUID]Doctor
	patients     map[uuid.UUID]Patient
	appointments map[uuid.UUID]Appointment
	ledger       map[slotRef]uuid.UUID // reserved slot -> holding appointment
	events       []EventLog
	lastCreated  time.Time
}

type slotRef struct {
	doctorID uuid.UUID
	date     string
	time     string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]Doctor),
		patients:     make(map[uuid.UUID]Patient),
		appointments: make(map[uuid.UUID]Appointment),
		ledger:       make(map[slotRef]uuid.UUID),
	}
}

// PutDoctor and PutPatient seed fixture data.

func (m *MemoryRepository) PutDoctor(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

func (m *MemoryRepository) PutPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (m *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Doctor, 0, len(m.doctors))
	for _, d := range m.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) BookedSlots(_ context.Context, doctorID uuid.UUID) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booked := make(map[string][]string)
	for ref := range m.ledger {
		if ref.doctorID == doctorID {
			booked[ref.date] = append(booked[ref.date], ref.time)
		}
	}
	for _, times := range booked {
		sort.Strings(times)
	}
	return booked, nil
}

func (m *MemoryRepository) CreateBooking(_ context.Context, appt *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := slotRef{appt.DoctorID, appt.SlotDate, appt.SlotTime}
	if _, taken := m.ledger[ref]; taken {
		return ErrSlotUnavailable
	}

	// Strictly monotonic creation times keep newest-first ordering stable
	// even when bookings land within the clock's resolution.
	now := time.Now()
	if !now.After(m.lastCreated) {
		now = m.lastCreated.Add(time.Nanosecond)
	}
	m.lastCreated = now

	appt.Status = StatusPending
	appt.CreatedAt = now
	appt.UpdatedAt = now

	m.ledger[ref] = appt.ID
	m.appointments[appt.ID] = *appt
	return nil
}

func (m *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *MemoryRepository) CancelAppointment(_ context.Context, id uuid.UUID, at time.Time, releaseSlot bool) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || (a.Status != StatusPending && a.Status != StatusPaid) {
		return nil, ErrAppointmentNotFound
	}

	a.Status = StatusCancelled
	a.CancelledAt = &at
	a.UpdatedAt = time.Now()
	m.appointments[id] = a

	if releaseSlot {
		ref := slotRef{a.DoctorID, a.SlotDate, a.SlotTime}
		if holder, reserved := m.ledger[ref]; reserved && holder == a.ID {
			delete(m.ledger, ref)
		}
	}
	return &a, nil
}

func (m *MemoryRepository) MarkPaid(_ context.Context, id uuid.UUID, paymentRef string, at time.Time) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != StatusPending {
		return nil, ErrAppointmentNotFound
	}

	a.Status = StatusPaid
	a.PaymentRef = &paymentRef
	a.PaidAt = &at
	a.UpdatedAt = time.Now()
	m.appointments[id] = a
	return &a, nil
}

func (m *MemoryRepository) CompleteAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || (a.Status != StatusPending && a.Status != StatusPaid) {
		return nil, ErrAppointmentNotFound
	}

	a.Status = StatusCompleted
	a.UpdatedAt = time.Now()
	m.appointments[id] = a
	return &a, nil
}

func (m *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a Appointment) bool { return a.PatientID == patientID }, limit, offset), nil
}

func (m *MemoryRepository) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(a Appointment) bool { return a.DoctorID == doctorID }, limit, offset), nil
}

// list filters and orders newest-first. Callers hold the mutex.
func (m *MemoryRepository) list(match func(Appointment) bool, limit, offset int) []Appointment {
	var out []Appointment
	for _, a := range m.appointments {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemoryRepository) DoctorDashboard(ctx context.Context, doctorID uuid.UUID, latest int) (*Dashboard, error) {
	m.mu.Lock()
	var dash Dashboard
	seen := make(map[uuid.UUID]struct{})
	for _, a := range m.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		if a.Status != StatusCancelled {
			dash.Appointments++
		}
		if a.PaidAt != nil {
			dash.Earnings += a.Amount
		}
		seen[a.PatientID] = struct{}{}
	}
	dash.Patients = int64(len(seen))
	m.mu.Unlock()

	latestAppts, err := m.ListAppointmentsByDoctor(ctx, doctorID, latest, 0)
	if err != nil {
		return nil, err
	}
	dash.Latest = latestAppts
	return &dash, nil
}

func (m *MemoryRepository) PrunePastSlots(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pruned int64
	for ref, apptID := range m.ledger {
		a, ok := m.appointments[apptID]
		if ok && a.SlotStartsAt.Before(cutoff) {
			delete(m.ledger, ref)
			pruned++
		}
	}
	return pruned, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}

// SlotReserved reports whether the ledger currently holds the slot.
func (m *MemoryRepository) SlotReserved(doctorID uuid.UUID, slotDate, slotTime string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ledger[slotRef{doctorID, slotDate, slotTime}]
	return ok
}
