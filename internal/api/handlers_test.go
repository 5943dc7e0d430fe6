package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prescripto/clinic-booking/internal/api"
	"github.com/prescripto/clinic-booking/internal/booking"
	"github.com/prescripto/clinic-booking/internal/config"
	"github.com/prescripto/clinic-booking/internal/payments"
	redisclient "github.com/prescripto/clinic-booking/internal/redis"
)

type testServer struct {
	srv     *httptest.Server
	repo    *booking.MemoryRepository
	doctor  booking.Doctor
	patient booking.Patient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := booking.NewMemoryRepository()
	cfg := config.Config{
		Currency:       "USD",
		GatewayTimeout: time.Second,
		AllowedOrigins: []string{"*"},
	}
	svc := booking.NewService(repo, redisclient.NewLocalLocker(), payments.NewOfflineGateway("http://localhost:8080"), cfg)

	specialty := "Dermatology"
	doctor := booking.Doctor{
		ID:        uuid.New(),
		Name:      "Grace Lindqvist",
		Specialty: &specialty,
		Fees:      45,
		Available: true,
	}
	patient := booking.Patient{ID: uuid.New(), Name: "Henry Mwangi"}
	repo.PutDoctor(doctor)
	repo.PutPatient(patient)

	handler := api.NewRouter(api.RouterConfig{
		Booking:        svc,
		Env:            "test",
		Version:        "test",
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, repo: repo, doctor: doctor, patient: patient}
}

func (ts *testServer) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(ts.srv.URL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// tomorrowSlot picks a slot guaranteed to be in the future.
func tomorrowSlot() (string, string) {
	day := time.Now().AddDate(0, 0, 1)
	at := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, day.Location())
	return booking.FormatSlotDate(at), booking.FormatSlotTime(at)
}

func TestHealthLive(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.get(t, "/health/live")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	live := decode[api.LivenessResponse](t, resp)
	if live.Status != "ok" {
		t.Errorf("expected ok, got %q", live.Status)
	}
}

func TestBookAppointmentAPI(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		ts := newTestServer(t)
		slotDate, slotTime := tomorrowSlot()

		resp := ts.post(t, "/appointments", api.BookAppointmentRequest{
			PatientID: ts.patient.ID.String(),
			DoctorID:  ts.doctor.ID.String(),
			SlotDate:  slotDate,
			SlotTime:  slotTime,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		appt := decode[api.AppointmentResponse](t, resp)
		if appt.Status != "pending" || appt.Amount != 45 {
			t.Errorf("unexpected appointment %+v", appt)
		}
	})

	t.Run("SlotConflictIs409", func(t *testing.T) {
		ts := newTestServer(t)
		slotDate, slotTime := tomorrowSlot()
		req := api.BookAppointmentRequest{
			PatientID: ts.patient.ID.String(),
			DoctorID:  ts.doctor.ID.String(),
			SlotDate:  slotDate,
			SlotTime:  slotTime,
		}

		resp := ts.post(t, "/appointments", req)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("first booking: expected 201, got %d", resp.StatusCode)
		}
		resp.Body.Close()

		resp = ts.post(t, "/appointments", req)
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.StatusCode)
		}
		errResp := decode[api.ErrorResponse](t, resp)
		if errResp.Error != "slot_unavailable" {
			t.Errorf("expected slot_unavailable, got %q", errResp.Error)
		}
	})

	t.Run("UnknownDoctorIs404", func(t *testing.T) {
		ts := newTestServer(t)
		slotDate, slotTime := tomorrowSlot()
		resp := ts.post(t, "/appointments", api.BookAppointmentRequest{
			PatientID: ts.patient.ID.String(),
			DoctorID:  uuid.NewString(),
			SlotDate:  slotDate,
			SlotTime:  slotTime,
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("MalformedSlotIs400", func(t *testing.T) {
		ts := newTestServer(t)
		resp := ts.post(t, "/appointments", api.BookAppointmentRequest{
			PatientID: ts.patient.ID.String(),
			DoctorID:  ts.doctor.ID.String(),
			SlotDate:  "not_a_date",
			SlotTime:  "10:00 AM",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestCancelAppointmentAPI(t *testing.T) {
	ts := newTestServer(t)
	slotDate, slotTime := tomorrowSlot()

	resp := ts.post(t, "/appointments", api.BookAppointmentRequest{
		PatientID: ts.patient.ID.String(),
		DoctorID:  ts.doctor.ID.String(),
		SlotDate:  slotDate,
		SlotTime:  slotTime,
	})
	appt := decode[api.AppointmentResponse](t, resp)

	t.Run("StrangerIs403", func(t *testing.T) {
		resp := ts.post(t, fmt.Sprintf("/appointments/%s/cancel", appt.ID), api.CancelAppointmentRequest{
			RequesterID: uuid.NewString(),
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("OwnerCancels", func(t *testing.T) {
		resp := ts.post(t, fmt.Sprintf("/appointments/%s/cancel", appt.ID), api.CancelAppointmentRequest{
			RequesterID: ts.patient.ID.String(),
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		got := decode[api.AppointmentResponse](t, resp)
		if got.Status != "cancelled" {
			t.Errorf("expected cancelled, got %q", got.Status)
		}
	})

	t.Run("SecondCancelIs409", func(t *testing.T) {
		resp := ts.post(t, fmt.Sprintf("/appointments/%s/cancel", appt.ID), api.CancelAppointmentRequest{
			RequesterID: ts.patient.ID.String(),
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.StatusCode)
		}
	})
}

func TestSlotCalendarAPI(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, fmt.Sprintf("/doctors/%s/slots", ts.doctor.ID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	days := decode[[]booking.DaySlots](t, resp)
	if len(days) != booking.HorizonDays {
		t.Fatalf("expected %d days, got %d", booking.HorizonDays, len(days))
	}

	// Book tomorrow 10:00 and expect it to disappear from the calendar.
	slotDate, slotTime := tomorrowSlot()
	bookResp := ts.post(t, "/appointments", api.BookAppointmentRequest{
		PatientID: ts.patient.ID.String(),
		DoctorID:  ts.doctor.ID.String(),
		SlotDate:  slotDate,
		SlotTime:  slotTime,
	})
	bookResp.Body.Close()

	resp = ts.get(t, fmt.Sprintf("/doctors/%s/slots", ts.doctor.ID))
	days = decode[[]booking.DaySlots](t, resp)
	for _, day := range days {
		if day.Date != slotDate {
			continue
		}
		for _, s := range day.Slots {
			if s.Time == slotTime {
				t.Errorf("booked slot %s %s still offered", slotDate, slotTime)
			}
		}
	}
}

func TestPaymentFlowAPI(t *testing.T) {
	ts := newTestServer(t)
	slotDate, slotTime := tomorrowSlot()

	resp := ts.post(t, "/appointments", api.BookAppointmentRequest{
		PatientID: ts.patient.ID.String(),
		DoctorID:  ts.doctor.ID.String(),
		SlotDate:  slotDate,
		SlotTime:  slotTime,
	})
	appt := decode[api.AppointmentResponse](t, resp)

	sessResp := ts.post(t, fmt.Sprintf("/appointments/%s/pay", appt.ID), struct{}{})
	if sessResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for session, got %d", sessResp.StatusCode)
	}
	session := decode[api.PaymentSessionResponse](t, sessResp)

	confirmResp := ts.post(t, fmt.Sprintf("/appointments/%s/confirm-payment", appt.ID), api.ConfirmPaymentRequest{
		PaymentRef: session.SessionID,
	})
	if confirmResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for confirm, got %d", confirmResp.StatusCode)
	}
	paid := decode[api.AppointmentResponse](t, confirmResp)
	if paid.Status != "paid" {
		t.Errorf("expected paid, got %q", paid.Status)
	}

	again := ts.post(t, fmt.Sprintf("/appointments/%s/confirm-payment", appt.ID), api.ConfirmPaymentRequest{
		PaymentRef: session.SessionID,
	})
	defer again.Body.Close()
	if again.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate confirm, got %d", again.StatusCode)
	}
}
