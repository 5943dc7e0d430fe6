package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/prescripto/clinic-booking/internal/booking"
	"github.com/prescripto/clinic-booking/internal/metrics"
	"github.com/prescripto/clinic-booking/internal/waitingroom"
)

type RouterConfig struct {
	Booking        *booking.Service
	WaitingRoom    *waitingroom.Service
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	Env            string
	Version        string
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/doctors", listDoctorsHandler(cfg.Booking))
	r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Booking))
	r.Get("/doctors/{id}/appointments", doctorAppointmentsHandler(cfg.Booking))
	r.Get("/doctors/{id}/dashboard", doctorDashboardHandler(cfg.Booking))

	r.Post("/appointments", bookAppointmentHandler(cfg.Booking))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/pay", paymentSessionHandler(cfg.Booking))
	r.Post("/appointments/{id}/confirm-payment", confirmPaymentHandler(cfg.Booking))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Booking))

	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Booking))

	if cfg.WaitingRoom != nil {
		r.Post("/waiting-room/{doctorID}/enroll", enrollWaitingHandler(cfg.WaitingRoom))
		r.Post("/waiting-room/{doctorID}/verify", verifyWaitingHandler(cfg.WaitingRoom))
		r.Get("/waiting-room/{doctorID}/count", waitingCountHandler(cfg.WaitingRoom))
	}

	return r
}
