// simulate hammers the booking API with concurrent workers to demonstrate
// that contended slots resolve to exactly one winner. Run seed first.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prescripto/clinic-booking/internal/db"
)

type simConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	CancelRatio float64
	PostgresDSN string
}

type counters struct {
	booked    atomic.Int64
	conflicts atomic.Int64
	rejected  atomic.Int64
	cancelled atomic.Int64
	errors    atomic.Int64
}

type bookedPool struct {
	mu    sync.Mutex
	appts []bookedAppt
}

type bookedAppt struct {
	ID        string
	PatientID string
}

func (p *bookedPool) add(a bookedAppt) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appts = append(p.appts, a)
}

func (p *bookedPool) random() (bookedAppt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.appts) == 0 {
		return bookedAppt{}, false
	}
	return p.appts[rand.Intn(len(p.appts))], true
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := simConfig{
		APIBaseURL:  envOr("API_BASE_URL", "http://localhost:8080"),
		Duration:    envDuration("SIM_DURATION", 30*time.Second),
		Workers:     envInt("SIM_WORKERS", 16),
		CancelRatio: 0.2,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required to load doctor/patient ids")
	}

	doctors, patients, err := loadIDs(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("load ids: %v", err)
	}
	if len(doctors) == 0 || len(patients) == 0 {
		log.Fatal("no doctors or patients found; run seed first")
	}
	log.Printf("loaded %d doctors, %d patients", len(doctors), len(patients))

	// A deliberately narrow slot pool so workers collide.
	day := time.Now().AddDate(0, 0, 1)
	slotDate := fmt.Sprintf("%d_%d_%d", day.Day(), int(day.Month()), day.Year())
	slotTimes := []string{"10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM"}

	var c counters
	pool := &bookedPool{}
	client := &http.Client{Timeout: 5 * time.Second}

	deadline := time.Now().Add(cfg.Duration)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if appt, ok := pool.random(); ok && rand.Float64() < cfg.CancelRatio {
					cancelOne(client, cfg.APIBaseURL, appt, &c)
					continue
				}
				bookOne(client, cfg.APIBaseURL,
					doctors[rand.Intn(len(doctors))],
					patients[rand.Intn(len(patients))],
					slotDate, slotTimes[rand.Intn(len(slotTimes))],
					pool, &c)
			}
		}()
	}
	wg.Wait()

	log.Printf("done: booked=%d conflicts=%d rejected=%d cancelled=%d errors=%d",
		c.booked.Load(), c.conflicts.Load(), c.rejected.Load(), c.cancelled.Load(), c.errors.Load())
}

func bookOne(client *http.Client, baseURL string, doctorID, patientID uuid.UUID, slotDate, slotTime string, pool *bookedPool, c *counters) {
	body, _ := json.Marshal(map[string]string{
		"patient_id": patientID.String(),
		"doctor_id":  doctorID.String(),
		"slot_date":  slotDate,
		"slot_time":  slotTime,
	})

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		c.errors.Add(1)
		return
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		var created struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
			pool.add(bookedAppt{ID: created.ID, PatientID: patientID.String()})
		}
		c.booked.Add(1)
	case http.StatusConflict:
		c.conflicts.Add(1)
	case http.StatusBadRequest, http.StatusNotFound:
		c.rejected.Add(1)
	default:
		c.errors.Add(1)
	}
}

func cancelOne(client *http.Client, baseURL string, appt bookedAppt, c *counters) {
	body, _ := json.Marshal(map[string]string{"requester_id": appt.PatientID})

	resp, err := client.Post(baseURL+"/appointments/"+appt.ID+"/cancel", "application/json", bytes.NewReader(body))
	if err != nil {
		c.errors.Add(1)
		return
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		c.cancelled.Add(1)
	case http.StatusConflict:
		// already cancelled by a duplicate submit; expected under load
	default:
		c.errors.Add(1)
	}
}

func loadIDs(dsn string) ([]uuid.UUID, []uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	defer pool.Close()

	doctors, err := loadColumn(ctx, pool, `SELECT id FROM doctors WHERE available LIMIT 10`)
	if err != nil {
		return nil, nil, err
	}
	patients, err := loadColumn(ctx, pool, `SELECT id FROM patients LIMIT 500`)
	if err != nil {
		return nil, nil, err
	}
	return doctors, patients, nil
}

func loadColumn(ctx context.Context, pool *pgxpool.Pool, sql string) ([]uuid.UUID, error) {
	rs, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []uuid.UUID
	for rs.Next() {
		var id uuid.UUID
		if err := rs.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rs.Err()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
