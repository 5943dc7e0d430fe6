package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prescripto/clinic-booking/internal/booking"
	"github.com/prescripto/clinic-booking/internal/config"
	"github.com/prescripto/clinic-booking/internal/db"
	"github.com/prescripto/clinic-booking/internal/payments"
	redisclient "github.com/prescripto/clinic-booking/internal/redis"
)

// The janitor prunes booking-ledger rows for slots whose date has passed.
// Past slots are never offered again, so their rows only grow the ledger.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("ledger-janitor starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running janitor in env=%s interval=%s", cfg.Env, cfg.JanitorInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	repo := booking.NewPgRepository(pgPool)
	svc := booking.NewService(repo, redisclient.NewLocalLocker(), payments.NewOfflineGateway(""), cfg)

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping janitor")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	pruned, err := svc.PrunePastSlots(runCtx)
	if err != nil {
		log.Printf("prune run error: %v", err)
		return
	}
	log.Printf("prune run complete: removed %d rows in %s", pruned, time.Since(start))
}
