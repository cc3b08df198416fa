package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"identra.org/internal/auth"
	"identra.org/internal/config"
	"identra.org/internal/httpapi"
	"identra.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Connect to the DB when a DSN is set; fall back to the in-memory store
	// for local development.
	var (
		db    *sql.DB
		store auth.Store
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store = auth.NewPGStore(db)
	} else {
		log.Println("DATABASE_URL not set, using in-memory store")
		store = auth.NewMemoryStore()
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL())
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}
	svc, err := auth.NewService(store, issuer,
		auth.WithWorkFactor(cfg.BcryptCost),
		auth.WithRefreshTTL(cfg.RefreshTTL()),
		auth.WithSessionTTL(cfg.SessionLifetime()),
		auth.WithReplayCascade(cfg.ReplayCascade),
	)
	if err != nil {
		log.Fatalf("service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc)
	api.SetRateLimit(cfg.RateLimitBurst, cfg.RateLimitPerSec)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting identra-api %s on %s", version, srv.Addr)

	// Expired refresh tokens and sessions are swept in the background so the
	// tables do not grow without bound.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n, err := svc.PurgeExpiredTokens(sweepCtx); err != nil {
					log.Printf("token sweep: %v", err)
				} else if n > 0 {
					log.Printf("token sweep: purged %d expired tokens", n)
				}
			}
		}
	}()

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
