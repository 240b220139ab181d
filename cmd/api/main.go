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

	"deckledger.org/internal/config"
	"deckledger.org/internal/httpapi"
	"deckledger.org/internal/identity"
	"deckledger.org/internal/obs"
	"deckledger.org/internal/session"
	"deckledger.org/internal/tracker"
	"deckledger.org/internal/tracker/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Store selection: PostgreSQL when a DSN is configured, otherwise the
	// in-process store (data lives until restart).
	var (
		store tracker.Store
		users identity.Store
		db    *sql.DB
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		users = identity.NewPGStore(pgStore.DB())
		db = pgStore.DB()
	} else {
		store = tracker.NewInMemory()
		users = identity.NewInMemory()
		log.Print("no DECKLEDGER_PG_DSN set; using in-memory store")
	}

	// Sessions are bound to the dataset fingerprint: the data file when one
	// is configured, a per-boot fingerprint otherwise.
	var source session.Source
	if cfg.DataFile != "" {
		source = session.FileSource(cfg.DataFile)
	} else {
		source = session.NewBootSource()
	}
	guard := session.NewGuard(cfg.AuthSecret, source, session.WithTTL(cfg.SessionTTL))
	if len(cfg.AuthSecret) == 0 {
		log.Print("DECKLEDGER_AUTH_SECRET not set; logins are disabled")
	}

	api := httpapi.New(
		httpapi.ReadyProbe{DB: db},
		version,
		identity.NewService(users),
		guard,
		store,
		cfg.AuthSecret,
		httpapi.WithMaxImportBytes(cfg.MaxImportBytes),
		httpapi.WithLoginRate(cfg.LoginRatePerMinute),
		httpapi.WithHintTTL(cfg.HintTTL),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting deckledger-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
