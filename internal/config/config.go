// Package config loads runtime settings from the environment. A .env file in
// the working directory is read first when present, matching local dev setups.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Addr     string
	PGDSN    string
	DataFile string

	AuthSecret []byte
	SessionTTL time.Duration
	HintTTL    time.Duration

	LoginRatePerMinute int
	MaxImportBytes     int64

	Version string
	Commit  string
}

// Load reads configuration from the environment. Only DECKLEDGER_AUTH_SECRET
// is validated here; a missing secret is allowed and degrades session issuing
// at the guard level instead of refusing to boot.
func Load() (Config, error) {
	// Best effort; absence of .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		Addr:               envString("DECKLEDGER_ADDR", ":8080"),
		PGDSN:              envString("DECKLEDGER_PG_DSN", ""),
		DataFile:           envString("DECKLEDGER_DATA_FILE", ""),
		AuthSecret:         []byte(strings.TrimSpace(os.Getenv("DECKLEDGER_AUTH_SECRET"))),
		SessionTTL:         envDuration("DECKLEDGER_SESSION_TTL", 12*time.Hour),
		HintTTL:            envDuration("DECKLEDGER_HINT_TTL", 30*24*time.Hour),
		LoginRatePerMinute: envInt("DECKLEDGER_LOGIN_RATE", 10),
		MaxImportBytes:     int64(envInt("DECKLEDGER_MAX_IMPORT_BYTES", 10<<20)),
	}
	if len(cfg.AuthSecret) > 0 && len(cfg.AuthSecret) < 16 {
		return Config{}, errors.New("config: DECKLEDGER_AUTH_SECRET must be at least 16 bytes")
	}
	if cfg.SessionTTL <= 0 || cfg.HintTTL <= 0 {
		return Config{}, errors.New("config: TTLs must be positive")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
