// Package httpapi is the HTTP transport: routing, authentication,
// middleware and the JSON handlers for every endpoint.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"deckledger.org/internal/archive"
	"deckledger.org/internal/audit"
	"deckledger.org/internal/identity"
	"deckledger.org/internal/obs"
	"deckledger.org/internal/reconcile"
	"deckledger.org/internal/session"
	"deckledger.org/internal/tracker"
)

// ReadyProbe checks readiness (for example a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	users  *identity.Service
	guard  *session.Guard
	store  tracker.Store
	codec  *archive.Codec
	engine *reconcile.Engine
	tokens *apiTokens

	maxImportBytes int64
	loginBurst     int
	loginPerMin    int
	hintTTL        time.Duration
}

// Option tunes API limits at construction.
type Option func(*API)

// WithMaxImportBytes caps the accepted archive upload size.
func WithMaxImportBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxImportBytes = n
		}
	}
}

// WithLoginRate sets the per-IP login attempt budget per minute.
func WithLoginRate(perMinute int) Option {
	return func(a *API) {
		if perMinute > 0 {
			a.loginPerMin = perMinute
			a.loginBurst = perMinute
		}
	}
}

// WithHintTTL sets the lifetime of the last-identity hint cookie.
func WithHintTTL(ttl time.Duration) Option {
	return func(a *API) {
		if ttl > 0 {
			a.hintTTL = ttl
		}
	}
}

func New(rp ReadyProbe, version string, users *identity.Service, guard *session.Guard, store tracker.Store, secret []byte, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,

		users:  users,
		guard:  guard,
		store:  store,
		codec:  archive.New(),
		engine: reconcile.New(store),
		tokens: newAPITokens(secret),

		maxImportBytes: 10 << 20,
		loginBurst:     10,
		loginPerMin:    10,
		hintTTL:        session.HintTTL,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.Handle("/v1/auth/login", a.rateLimited(http.HandlerFunc(a.handleLogin)))
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/session", a.handleSession)
	a.mux.HandleFunc("/v1/auth/users", a.handleUsers)
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// data portability
	a.mux.HandleFunc("/v1/export", a.handleExport)
	a.mux.HandleFunc("/v1/import", a.handleImport)

	// match tracking
	a.mux.HandleFunc("/v1/results", a.handleResults)
	a.mux.HandleFunc("/v1/results/", a.handleResultResource)
	a.mux.HandleFunc("/v1/stats", a.handleStats)
	a.mux.HandleFunc("/v1/decks", a.deckCollection(tracker.Store.Decks))
	a.mux.HandleFunc("/v1/decks/", a.deckResource(tracker.Store.Decks, "/v1/decks/"))
	a.mux.HandleFunc("/v1/opponent-decks", a.deckCollection(tracker.Store.OpponentDecks))
	a.mux.HandleFunc("/v1/opponent-decks/", a.deckResource(tracker.Store.OpponentDecks, "/v1/opponent-decks/"))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "deckledger-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "deckledger-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, tracker.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, tracker.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
