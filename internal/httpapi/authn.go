package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"deckledger.org/internal/identity"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	sessionCookie = "deckledger_session"
	hintCookie    = "deckledger_hint"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/logout",
	"/v1/auth/session",
	"/v1/auth/users",
	"/v1/auth/token",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth resolves the caller identity from the session cookie or a bearer
// token and rejects protected paths without one. Every failure mode reports
// the same 401; callers never learn which check failed.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if id, ok := a.resolveIdentity(r); ok {
			ctx := identity.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		// Only the catch-all pattern matches unregistered paths; those get
		// the mux's 404 instead of a credentials demand.
		if _, pattern := a.mux.Handler(r); pattern == "/" {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	})
}

// resolveIdentity prefers the bearer token (scripted clients) over the
// session cookie (the dashboard).
func (a *API) resolveIdentity(r *http.Request) (identity.Identity, bool) {
	if tok, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
		if id, err := a.tokens.Parse(tok); err == nil {
			return id, true
		}
		return identity.Identity{}, false
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return a.guard.Restore(c.Value)
	}
	return identity.Identity{}, false
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
