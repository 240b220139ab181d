package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"deckledger.org/internal/identity"
	"deckledger.org/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool               `json:"authenticated"`
	User          *identity.Identity `json:"user,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	Hint          string             `json:"hint,omitempty"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

const apiTokenTTL = 15 * time.Minute

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := a.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			a.audit(r.Context(), "auth.login.denied", map[string]any{"username": req.Username})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}

	tok, expiresAt, err := a.guard.Issue(id)
	if err != nil {
		if errors.Is(err, session.ErrNoSecret) {
			writeError(w, r, http.StatusServiceUnavailable, "session signing is not configured")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "session error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    tok,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     hintCookie,
		Value:    url.QueryEscape(id.Username),
		Path:     "/",
		Expires:  time.Now().Add(a.hintTTL),
		SameSite: http.SameSiteLaxMode,
	})

	a.audit(r.Context(), "auth.login", map[string]any{
		"username":   id.Username,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          &id,
		ExpiresAt:     &expiresAt,
	})
}

// handleLogout clears the session cookie. Idempotent: logging out while
// logged out is still a 200. The hint cookie survives so the login form can
// pre-select the last identity.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if id, ok := identity.FromContext(r.Context()); ok {
		a.audit(r.Context(), "auth.logout", map[string]any{"username": id.Username})
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

// handleSession reports the authentication state. Anonymous callers get the
// unsigned hint (last logged-in username) when the hint cookie is present.
func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if id, ok := identity.FromContext(r.Context()); ok {
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: &id})
		return
	}
	resp := sessionResponse{Authenticated: false}
	if c, err := r.Cookie(hintCookie); err == nil {
		if hint, err := url.QueryUnescape(c.Value); err == nil {
			resp.Hint = hint
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUsers lists identities for the login selector. Usernames are not
// secrets in this single-household deployment model.
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

// handleAuthToken issues a short-lived bearer token for scripted clients.
// Accepts credentials in the body, or an empty body from an authenticated
// session.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id, ok := a.tokenIdentity(w, r)
	if !ok {
		return
	}
	tok, expiresAt, err := a.tokens.Issue(id, apiTokenTTL)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "token generation failed")
		return
	}
	a.audit(r.Context(), "auth.token.issued", map[string]any{
		"username":   id.Username,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, tokenResponse{Token: tok, ExpiresAt: expiresAt})
}

func (a *API) tokenIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	if r.ContentLength > 0 {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return identity.Identity{}, false
		}
		id, err := a.users.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return identity.Identity{}, false
		}
		return id, true
	}
	return requireIdentity(w, r)
}
