// Package session owns the authentication policy: it issues fingerprint-bound
// signed tokens and validates them against the current dataset fingerprint
// and clock. No session state is kept server-side; the token is the session.
package session

import (
	"errors"
	"time"

	"deckledger.org/internal/identity"
	"deckledger.org/internal/token"
)

// DefaultTTL is the authentication token lifetime.
const DefaultTTL = 12 * time.Hour

// HintTTL is the lifetime of the unsigned last-identity hint. The hint only
// pre-selects a login choice and is never accepted as proof of identity.
const HintTTL = 30 * 24 * time.Hour

// ErrNoSecret is returned by Issue when no signing secret is configured.
// Without a secret no persistable token is produced; session restore across
// reloads degrades to logging in again.
var ErrNoSecret = errors.New("session: signing secret is not configured")

type claims struct {
	UserID      int64       `json:"user_id"`
	Username    string      `json:"username"`
	ExpiresAt   int64       `json:"expires_at"`
	Fingerprint Fingerprint `json:"fingerprint"`
}

// Guard issues and restores session tokens.
type Guard struct {
	secret []byte
	ttl    time.Duration
	source Source
	now    func() time.Time
}

// Option configures Guard behavior.
type Option func(*Guard)

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(g *Guard) {
		if fn != nil {
			g.now = fn
		}
	}
}

// NewGuard constructs a Guard. secret may be empty, in which case Issue
// refuses and Restore never succeeds.
func NewGuard(secret []byte, source Source, opts ...Option) *Guard {
	g := &Guard{
		secret: secret,
		ttl:    DefaultTTL,
		source: source,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Issue mints a token binding the identity to the current dataset
// fingerprint and the configured TTL.
func (g *Guard) Issue(id identity.Identity) (string, time.Time, error) {
	if len(g.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	expiresAt := g.now().Add(g.ttl)
	tok, err := token.Encode(claims{
		UserID:      id.UserID,
		Username:    id.Username,
		ExpiresAt:   expiresAt.Unix(),
		Fingerprint: g.source.Current(),
	}, g.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, expiresAt, nil
}

// Restore validates tok and returns the embedded identity. Any failure —
// bad signature, malformed token, expiry, fingerprint mismatch, missing
// secret — reports false; callers fall back to anonymous and never learn
// which check failed.
func (g *Guard) Restore(tok string) (identity.Identity, bool) {
	if len(g.secret) == 0 || tok == "" {
		return identity.Identity{}, false
	}
	var c claims
	if !token.Decode(tok, g.secret, &c) {
		return identity.Identity{}, false
	}
	if g.now().Unix() > c.ExpiresAt {
		return identity.Identity{}, false
	}
	if c.Fingerprint != g.source.Current() {
		return identity.Identity{}, false
	}
	if c.UserID <= 0 || c.Username == "" {
		return identity.Identity{}, false
	}
	return identity.Identity{UserID: c.UserID, Username: c.Username}, true
}
