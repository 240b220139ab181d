package httpapi

import (
	"testing"
	"time"

	"deckledger.org/internal/identity"
)

func TestAPITokenRoundTrip(t *testing.T) {
	tokens := newAPITokens([]byte("unit-test-secret-0123456789"))
	id := identity.Identity{UserID: 7, Username: "alice"}

	tok, expiresAt, err := tokens.Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry in the past: %v", expiresAt)
	}

	got, err := tokens.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != id {
		t.Fatalf("identity mismatch: %+v", got)
	}
}

func TestAPITokenRejectsWrongSecret(t *testing.T) {
	issuer := newAPITokens([]byte("secret-one-0123456789abc"))
	verifier := newAPITokens([]byte("secret-two-0123456789abc"))

	tok, _, err := issuer.Issue(identity.Identity{UserID: 1, Username: "alice"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Parse(tok); err == nil {
		t.Fatal("token verified under wrong secret")
	}
}

func TestAPITokenRejectsExpired(t *testing.T) {
	tokens := newAPITokens([]byte("unit-test-secret-0123456789"))
	tok, _, err := tokens.Issue(identity.Identity{UserID: 1, Username: "alice"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tokens.Parse(tok); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestAPITokensDisabledWithoutSecret(t *testing.T) {
	tokens := newAPITokens(nil)
	if _, _, err := tokens.Issue(identity.Identity{UserID: 1, Username: "alice"}, time.Hour); err == nil {
		t.Fatal("expected issue to fail without secret")
	}
	if _, err := tokens.Parse("anything"); err == nil {
		t.Fatal("expected parse to fail without secret")
	}
}
