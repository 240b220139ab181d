package session

import (
	"testing"
	"time"

	"deckledger.org/internal/identity"
)

type fakeSource struct{ fp Fingerprint }

func (f *fakeSource) Current() Fingerprint { return f.fp }

var alice = identity.Identity{UserID: 1, Username: "alice"}

func TestIssueRestoreRoundTrip(t *testing.T) {
	source := &fakeSource{fp: Fingerprint{Size: 1024, ModTime: 1700000000}}
	guard := NewGuard([]byte("secret"), source)

	tok, expiresAt, err := guard.Issue(alice)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	got, ok := guard.Restore(tok)
	if !ok {
		t.Fatal("Restore rejected a fresh token")
	}
	if got != alice {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestRestoreRejectsExpired(t *testing.T) {
	source := &fakeSource{fp: Fingerprint{Size: 1, ModTime: 2}}
	now := time.Now()
	guard := NewGuard([]byte("secret"), source, WithClock(func() time.Time { return now }))

	tok, _, err := guard.Issue(alice)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Same fingerprint, valid signature, clock past expiry.
	now = now.Add(DefaultTTL + time.Second)
	if _, ok := guard.Restore(tok); ok {
		t.Fatal("accepted an expired token")
	}
}

func TestRestoreRejectsFingerprintChange(t *testing.T) {
	source := &fakeSource{fp: Fingerprint{Size: 1024, ModTime: 1700000000}}
	guard := NewGuard([]byte("secret"), source)

	tok, _, err := guard.Issue(alice)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Dataset replaced: the unexpired token must die immediately.
	source.fp = Fingerprint{Size: 2048, ModTime: 1700000001}
	if _, ok := guard.Restore(tok); ok {
		t.Fatal("accepted a token issued against a different dataset")
	}

	// Restoring the original file restores the token.
	source.fp = Fingerprint{Size: 1024, ModTime: 1700000000}
	if _, ok := guard.Restore(tok); !ok {
		t.Fatal("rejected a token after fingerprint returned to match")
	}
}

func TestIssueWithoutSecretRefuses(t *testing.T) {
	guard := NewGuard(nil, &fakeSource{})
	if _, _, err := guard.Issue(alice); err != ErrNoSecret {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, ok := guard.Restore("anything"); ok {
		t.Fatal("Restore succeeded without a secret")
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	guard := NewGuard([]byte("secret"), &fakeSource{})
	for _, tok := range []string{"", "garbage", "a.b", "a.b.c"} {
		if _, ok := guard.Restore(tok); ok {
			t.Fatalf("accepted %q", tok)
		}
	}
}

func TestTokensFromDifferentGuardsAreIndependent(t *testing.T) {
	// Two browser tabs: each token stands alone; neither is tracked
	// centrally, so both restore until expiry or fingerprint change.
	source := &fakeSource{fp: Fingerprint{Size: 5, ModTime: 6}}
	guard := NewGuard([]byte("secret"), source)

	tok1, _, err := guard.Issue(alice)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	tok2, _, err := guard.Issue(identity.Identity{UserID: 2, Username: "bob"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if id, ok := guard.Restore(tok1); !ok || id != alice {
		t.Fatalf("tok1 restore failed: %+v ok=%v", id, ok)
	}
	if id, ok := guard.Restore(tok2); !ok || id.Username != "bob" {
		t.Fatalf("tok2 restore failed: %+v ok=%v", id, ok)
	}
}
