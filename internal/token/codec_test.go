package token

import (
	"encoding/base64"
	"strings"
	"testing"
)

type testPayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Expires  int64  `json:"expires_at"`
}

var secret = []byte("test-secret")

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := testPayload{UserID: 1, Username: "alice", Expires: 1700000000}
	tok, err := Encode(in, secret)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Count(tok, ".") != 1 {
		t.Fatalf("expected exactly one separator, got %q", tok)
	}

	var out testPayload
	if !Decode(tok, secret, &out) {
		t.Fatal("Decode rejected a valid token")
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	in := testPayload{UserID: 7, Username: "bob", Expires: 42}
	a, err := Encode(in, secret)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(in, secret)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if a != b {
		t.Fatalf("same payload produced different tokens:\n%s\n%s", a, b)
	}
}

func TestDecodeRejectsTamperedSignature(t *testing.T) {
	tok, err := Encode(testPayload{UserID: 1, Username: "alice"}, secret)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	payloadPart, macPart, _ := strings.Cut(tok, ".")
	mac, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil {
		t.Fatalf("decode mac segment: %v", err)
	}

	// Flipping any single byte of the signature must fail decode.
	for i := range mac {
		tampered := make([]byte, len(mac))
		copy(tampered, mac)
		tampered[i] ^= 0x01
		bad := payloadPart + "." + base64.RawURLEncoding.EncodeToString(tampered)
		var out testPayload
		if Decode(bad, secret, &out) {
			t.Fatalf("accepted token with signature byte %d flipped", i)
		}
	}
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	tok, err := Encode(testPayload{UserID: 1, Username: "alice"}, secret)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, macPart, _ := strings.Cut(tok, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"user_id":2,"username":"mallory","expires_at":0}`))
	var out testPayload
	if Decode(forged+"."+macPart, secret, &out) {
		t.Fatal("accepted token with replaced payload")
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"no-separator",
		".",
		"a.",
		".b",
		"!!!.###",
		"a.b.c." + strings.Repeat("x", 10),
	}
	for _, tok := range cases {
		var out testPayload
		if Decode(tok, secret, &out) {
			t.Fatalf("accepted malformed token %q", tok)
		}
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	tok, err := Encode(testPayload{UserID: 1, Username: "alice"}, secret)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out testPayload
	if Decode(tok, []byte("other-secret"), &out) {
		t.Fatal("accepted token signed with a different secret")
	}
}

func TestDecodeRejectsNonJSONPayload(t *testing.T) {
	data := []byte("plain text")
	forged := base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(sign(data, secret))
	var out testPayload
	if Decode(forged, secret, &out) {
		t.Fatal("accepted correctly signed non-JSON payload")
	}
}
