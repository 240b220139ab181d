// Package token implements the signed, self-contained token format used for
// browser sessions: base64url(payload) + "." + base64url(mac), where the mac
// is HMAC-SHA256 over the serialized payload bytes.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Encode serializes payload to JSON and appends an HMAC-SHA256 signature.
// Struct payloads serialize with stable field order, so equal payloads
// always produce equal tokens under the same secret.
func Encode(payload any, secret []byte) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := sign(data, secret)
	return base64.RawURLEncoding.EncodeToString(data) + "." + base64.RawURLEncoding.EncodeToString(mac), nil
}

// Decode recovers the payload into dst and reports whether the token is
// authentic. Malformed input, bad base64, a failed signature check and a
// non-JSON payload all report false the same way; callers cannot tell a
// tampered token from a broken one.
func Decode(tok string, secret []byte, dst any) bool {
	payloadPart, macPart, ok := strings.Cut(tok, ".")
	if !ok || payloadPart == "" || macPart == "" {
		return false
	}
	data, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return false
	}
	mac, err := base64.RawURLEncoding.DecodeString(macPart)
	if err != nil {
		return false
	}
	expected := sign(data, secret)
	if subtle.ConstantTimeCompare(mac, expected) != 1 {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false
	}
	return true
}

func sign(data, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return mac.Sum(nil)
}
