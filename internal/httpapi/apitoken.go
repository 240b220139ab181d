package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"deckledger.org/internal/identity"
)

// apiTokens issues short-lived bearer tokens for scripted clients (backup
// cron jobs driving export/import). Separate from the session cookie: these
// are standard JWTs, not fingerprint-bound.
type apiTokens struct {
	secret []byte
}

type apiClaims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

var errTokensDisabled = errors.New("api tokens are not configured")

func newAPITokens(secret []byte) *apiTokens {
	return &apiTokens{secret: secret}
}

func (t *apiTokens) Enabled() bool { return len(t.secret) > 0 }

func (t *apiTokens) Issue(id identity.Identity, ttl time.Duration) (string, time.Time, error) {
	if !t.Enabled() {
		return "", time.Time{}, errTokensDisabled
	}
	expiresAt := time.Now().UTC().Add(ttl)
	claims := apiClaims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "deckledger",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (t *apiTokens) Parse(raw string) (identity.Identity, error) {
	if !t.Enabled() {
		return identity.Identity{}, errTokensDisabled
	}
	var claims apiClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithIssuer("deckledger"), jwt.WithExpirationRequired())
	if err != nil {
		return identity.Identity{}, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.Username == "" {
		return identity.Identity{}, errors.New("malformed token claims")
	}
	return identity.Identity{UserID: userID, Username: claims.Username}, nil
}
