package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hailway.org/internal/principal"
)

// Claims carries the principal identity inside a signed token. Kind is a
// custom claim; everything else rides on the registered set.
type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 tokens with a fixed expiry horizon. The
// secret is injected at construction, loaded once at startup, and never
// rotated or logged.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the clock. Test use only.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer constructs an Issuer. The secret must be non-empty and the ttl
// positive; a process without a secret must not start.
func NewIssuer(secret, issuer string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be greater than zero")
	}
	i := &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL returns the expiry horizon applied to issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token asserting the given principal identity and kind.
// Tokens are immutable once issued; two tokens for the same principal are
// distinct (fresh jti and issued-at) and independently revocable.
func (i *Issuer) Issue(principalID string, kind principal.Kind) (string, time.Time, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return "", time.Time{}, errors.New("auth: principal id is required")
	}
	if _, ok := principal.ParseKind(string(kind)); !ok {
		return "", time.Time{}, fmt.Errorf("auth: unknown principal kind %q", kind)
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature integrity and expiry and returns the embedded
// identity. Failures map onto exactly one of ErrTokenMalformed,
// ErrBadSignature and ErrTokenExpired; callers must reject on any of them.
// Verification is pure computation plus a clock read: no storage round trip.
func (i *Issuer) Verify(token string) (string, principal.Kind, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", ErrTokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", "", ErrBadSignature
		default:
			return "", "", ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", "", ErrTokenMalformed
	}
	if i.issuer != "" && claims.Issuer != i.issuer {
		return "", "", ErrTokenMalformed
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", "", ErrTokenMalformed
	}
	kind, ok := principal.ParseKind(claims.Kind)
	if !ok {
		return "", "", ErrTokenMalformed
	}
	return subject, kind, nil
}

// ExpiryOf extracts the embedded expiry without verifying the signature. The
// revocation ledger uses it to size record retention; when a token does not
// even parse, callers fall back to now+TTL, which over-retains rather than
// under-retains.
func (i *Issuer) ExpiryOf(token string) (time.Time, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
