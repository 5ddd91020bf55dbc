package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the two are indistinguishable to a client.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// Token verification failures. Callers reject the request on any of the
	// three; the split exists only for logging and metrics.
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrBadSignature   = errors.New("auth: token signature invalid")
	ErrTokenExpired   = errors.New("auth: token expired")
)
