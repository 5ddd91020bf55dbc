package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"hailway.org/internal/auth"
	"hailway.org/internal/obs"
	"hailway.org/internal/principal"
)

const (
	authHeader  = "Authorization"
	bearer      = "Bearer "
	tokenCookie = "token"

	// One generic message for every rejection path: missing token, revoked,
	// bad signature, expired, unknown principal. The client never learns which.
	msgUnauthorized = "Unauthorized access"
	msgServerError  = "internal error"
)

// extractToken pulls the raw token from the request, cookie taking precedence
// over the bearer header.
func extractToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(tokenCookie); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, true
		}
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return "", false
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

// withPrincipal runs the full per-request auth flow for one principal kind:
// extract, revocation check, verify, load, attach. Any non-success outcome
// terminates the chain; downstream handlers never run after a rejection.
func (a *API) withPrincipal(kind principal.Kind, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractToken(r)
		if !ok {
			obs.AuthOutcome(string(kind), "missing_token")
			writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		// Revocation is checked before trusting any claim. A ledger failure
		// fails the request closed: better a spurious 500 than honoring a
		// logged-out token.
		revoked, err := a.ledger.IsRevoked(r.Context(), token)
		if err != nil {
			obs.AuthOutcome(string(kind), "ledger_error")
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}
		if revoked {
			obs.AuthOutcome(string(kind), "revoked")
			writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		id, tokenKind, err := a.issuer.Verify(token)
		if err != nil {
			obs.AuthOutcome(string(kind), tokenFailureOutcome(err))
			writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if tokenKind != kind {
			obs.AuthOutcome(string(kind), "kind_mismatch")
			writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		p, err := a.principals.FindByID(r.Context(), kind, id)
		if err != nil {
			if errors.Is(err, principal.ErrNotFound) {
				// A deleted principal is indistinguishable from a bad token.
				obs.AuthOutcome(string(kind), "principal_missing")
				writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			obs.AuthOutcome(string(kind), "store_error")
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}

		obs.AuthOutcome(string(kind), "ok")
		ctx := auth.ContextWithPrincipal(r.Context(), *p)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFailureOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
