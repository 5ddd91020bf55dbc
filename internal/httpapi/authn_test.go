package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hailway.org/internal/auth"
	"hailway.org/internal/principal"
	"hailway.org/internal/revoke"
	"hailway.org/internal/stream"
)

type failingLedger struct{}

func (failingLedger) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	return errors.New("ledger down")
}

func (failingLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	return false, errors.New("ledger down")
}

func newAuthnFixture(t *testing.T, ledger revoke.Ledger) (*API, string, *principal.Principal) {
	t.Helper()

	issuer, err := auth.NewIssuer("test-secret", "hailway-test", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	store := principal.NewMemory()
	p := &principal.Principal{Kind: principal.KindRider, FirstName: "Alice", Email: "a@x.com", PasswordHash: "h"}
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, _, err := issuer.Issue(p.ID, principal.KindRider)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	api := New(ReadyProbe{}, "test", issuer, store, ledger, stream.New())
	return api, token, p
}

func okProbe(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestWithPrincipalMissingToken(t *testing.T) {
	api, _, _ := newAuthnFixture(t, revoke.NewMemory())
	probe, called := okProbe(t)
	handler := api.withPrincipal(principal.KindRider, probe)

	req := httptest.NewRequest(http.MethodGet, "/v1/riders/profile", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if *called {
		t.Fatal("downstream handler ran after rejection")
	}
}

func TestWithPrincipalBearerHeader(t *testing.T) {
	api, token, p := newAuthnFixture(t, revoke.NewMemory())
	handler := api.withPrincipal(principal.KindRider, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := auth.PrincipalFromContext(r.Context())
		if !ok || got.ID != p.ID {
			t.Fatalf("principal not attached: %+v ok=%v", got, ok)
		}
		if raw, ok := auth.TokenFromContext(r.Context()); !ok || raw != token {
			t.Fatal("raw token not attached to context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/riders/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestWithPrincipalCookieTakesPrecedence(t *testing.T) {
	api, token, _ := newAuthnFixture(t, revoke.NewMemory())
	probe, called := okProbe(t)
	handler := api.withPrincipal(principal.KindRider, probe)

	// A garbage cookie must not fall through to the valid bearer header.
	req := httptest.NewRequest(http.MethodGet, "/v1/riders/profile", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when cookie token is invalid, got %d", rr.Code)
	}
	if *called {
		t.Fatal("downstream handler ran after rejection")
	}

	// A valid cookie alone authenticates.
	req = httptest.NewRequest(http.MethodGet, "/v1/riders/profile", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with cookie auth, got %d", rr.Code)
	}
}

func TestWithPrincipalRevokedToken(t *testing.T) {
	ledger := revoke.NewMemory()
	api, token, _ := newAuthnFixture(t, ledger)
	probe, called := okProbe(t)
	handler := api.withPrincipal(principal.KindRider, probe)

	// A revoked token fails the full flow even though Verify alone would
	// still report it as signature-valid and unexpired.
	if _, _, err := api.issuer.Verify(token); err != nil {
		t.Fatalf("token should verify in isolation: %v", err)
	}
	if err := ledger.Revoke(context.Background(), token, time.Now().UTC().Add(24*time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/riders/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rr.Code)
	}
	if *called {
		t.Fatal("downstream handler ran after rejection")
	}
}

func TestWithPrincipalLedgerFailureFailsClosed(t *testing.T) {
	api, token, _ := newAuthnFixture(t, failingLedger{})
	probe, called := okProbe(t)
	handler := api.withPrincipal(principal.KindRider, probe)

	req := httptest.NewRequest(http.MethodGet, "/v1/riders/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on ledger failure, got %d", rr.Code)
	}
	if *called {
		t.Fatal("downstream handler ran despite ledger failure")
	}
}

func TestWithPrincipalDeletedPrincipal(t *testing.T) {
	api, _, _ := newAuthnFixture(t, revoke.NewMemory())
	probe, called := okProbe(t)
	handler := api.withPrincipal(principal.KindRider, probe)

	// A token whose subject no longer exists behaves like a bad token.
	orphan, _, err := api.issuer.Issue("deleted-principal", principal.KindRider)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/riders/profile", nil)
	req.Header.Set("Authorization", "Bearer "+orphan)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted principal, got %d", rr.Code)
	}
	if *called {
		t.Fatal("downstream handler ran after rejection")
	}
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := extractToken(req); ok {
		t.Fatal("expected no token on bare request")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	if _, ok := extractToken(req); ok {
		t.Fatal("expected non-bearer scheme to be rejected")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer lower-case")
	token, ok := extractToken(req)
	if !ok || token != "lower-case" {
		t.Fatalf("case-insensitive scheme: got %q ok=%v", token, ok)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	token, ok = extractToken(req)
	if !ok || token != "from-cookie" {
		t.Fatalf("cookie precedence: got %q ok=%v", token, ok)
	}
}
