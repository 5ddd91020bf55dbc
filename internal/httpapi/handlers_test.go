package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hailway.org/internal/auth"
	"hailway.org/internal/principal"
	"hailway.org/internal/revoke"
	"hailway.org/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type testBackend struct {
	issuer     *auth.Issuer
	principals *principal.Memory
	ledger     revoke.Ledger
	presence   *stream.Stream
}

func newTestAPI(t *testing.T) (*apiClient, *testBackend) {
	t.Helper()

	issuer, err := auth.NewIssuer("test-secret", "hailway-test", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	backend := &testBackend{
		issuer:     issuer,
		principals: principal.NewMemory(),
		ledger:     revoke.NewMemory(),
		presence:   stream.New(),
	}

	api := New(ReadyProbe{}, "test", issuer, backend.principals, backend.ledger, backend.presence)
	api.SetRateLimit(1000, 1000)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}, backend
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodGet, path, nil, headers)
}

func decodeBody(t *testing.T, resp *http.Response, dst any) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return string(raw)
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func riderRegistration(email string) map[string]any {
	return map[string]any{
		"fullname": map[string]any{"firstname": "Alice", "lastname": "Smith"},
		"email":    email,
		"password": "secret1",
	}
}

func captainRegistration(email string) map[string]any {
	return map[string]any{
		"fullname": map[string]any{"firstname": "Bauyrzhan", "lastname": "Seitov"},
		"email":    email,
		"password": "secret1",
		"vehicle": map[string]any{
			"color":       "black",
			"plate":       "KZ 777 ABC",
			"capacity":    4,
			"vehicleType": "car",
		},
	}
}

func TestRiderAuthLifecycle(t *testing.T) {
	c, _ := newTestAPI(t)

	// Register.
	resp := c.post("/v1/riders/register", riderRegistration("a@x.com"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var registered struct {
		Token string              `json:"token"`
		User  principal.Principal `json:"user"`
	}
	raw := decodeBody(t, resp, &registered)
	if registered.Token == "" {
		t.Fatal("expected token in register response")
	}
	if registered.User.ID == "" || registered.User.Email != "a@x.com" {
		t.Fatalf("unexpected user: %+v", registered.User)
	}
	if strings.Contains(raw, "password") {
		t.Fatalf("register response leaks password material: %s", raw)
	}

	// Login issues a fresh token.
	resp = c.post("/v1/riders/login", map[string]any{"email": "a@x.com", "password": "secret1"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var loggedIn struct {
		Token string              `json:"token"`
		User  principal.Principal `json:"user"`
	}
	decodeBody(t, resp, &loggedIn)
	if loggedIn.Token == "" {
		t.Fatal("expected token in login response")
	}
	if loggedIn.User.ID != registered.User.ID {
		t.Fatalf("login returned a different principal: %s != %s", loggedIn.User.ID, registered.User.ID)
	}

	// Profile with the login token.
	resp = c.get("/v1/riders/profile", bearerHeader(loggedIn.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", resp.StatusCode)
	}
	var profile struct {
		User principal.Principal `json:"user"`
	}
	decodeBody(t, resp, &profile)
	if profile.User.ID != registered.User.ID {
		t.Fatalf("profile id mismatch: %s != %s", profile.User.ID, registered.User.ID)
	}

	// Logout revokes the token and clears the cookie.
	resp = c.get("/v1/riders/logout", bearerHeader(loggedIn.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)
	var cleared bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "token" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected logout to clear the token cookie")
	}

	// The revoked token is dead even though it has not expired.
	resp = c.get("/v1/riders/profile", bearerHeader(loggedIn.Token))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("profile after logout: expected 401, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)

	// The registration token was issued separately and is still alive.
	resp = c.get("/v1/riders/profile", bearerHeader(registered.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile with register token: expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	c, backend := newTestAPI(t)

	resp := c.post("/v1/riders/register", riderRegistration("a@x.com"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)

	resp = c.post("/v1/riders/register", riderRegistration("A@x.com"), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", resp.StatusCode)
	}
	var body struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &body)
	if body.Message != "User with this email already exists" {
		t.Fatalf("unexpected message: %q", body.Message)
	}

	// No second principal and no token: login still matches exactly one.
	if _, err := backend.principals.FindByEmail(context.Background(), principal.KindRider, "a@x.com"); err != nil {
		t.Fatalf("original principal lost: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	c, _ := newTestAPI(t)

	cases := map[string]map[string]any{
		"bad email": {
			"fullname": map[string]any{"firstname": "Alice"},
			"email":    "not-an-email",
			"password": "secret1",
		},
		"short firstname": {
			"fullname": map[string]any{"firstname": "Al"},
			"email":    "a@x.com",
			"password": "secret1",
		},
		"short password": {
			"fullname": map[string]any{"firstname": "Alice"},
			"email":    "a@x.com",
			"password": "12345",
		},
	}
	for name, payload := range cases {
		resp := c.post("/v1/riders/register", payload, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.StatusCode)
		}
		var body struct {
			Errors []fieldError `json:"errors"`
		}
		decodeBody(t, resp, &body)
		if len(body.Errors) == 0 {
			t.Fatalf("%s: expected validation errors", name)
		}
	}
}

func TestCaptainRegisterRequiresVehicle(t *testing.T) {
	c, _ := newTestAPI(t)

	payload := captainRegistration("c@x.com")
	delete(payload, "vehicle")
	resp := c.post("/v1/captains/register", payload, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)

	resp = c.post("/v1/captains/register", captainRegistration("c@x.com"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var registered struct {
		Token string              `json:"token"`
		User  principal.Principal `json:"user"`
	}
	decodeBody(t, resp, &registered)
	if registered.User.Vehicle == nil || registered.User.Vehicle.Type != principal.VehicleCar {
		t.Fatalf("vehicle not persisted: %+v", registered.User.Vehicle)
	}
	if registered.User.Status != principal.StatusInactive {
		t.Fatalf("expected inactive status on registration, got %s", registered.User.Status)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	c, _ := newTestAPI(t)

	resp := c.post("/v1/riders/register", riderRegistration("a@x.com"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)

	// Unknown email and wrong password must be indistinguishable.
	var bodies [2]string
	for i, payload := range []map[string]any{
		{"email": "b@x.com", "password": "secret1"},
		{"email": "a@x.com", "password": "wrong-password"},
	} {
		resp := c.post("/v1/riders/login", payload, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
		var body struct {
			Message string `json:"message"`
		}
		decodeBody(t, resp, &body)
		bodies[i] = body.Message
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("credential failures are distinguishable: %q vs %q", bodies[0], bodies[1])
	}
}

func TestKindIsolation(t *testing.T) {
	c, _ := newTestAPI(t)

	resp := c.post("/v1/riders/register", riderRegistration("a@x.com"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var registered struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &registered)

	// A rider token never authenticates the captain surface.
	resp = c.get("/v1/captains/profile", bearerHeader(registered.Token))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for cross-kind token, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)
}

func TestCaptainPresencePublishes(t *testing.T) {
	c, backend := newTestAPI(t)

	resp := c.post("/v1/captains/register", captainRegistration("c@x.com"), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var registered struct {
		Token string              `json:"token"`
		User  principal.Principal `json:"user"`
	}
	decodeBody(t, resp, &registered)

	events := backend.presence.Subscribe(context.Background())

	resp = c.post("/v1/captains/presence", map[string]any{
		"status":   "active",
		"location": map[string]any{"lat": 43.2389, "lng": 76.8897},
	}, bearerHeader(registered.Token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("presence: expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, nil)

	select {
	case evt := <-events:
		if evt.CaptainID != registered.User.ID || evt.Status != principal.StatusActive {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.Location == nil || evt.Location.Lat != 43.2389 {
			t.Fatalf("location missing from event: %+v", evt.Location)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no presence event received")
	}

	p, err := backend.principals.FindByID(context.Background(), principal.KindCaptain, registered.User.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if p.Status != principal.StatusActive || p.Location == nil {
		t.Fatalf("presence not persisted: %+v", p)
	}
}

func TestHealthAndInfo(t *testing.T) {
	c, _ := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := c.get(path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		decodeBody(t, resp, nil)
	}
}
