package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"hailway.org/internal/auth"
	"hailway.org/internal/obs"
	"hailway.org/internal/principal"
	"hailway.org/internal/revoke"
	"hailway.org/internal/stream"
)

// ReadyProbe — простая проверка готовности (ping БД, если она настроена).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API — HTTP слой.
type API struct {
	mux        *http.ServeMux
	issuer     *auth.Issuer
	principals principal.Store
	ledger     revoke.Ledger
	presence   *stream.Stream
	readyProbe ReadyProbe
	version    string

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

func New(rp ReadyProbe, version string, issuer *auth.Issuer, principals principal.Store, ledger revoke.Ledger, presence *stream.Stream) *API {
	a := &API{
		mux:          http.NewServeMux(),
		issuer:       issuer,
		principals:   principals,
		ledger:       ledger,
		presence:     presence,
		readyProbe:   rp,
		version:      version,
		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// rider auth flow
	a.mux.HandleFunc("/v1/riders/register", a.handleRegister(principal.KindRider))
	a.mux.HandleFunc("/v1/riders/login", a.handleLogin(principal.KindRider))
	a.mux.Handle("/v1/riders/profile", a.withPrincipal(principal.KindRider, http.HandlerFunc(a.handleProfile)))
	a.mux.Handle("/v1/riders/logout", a.withPrincipal(principal.KindRider, a.handleLogout(principal.KindRider)))

	// captain auth flow: same composition, different store namespace and kind tag
	a.mux.HandleFunc("/v1/captains/register", a.handleRegister(principal.KindCaptain))
	a.mux.HandleFunc("/v1/captains/login", a.handleLogin(principal.KindCaptain))
	a.mux.Handle("/v1/captains/profile", a.withPrincipal(principal.KindCaptain, http.HandlerFunc(a.handleProfile)))
	a.mux.Handle("/v1/captains/logout", a.withPrincipal(principal.KindCaptain, a.handleLogout(principal.KindCaptain)))

	// captain presence + live feed for riders
	a.mux.Handle("/v1/captains/presence", a.withPrincipal(principal.KindCaptain, http.HandlerFunc(a.handlePresence)))
	a.mux.Handle("/v1/captains/feed", a.withPrincipal(principal.KindRider, http.HandlerFunc(a.handleFeed)))

	// корень — 404
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// SetRateLimit overrides the default per-IP rate limit knobs.
func (a *API) SetRateLimit(burst, perSec int) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSec > 0 {
		a.ratePerSec = perSec
	}
}

// SetMaxBodyBytes overrides the request body size cap.
func (a *API) SetMaxBodyBytes(n int64) {
	if n > 0 {
		a.maxBodyBytes = n
	}
}

// Handler возвращает http.Handler для сервера.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	// оборачиваем весь стек метриками
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hailway-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "hailway-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
