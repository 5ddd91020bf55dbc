package httpapi

import (
	"errors"
	"net/http"
	"time"

	"hailway.org/internal/audit"
	"hailway.org/internal/auth"
	"hailway.org/internal/obs"
	"hailway.org/internal/principal"
)

type vehicleRequest struct {
	Color       string `json:"color"`
	Plate       string `json:"plate"`
	Capacity    int    `json:"capacity"`
	VehicleType string `json:"vehicleType"`
}

type registerRequest struct {
	Fullname struct {
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
	} `json:"fullname"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Vehicle  *vehicleRequest `json:"vehicle,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string               `json:"token"`
	User  *principal.Principal `json:"user"`
}

func (a *API) handleRegister(kind principal.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}

		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if errs := validateRegister(req, kind); len(errs) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
			return
		}

		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}

		p := &principal.Principal{
			Kind:         kind,
			FirstName:    req.Fullname.Firstname,
			LastName:     req.Fullname.Lastname,
			Email:        principal.NormalizeEmail(req.Email),
			PasswordHash: hashed,
		}
		if kind == principal.KindCaptain {
			p.Status = principal.StatusInactive
			p.Vehicle = &principal.Vehicle{
				Color:    req.Vehicle.Color,
				Plate:    req.Vehicle.Plate,
				Capacity: req.Vehicle.Capacity,
				Type:     principal.VehicleType(req.Vehicle.VehicleType),
			}
		}

		if err := a.principals.Create(r.Context(), p); err != nil {
			if errors.Is(err, principal.ErrAlreadyExists) {
				writeError(w, r, http.StatusBadRequest, "User with this email already exists")
				return
			}
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}

		token, expiresAt, err := a.issuer.Issue(p.ID, kind)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}

		obs.TokenIssued(string(kind))
		_ = audit.LogEvent(r.Context(), "auth.registered", map[string]any{
			"kind":         string(kind),
			"principal_id": p.ID,
			"email":        p.Email,
		})

		setTokenCookie(w, token, expiresAt)
		writeJSON(w, http.StatusCreated, authResponse{Token: token, User: p})
	}
}

func (a *API) handleLogin(kind principal.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}

		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if errs := validateLogin(req); len(errs) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
			return
		}

		p, err := a.authenticate(r, kind, req)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, r, http.StatusUnauthorized, "Invalid email or password")
				return
			}
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}

		token, expiresAt, err := a.issuer.Issue(p.ID, kind)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}

		obs.TokenIssued(string(kind))
		_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
			"kind":         string(kind),
			"principal_id": p.ID,
		})

		setTokenCookie(w, token, expiresAt)
		writeJSON(w, http.StatusOK, authResponse{Token: token, User: p})
	}
}

// authenticate resolves email+password to a principal. Unknown email and wrong
// password both come back as ErrInvalidCredentials so the two stay
// indistinguishable to the client.
func (a *API) authenticate(r *http.Request, kind principal.Kind, req loginRequest) (*principal.Principal, error) {
	p, err := a.principals.FindByEmail(r.Context(), kind, req.Email)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(p.PasswordHash, req.Password) {
		return nil, auth.ErrInvalidCredentials
	}
	return p, nil
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": &p})
}

func (a *API) handleLogout(kind principal.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		token, ok := auth.TokenFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		// Retention is the token's own expiry; when it cannot be read, keep
		// the record for a full TTL from now, which can only over-retain.
		expiresAt, ok := a.issuer.ExpiryOf(token)
		if !ok {
			expiresAt = time.Now().UTC().Add(a.issuer.TTL())
		}
		if err := a.ledger.Revoke(r.Context(), token, expiresAt); err != nil {
			writeError(w, r, http.StatusInternalServerError, msgServerError)
			return
		}

		obs.TokenRevoked(string(kind))
		_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
			"kind": string(kind),
		})

		clearTokenCookie(w)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
	}
}

func setTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
