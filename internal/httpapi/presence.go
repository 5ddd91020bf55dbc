package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"hailway.org/internal/audit"
	"hailway.org/internal/auth"
	"hailway.org/internal/principal"
	"hailway.org/internal/stream"
)

type presenceRequest struct {
	Status   string              `json:"status"`
	Location *principal.Location `json:"location,omitempty"`
}

// handlePresence lets an authenticated captain flip availability and report a
// live location. Updates are persisted and fanned out to the rider feed.
func (a *API) handlePresence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req presenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := principal.Status(req.Status)
	if status != principal.StatusActive && status != principal.StatusInactive {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []fieldError{
			{Path: "status", Msg: "Status must be active or inactive"},
		}})
		return
	}

	if err := a.principals.UpdatePresence(r.Context(), p.Kind, p.ID, status, req.Location); err != nil {
		writeError(w, r, http.StatusInternalServerError, msgServerError)
		return
	}

	evt := stream.PresenceEvent{
		CaptainID: p.ID,
		Status:    status,
		Location:  req.Location,
		Timestamp: time.Now().UTC(),
	}
	if a.presence != nil {
		a.presence.Publish(evt)
	}
	_ = audit.LogEvent(r.Context(), "captain.presence", map[string]any{
		"status": string(status),
	})

	writeJSON(w, http.StatusOK, evt)
}

// handleFeed streams presence events to an authenticated rider over SSE.
func (a *API) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.presence == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.presence.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
