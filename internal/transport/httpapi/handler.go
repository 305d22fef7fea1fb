// Package httpapi serves the REST surface of the service: the push
// endpoint for producers, read and export endpoints for the aggregate,
// health, version and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
	"github.com/edumarques81/stellar-media-internals/internal/render"
	"github.com/edumarques81/stellar-media-internals/internal/version"
)

// MaxPushBytes bounds the body of a push request.
const MaxPushBytes = 1 << 20

// Pusher accepts inbound pushes. *ingest.Adapter satisfies it.
type Pusher interface {
	Ingest(kind ingest.Kind, raw json.RawMessage) error
}

// Handler exposes the aggregate over HTTP.
type Handler struct {
	manager *media.Manager
	pusher  Pusher
	checks  map[string]func() error
	resync  func(ctx context.Context) error
}

// NewHandler returns a Handler reading manager and pushing through pusher.
// checks are reported by the health endpoint; a failing check makes the
// service unhealthy.
func NewHandler(manager *media.Manager, pusher Pusher, checks map[string]func() error) *Handler {
	return &Handler{manager: manager, pusher: pusher, checks: checks}
}

// OnRequestEverything sets the function asking every source to resend its
// full state.
func (h *Handler) OnRequestEverything(fn func(ctx context.Context) error) {
	h.resync = fn
}

// RequestEverything handles POST /api/v1/request-everything.
func (h *Handler) RequestEverything(w http.ResponseWriter, r *http.Request) {
	if h.resync == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err := h.resync(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Push handles POST /api/v1/push/{kind}.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	kind := ingest.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusNotFound, ingest.ErrUnknownKind)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPushBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	if err := h.pusher.Ingest(kind, body); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrInvalidPayload) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ListPlayers handles GET /api/v1/players.
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	writeExport(w, h.manager.Players())
}

// GetPlayer handles GET /api/v1/players/{id}.
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	key, ok := playerKey(w, r)
	if !ok {
		return
	}
	player, found := h.manager.Player(key)
	if !found {
		writeError(w, http.StatusNotFound, media.ErrUnknownPlayer)
		return
	}
	writeExport(w, player)
}

// DeletePlayer handles DELETE /api/v1/players/{id}.
func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	key, ok := playerKey(w, r)
	if !ok {
		return
	}
	if _, found := h.manager.Player(key); !found {
		writeError(w, http.StatusNotFound, media.ErrUnknownPlayer)
		return
	}
	h.manager.RemovePlayer(key)
	w.WriteHeader(http.StatusNoContent)
}

// ListAudioComponents handles GET /api/v1/audio-components.
func (h *Handler) ListAudioComponents(w http.ResponseWriter, r *http.Request) {
	writeExport(w, render.ComponentExport(h.manager.AudioComponents()))
}

// Export handles GET /api/v1/export: every player as a downloadable file.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="`+render.ExportFileName+`"`)
	writeExport(w, h.manager.Players())
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "players": h.manager.PlayerCount()}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(); err != nil {
			resp[name] = err.Error()
			resp["status"] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		resp[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// Version handles GET /api/v1/version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func playerKey(w http.ResponseWriter, r *http.Request) (media.PlayerKey, bool) {
	key, err := media.ParsePlayerKey(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return media.PlayerKey{}, false
	}
	return key, true
}

func writeExport(w http.ResponseWriter, v any) {
	data, err := render.MarshalExport(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
