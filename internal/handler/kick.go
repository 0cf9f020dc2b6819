package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CapOVH/dasssb/internal/kick"
)

type KickHandler struct {
	client *kick.Client
	logger *slog.Logger
}

func NewKickHandler(client *kick.Client, logger *slog.Logger) *KickHandler {
	return &KickHandler{client: client, logger: logger}
}

// Channel serves GET /api/kick/{slug}: the normalized channel payload.
// An exhausted upstream degrades to an offline entry with 200 so the
// roster grid always has something to render.
func (h *KickHandler) Channel(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	streamer, err := h.client.Channel(r.Context(), slug)
	if err != nil {
		h.logger.Warn("channel proxy degraded to offline",
			slog.String("slug", slug), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, kick.Offline(slug))
		return
	}
	writeJSON(w, http.StatusOK, streamer)
}
