package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/user/livecast-service/internal/delivery/http/response"
	"github.com/user/livecast-service/internal/entity"
	"github.com/user/livecast-service/internal/playlist"
	"github.com/user/livecast-service/internal/usecase"
	"go.uber.org/zap"
)

const (
	defaultFailuresLimit = 50
	maxFailuresLimit     = 500
	retryAfterSeconds    = "30"
)

type Handler struct {
	playlists usecase.PlaylistService
	logger    *zap.Logger
}

func NewHandler(playlists usecase.PlaylistService, logger *zap.Logger) *Handler {
	return &Handler{
		playlists: playlists,
		logger:    logger,
	}
}

func (h *Handler) HandlePlaylistText(w http.ResponseWriter, r *http.Request) {
	h.writePlaylist(w, "text/plain; charset=utf-8", "", playlist.RenderText)
}

func (h *Handler) HandlePlaylistM3U(w http.ResponseWriter, r *http.Request) {
	h.writePlaylist(w, "audio/x-mpegurl; charset=utf-8", "", playlist.RenderM3U)
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	h.writePlaylist(w, "text/plain; charset=utf-8", "live.txt", playlist.RenderText)
}

func (h *Handler) writePlaylist(w http.ResponseWriter, contentType, attachment string, render func(*entity.PlaylistSnapshot) string) {
	snap, ok := h.playlists.Current()
	if !ok {
		w.Header().Set("Retry-After", retryAfterSeconds)
		http.Error(w, "playlist not ready yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Last-Modified", snap.GeneratedAt.UTC().Format(http.TimeFormat))
	if attachment != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+attachment+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(render(snap))); err != nil {
		h.logger.Debug("failed to write playlist", zap.Error(err))
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.playlists.Health()
	status := http.StatusOK
	if health.LastSuccessfulCycle == nil {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response.NewHealthResponse(health))
}

func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.playlists.Current()
	if !ok {
		w.Header().Set("Retry-After", retryAfterSeconds)
		h.writeJSONError(w, "No playlist published yet", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleFailures(w http.ResponseWriter, r *http.Request) {
	limit := defaultFailuresLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxFailuresLimit)
	}

	failures, err := h.playlists.RecentFailures(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load channel failures", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FailuresResponse{Count: len(failures), Failures: failures})
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.playlists.Refresh()
	h.writeJSON(w, http.StatusAccepted, response.RefreshResponse{
		Status:  "accepted",
		Message: "Crawl cycle triggered",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
