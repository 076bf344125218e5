package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"NewsBlast/internal/orchestrator"
	"NewsBlast/internal/progress"
)

// Handler exposes the engine's HTTP contract: one POST per chunk, driven
// sequentially by an external scheduler or the admin UI, plus a status view
// for the per-round summary counts.
type Handler struct {
	Orch  *orchestrator.Orchestrator
	Store progress.Store
	Log   *zap.Logger
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/newsletters/send-chunk", h.SendChunk)
	r.Get("/api/newsletters/{id}/status", h.Status)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (h *Handler) SendChunk(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.ChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
		return
	}

	resp, err := h.Orch.SendChunk(r.Context(), &req)
	if err != nil {
		var verr *orchestrator.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Msg})
		case errors.Is(err, progress.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "newsletter not found"})
		default:
			h.Log.Error("send chunk failed",
				zap.String("newsletter_id", req.NewsletterID),
				zap.Int("chunk_index", req.ChunkIndex),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, orchestrator.ChunkResponse{
				Success: false,
				Error:   err.Error(),
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "newsletter not found"})
			return
		}
		h.Log.Error("status lookup failed", zap.String("newsletter_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, n)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
