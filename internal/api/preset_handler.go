package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/rollctl/internal/model"
)

// presetListResponse is the body of GET /api/presets
type presetListResponse struct {
	Presets []string `json:"presets"`
}

// ListPresets handles GET /api/presets
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	ids := h.fleet.ListPresets(r.Context())
	h.respondJSON(w, http.StatusOK, presetListResponse{Presets: ids})
}

// GetPreset handles GET /api/presets/{id}
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.fleet.GetPreset(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

// EstimateCost handles POST /api/cost/estimate
func (h *Handler) EstimateCost(w http.ResponseWriter, r *http.Request) {
	var req model.CostRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	estimate, err := h.fleet.EstimateCost(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, estimate)
}
