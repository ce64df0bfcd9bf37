package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fleetops/rollctl/internal/metrics"
	"github.com/fleetops/rollctl/internal/service"
)

// Validate handles POST /api/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req service.ValidationRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.fleet.Validate(r.Context(), req)
	if err != nil {
		h.logger.Error("validation request failed",
			slog.String("error", err.Error()),
		)
		if errors.Is(err, metrics.ErrCircuitOpen) {
			h.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}
