package api

import (
	"log/slog"
	"net/http"

	"github.com/fleetops/rollctl/internal/service"
)

// Rollout handles POST /api/rollout
func (h *Handler) Rollout(w http.ResponseWriter, r *http.Request) {
	var req service.RolloutRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := h.fleet.Rollout(r.Context(), req)
	if err != nil {
		h.logger.Error("rollout request failed",
			slog.String("error", err.Error()),
		)
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Per-host failures are part of a successful response; only
	// configuration-class errors reach the branch above.
	h.respondJSON(w, http.StatusOK, report)
}
