package handlers

import (
	"net/http"
)

// ListRequests handles GET /request. Maps every live request id to its
// current state.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.registry.ListStates())
}

// SweepRequests handles DELETE /request. Drops every finished request and
// reports how many were cleaned.
func (h *Handler) SweepRequests(w http.ResponseWriter, r *http.Request) {
	removed := h.registry.Sweep()
	h.sendJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// GetRequest handles GET /request/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	req, ok := h.registry.Get(id)
	if !ok {
		h.sendError(w, http.StatusNotFound, "Unknown request id "+id)
		return
	}
	h.sendJSON(w, http.StatusOK, req.Snapshot())
}

// CancelRequest handles DELETE /request/{id}. Cancellation only forgets the
// request; commands already dispatched keep executing on the cluster.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if !h.registry.Cancel(id) {
		h.sendError(w, http.StatusNotFound, "Unknown request id "+id)
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]bool{"canceled": true})
}
