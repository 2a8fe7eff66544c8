package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/reef-labs/reefd/internal/auth"
	"github.com/reef-labs/reefd/internal/models"
)

// GetAuthSettings handles GET /auth
func (h *Handler) GetAuthSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.db.GetSettings(r.Context())
	if err != nil {
		if h.handleContextError(r.Context(), "get auth settings", r) {
			return
		}
		h.logger.Error("Failed to read auth settings", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to read auth settings")
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]bool{"auth_enabled": settings.AuthEnabled})
}

// PatchAuthSettings handles PATCH /auth. Toggles API key enforcement at
// runtime; the middleware re-reads the persisted flag, so the change takes
// effect on the next request.
func (h *Handler) PatchAuthSettings(w http.ResponseWriter, r *http.Request) {
	var args struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if args.Enabled == nil {
		h.sendError(w, http.StatusBadRequest, "Argument \"enabled\" is missing")
		return
	}

	settings, err := h.db.GetSettings(r.Context())
	if err != nil {
		if h.handleContextError(r.Context(), "update auth settings", r) {
			return
		}
		h.logger.Error("Failed to read auth settings", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to update auth settings")
		return
	}

	settings.AuthEnabled = *args.Enabled
	if err := h.db.UpdateSettings(r.Context(), settings); err != nil {
		if h.handleContextError(r.Context(), "update auth settings", r) {
			return
		}
		h.logger.Error("Failed to update auth settings", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to update auth settings")
		return
	}

	h.logger.Info("Updated auth enforcement", "enabled", settings.AuthEnabled)
	h.sendJSON(w, http.StatusOK, map[string]bool{"auth_enabled": settings.AuthEnabled})
}

// CreateAPIKey handles POST /auth/key/{name}. The generated key value is
// only ever returned here.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	existing, err := h.db.GetAPIKeyByName(r.Context(), name)
	if err != nil {
		if h.handleContextError(r.Context(), "create API key", r) {
			return
		}
		h.logger.Error("Failed to look up API key", "name", name, "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}
	if existing != nil {
		h.sendError(w, http.StatusConflict, "API key "+name+" already exists")
		return
	}

	value, err := auth.GenerateKey()
	if err != nil {
		h.logger.Error("Failed to generate API key", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	key := &models.APIKey{Name: name, Key: value}
	if err := h.db.CreateAPIKey(r.Context(), key); err != nil {
		if h.handleContextError(r.Context(), "create API key", r) {
			return
		}
		h.logger.Error("Failed to store API key", "name", name, "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	h.logger.Info("Created API key", "name", name)
	h.sendJSON(w, http.StatusCreated, map[string]string{
		"name": name,
		"key":  value,
	})
}

// ListAPIKeys handles GET /auth/key. Key values are masked.
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.db.ListAPIKeys(r.Context())
	if err != nil {
		if h.handleContextError(r.Context(), "list API keys", r) {
			return
		}
		h.logger.Error("Failed to list API keys", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}

	out := make([]models.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, key.ToResponse())
	}
	h.sendJSON(w, http.StatusOK, out)
}

// DeleteAPIKey handles DELETE /auth/key/{name}
func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	removed, err := h.db.DeleteAPIKeyByName(r.Context(), name)
	if err != nil {
		if h.handleContextError(r.Context(), "delete API key", r) {
			return
		}
		h.logger.Error("Failed to delete API key", "name", name, "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}
	if !removed {
		h.sendError(w, http.StatusNotFound, "Unknown API key "+name)
		return
	}

	h.logger.Info("Deleted API key", "name", name)
	h.sendJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
