package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/reef-labs/reefd/internal/cluster"
	"github.com/reef-labs/reefd/internal/models"
	"github.com/reef-labs/reefd/internal/orchestrator"
	"github.com/reef-labs/reefd/internal/topology"
)

const apiVersion = 1

// DataStore is the persistence surface the handlers need. storage.Database
// implements this; tests substitute a mock.
type DataStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyByName(ctx context.Context, name string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	DeleteAPIKeyByName(ctx context.Context, name string) (bool, error)
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, settings *models.Settings) error
}

// Handler contains all HTTP handlers
type Handler struct {
	registry *orchestrator.Registry
	topo     *topology.Service
	state    *cluster.StateStore
	db       DataStore
	logger   *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(registry *orchestrator.Registry, topo *topology.Service, state *cluster.StateStore, db DataStore, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		topo:     topo,
		state:    state,
		db:       db,
		logger:   logger,
	}
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]any{
		"api_version": apiVersion,
		"info":        "reefd cluster control-plane API server",
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// sendJSON sends a JSON response with the given status code
func (h *Handler) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, map[string]string{"error": message})
}

// sendAccepted reports the id of a newly submitted command request
func (h *Handler) sendAccepted(w http.ResponseWriter, id string) {
	h.sendJSON(w, http.StatusAccepted, map[string]string{"request_id": id})
}

// handleContextError checks if an error is due to request cancellation and logs appropriately.
// Returns true if the error is a context cancellation (caller should return early).
func (h *Handler) handleContextError(ctx context.Context, operation string, r *http.Request) bool {
	if ctx.Err() == context.Canceled {
		h.logger.Debug("Request canceled by client",
			"operation", operation,
			"path", r.URL.Path,
			"method", r.Method)
		return true
	}
	return false
}
