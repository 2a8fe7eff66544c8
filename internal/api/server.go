package api

import (
	"log/slog"
	"net/http"

	"github.com/reef-labs/reefd/internal/api/handlers"
	"github.com/reef-labs/reefd/internal/auth"
	"github.com/reef-labs/reefd/internal/cluster"
	"github.com/reef-labs/reefd/internal/config"
	"github.com/reef-labs/reefd/internal/orchestrator"
	"github.com/reef-labs/reefd/internal/topology"
)

type Server struct {
	config     *config.Config
	handler    *handlers.Handler
	middleware *auth.Middleware
	logger     *slog.Logger
}

func NewServer(cfg *config.Config, registry *orchestrator.Registry, topo *topology.Service, state *cluster.StateStore, db handlers.DataStore, middleware *auth.Middleware, logger *slog.Logger) *Server {
	return &Server{
		config:     cfg,
		handler:    handlers.NewHandler(registry, topo, state, db, logger),
		middleware: middleware,
		logger:     logger,
	}
}

// Router builds the route table. Every route is declared here; nothing is
// registered at runtime.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated endpoints
	mux.HandleFunc("GET /health", s.handler.Health)
	mux.HandleFunc("GET /{$}", s.handler.Index)

	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /config/cluster", s.handler.GetClusterConfig},
		{"GET /config/cluster/{key}", s.handler.GetClusterConfigKey},
		{"GET /config/osd", s.handler.GetOSDConfig},
		{"PATCH /config/osd", s.handler.PatchOSDConfig},
		{"GET /server", s.handler.GetServers},
		{"GET /server/{fqdn}", s.handler.GetServer},
		{"GET /mon", s.handler.GetMons},
		{"GET /mon/{name}", s.handler.GetMon},
		{"GET /osd", s.handler.ListOSDs},
		{"GET /osd/{id}", s.handler.GetOSD},
		{"PATCH /osd/{id}", s.handler.PatchOSD},
		{"GET /osd/{id}/command", s.handler.GetOSDCommands},
		{"POST /osd/{id}/command/{command}", s.handler.PostOSDCommand},
		{"GET /pool", s.handler.ListPools},
		{"GET /pool/{id}", s.handler.GetPool},
		{"POST /pool", s.handler.CreatePool},
		{"GET /request", s.handler.ListRequests},
		{"DELETE /request", s.handler.SweepRequests},
		{"GET /request/{id}", s.handler.GetRequest},
		{"DELETE /request/{id}", s.handler.CancelRequest},
		{"GET /auth", s.handler.GetAuthSettings},
		{"PATCH /auth", s.handler.PatchAuthSettings},
		{"GET /auth/key", s.handler.ListAPIKeys},
		{"POST /auth/key/{name}", s.handler.CreateAPIKey},
		{"DELETE /auth/key/{name}", s.handler.DeleteAPIKey},
	}

	for _, route := range routes {
		mux.Handle(route.pattern, s.middleware.RequireAuth(route.handler))
	}

	return mux
}
