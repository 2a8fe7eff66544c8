package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/reef-labs/reefd/internal/cluster"
)

// Registry tracks every live request, keyed by identifier. Insertion order
// is preserved for listing. The registry lock covers only the collection;
// each request carries its own lock, so unrelated requests never contend.
type Registry struct {
	dispatcher Dispatcher
	logger     *slog.Logger

	mu       sync.RWMutex
	requests map[string]*Request
	order    []string
}

// RegistryConfig holds configuration for the request registry.
type RegistryConfig struct {
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Registry{
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		requests:   make(map[string]*Request),
	}, nil
}

// Submit creates a request and dispatches its first stage. Returns the new
// request's identifier immediately; completion is reported asynchronously.
// A stage may be empty only when it is the sole stage (an empty request is
// valid and immediately finished).
func (g *Registry) Submit(stages [][]cluster.Command) (string, error) {
	if len(stages) > 1 {
		for i, stage := range stages {
			if len(stage) == 0 {
				return "", fmt.Errorf("stage %d is empty", i)
			}
		}
	}

	id := uuid.NewString()
	req := newRequest(id, stages, g.dispatcher, g.logger)

	g.mu.Lock()
	g.requests[id] = req
	g.order = append(g.order, id)
	g.mu.Unlock()

	// Registered before the first dispatch, so a completion can never beat
	// the request into the registry.
	req.start()

	g.logger.Info("Accepted command request", "request_id", id, "stages", len(stages))

	return id, nil
}

// Get returns the request with the given identifier.
func (g *Registry) Get(id string) (*Request, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	req, ok := g.requests[id]
	return req, ok
}

// ListStates returns every live request's state keyed by identifier.
func (g *Registry) ListStates() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	states := make(map[string]string, len(g.requests))
	for id, req := range g.requests {
		states[id] = req.State()
	}
	return states
}

// Requests returns every live request in submission order.
func (g *Registry) Requests() []*Request {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Request, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.requests[id])
	}
	return out
}

// Cancel removes a request from the registry, pending or not. Commands
// already handed to the manager keep running there; their completions will
// be dropped as unknown. Returns whether the request existed.
func (g *Registry) Cancel(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.requests[id]; !ok {
		return false
	}

	delete(g.requests, id)
	g.removeOrderLocked(id)
	g.logger.Info("Cancelled command request", "request_id", id)
	return true
}

// Sweep removes every finished request and returns how many were removed.
func (g *Registry) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, req := range g.requests {
		if req.IsFinished() {
			delete(g.requests, id)
			g.removeOrderLocked(id)
			removed++
		}
	}

	if removed > 0 {
		g.logger.Info("Swept finished requests", "removed", removed)
	}
	return removed
}

func (g *Registry) removeOrderLocked(id string) {
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			return
		}
	}
}
