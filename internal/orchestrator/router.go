package orchestrator

import (
	"fmt"
	"log/slog"
	"strings"
)

// Router resolves completion notifications to their owning request. Tags
// embed the request id as a prefix, so routing is a registry lookup rather
// than a scan of every live request.
//
// The router never lets a bad notification escape: stale or unknown tags
// are logged and dropped. The manager may legitimately notify about work
// the gateway no longer tracks, e.g. after a request was cancelled.
type Router struct {
	registry *Registry
	logger   *slog.Logger
}

// RouterConfig holds configuration for the notification router.
type RouterConfig struct {
	Registry *Registry
	Logger   *slog.Logger
}

func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Router{
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}, nil
}

// OnCompletion applies one completion from the manager. Safe to call from
// any goroutine. Stage advancement happens inside the request's own critical
// section, so the completion that drains a stage is the one that dispatches
// the next.
func (rt *Router) OnCompletion(tag string, succeeded bool) {
	id, _, ok := strings.Cut(tag, ":")
	if !ok || id == "" {
		rt.logger.Warn("Dropping malformed completion tag", "tag", tag)
		return
	}

	req, ok := rt.registry.Get(id)
	if !ok {
		rt.logger.Warn("Dropping completion for unknown request", "tag", tag)
		return
	}

	if !req.Complete(tag, succeeded) {
		rt.logger.Warn("Dropping completion for unknown invocation",
			"request_id", id,
			"tag", tag)
		return
	}

	rt.logger.Debug("Applied command completion",
		"request_id", id,
		"tag", tag,
		"succeeded", succeeded)
}
