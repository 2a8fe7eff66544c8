package orchestrator

import (
	"testing"

	"github.com/reef-labs/reefd/internal/cluster"
)

func newTestRouter(t *testing.T, registry *Registry) *Router {
	t.Helper()
	router, err := NewRouter(RouterConfig{
		Registry: registry,
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router
}

func TestRouterRoutesCompletion(t *testing.T) {
	registry := newTestRegistry(t, &mockDispatcher{})
	router := newTestRouter(t, registry)

	id, _ := registry.Submit([][]cluster.Command{{cmd("osd scrub")}})

	router.OnCompletion(id+":0", true)

	req, _ := registry.Get(id)
	if !req.IsFinished() {
		t.Error("request not finished after routed completion")
	}
	if req.State() != StateSuccess {
		t.Errorf("State() = %q, want %q", req.State(), StateSuccess)
	}
}

func TestRouterRoutesFailure(t *testing.T) {
	registry := newTestRegistry(t, &mockDispatcher{})
	router := newTestRouter(t, registry)

	id, _ := registry.Submit([][]cluster.Command{{cmd("osd repair")}})

	router.OnCompletion(id+":0", false)

	req, _ := registry.Get(id)
	if req.State() != StateFailed {
		t.Errorf("State() = %q, want %q", req.State(), StateFailed)
	}
}

func TestRouterDropsBadNotifications(t *testing.T) {
	registry := newTestRegistry(t, &mockDispatcher{})
	router := newTestRouter(t, registry)

	id, _ := registry.Submit([][]cluster.Command{{cmd("osd scrub")}})

	// None of these may disturb the live request.
	router.OnCompletion("", true)
	router.OnCompletion("no-separator", true)
	router.OnCompletion(":0", true)
	router.OnCompletion("unknown-request:0", true)
	router.OnCompletion(id+":17", true)

	req, _ := registry.Get(id)
	if req.IsFinished() {
		t.Error("request finished by a notification that should have been dropped")
	}
	snap := req.Snapshot()
	if len(snap.Running) != 1 {
		t.Errorf("running = %d, want 1", len(snap.Running))
	}
}

func TestRouterCompletionAfterCancel(t *testing.T) {
	registry := newTestRegistry(t, &mockDispatcher{})
	router := newTestRouter(t, registry)

	id, _ := registry.Submit([][]cluster.Command{{cmd("osd scrub")}})
	registry.Cancel(id)

	// Late completion for forgotten work: logged and dropped.
	router.OnCompletion(id+":0", true)

	if _, ok := registry.Get(id); ok {
		t.Error("cancelled request resurrected by late completion")
	}
}
