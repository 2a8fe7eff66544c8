package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/reef-labs/reefd/internal/cluster"
)

// Dispatcher hands a command to the cluster manager and returns immediately.
// The manager reports the outcome later through the completion callback,
// keyed by the same tag.
type Dispatcher interface {
	Send(cmd cluster.Command, tag string) error
}

// Request states as reported to callers.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailed  = "failed"
)

// Invocation is one dispatched command awaiting (or holding) its outcome.
// Which list of the owning Request it sits in encodes the outcome.
type Invocation struct {
	Tag     string
	Command cluster.Command
}

// Request executes an ordered sequence of command stages. Commands within a
// stage run in parallel on the manager; the next stage is dispatched only
// once every command of the current stage has reported completion. Failures
// are recorded but do not stop progression to later stages.
type Request struct {
	id         string
	dispatcher Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	running  []*Invocation
	waiting  [][]cluster.Command
	finished []*Invocation
	failed   []*Invocation
}

// Snapshot is a point-in-time copy of a request's bookkeeping for callers.
type Snapshot struct {
	ID         string              `json:"id"`
	Running    []cluster.Command   `json:"running"`
	Finished   []cluster.Command   `json:"finished"`
	Waiting    [][]cluster.Command `json:"waiting"`
	Failed     []cluster.Command   `json:"failed"`
	IsWaiting  bool                `json:"is_waiting"`
	IsFinished bool                `json:"is_finished"`
	HasFailed  bool                `json:"has_failed"`
	State      string              `json:"state"`
}

// newRequest builds a request with every stage still waiting. The caller
// registers it and then calls start, so no completion can arrive before the
// request is routable.
func newRequest(id string, stages [][]cluster.Command, dispatcher Dispatcher, logger *slog.Logger) *Request {
	waiting := make([][]cluster.Command, 0, len(stages))
	for _, stage := range stages {
		waiting = append(waiting, append([]cluster.Command(nil), stage...))
	}

	return &Request{
		id:         id,
		dispatcher: dispatcher,
		logger:     logger,
		waiting:    waiting,
	}
}

// start dispatches the first stage.
func (r *Request) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceLocked()
}

// advanceLocked dispatches waiting stages until one has commands in flight
// or none remain. A stage whose dispatches all fail drains immediately and
// the next stage proceeds. Caller must hold mu.
func (r *Request) advanceLocked() {
	for len(r.running) == 0 && len(r.waiting) > 0 {
		stage := r.waiting[0]
		r.waiting = r.waiting[1:]
		r.dispatchStageLocked(stage)
	}
}

// dispatchStageLocked sends every command of one stage. A command whose send
// fails is logged and never enters running; its siblings proceed. Caller
// must hold mu.
func (r *Request) dispatchStageLocked(stage []cluster.Command) {
	for i, cmd := range stage {
		tag := fmt.Sprintf("%s:%d", r.id, i)

		if err := r.dispatcher.Send(cmd, tag); err != nil {
			r.logger.Error("Failed to dispatch command",
				"request_id", r.id,
				"tag", tag,
				"prefix", cmd.Prefix(),
				"error", err)
			continue
		}

		r.running = append(r.running, &Invocation{Tag: tag, Command: cmd})
	}
}

// Complete applies one completion notification. Returns false when no running
// invocation carries the tag, leaving all bookkeeping untouched. When the
// completion drains the current stage, the next stage is dispatched inside
// the same critical section.
func (r *Request) Complete(tag string, succeeded bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, inv := range r.running {
		if inv.Tag == tag {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	inv := r.running[idx]
	r.running = append(r.running[:idx], r.running[idx+1:]...)
	if succeeded {
		r.finished = append(r.finished, inv)
	} else {
		r.failed = append(r.failed, inv)
	}

	r.advanceLocked()
	return true
}

// ID returns the request's immutable identifier.
func (r *Request) ID() string {
	return r.id
}

// IsReady reports that nothing is in flight while more stages wait: true for
// a built request that has not started, false once start or Complete has
// advanced it. Query only; advancement itself happens inside Complete.
func (r *Request) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running) == 0 && len(r.waiting) > 0
}

func (r *Request) IsWaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting) > 0
}

// IsFinished reports the terminal state: nothing running, nothing waiting.
// Once true it stays true, no later stage can materialize.
func (r *Request) IsFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running) == 0 && len(r.waiting) == 0
}

func (r *Request) HasFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed) > 0
}

// State returns "pending" until the request finishes, then "failed" if any
// command failed and "success" otherwise.
func (r *Request) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Request) stateLocked() string {
	if len(r.running) > 0 || len(r.waiting) > 0 {
		return StatePending
	}
	if len(r.failed) > 0 {
		return StateFailed
	}
	return StateSuccess
}

// Snapshot copies the request's current bookkeeping.
func (r *Request) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		ID:         r.id,
		Running:    commands(r.running),
		Finished:   commands(r.finished),
		Failed:     commands(r.failed),
		Waiting:    make([][]cluster.Command, 0, len(r.waiting)),
		IsWaiting:  len(r.waiting) > 0,
		IsFinished: len(r.running) == 0 && len(r.waiting) == 0,
		HasFailed:  len(r.failed) > 0,
		State:      r.stateLocked(),
	}
	for _, stage := range r.waiting {
		snap.Waiting = append(snap.Waiting, append([]cluster.Command(nil), stage...))
	}
	return snap
}

func commands(invocations []*Invocation) []cluster.Command {
	out := make([]cluster.Command, 0, len(invocations))
	for _, inv := range invocations {
		out = append(out, inv.Command)
	}
	return out
}
