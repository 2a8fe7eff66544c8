package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/reef-labs/reefd/internal/cluster"
	"github.com/reef-labs/reefd/internal/topology"
)

// ListPools handles GET /pool
func (h *Handler) ListPools(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.topo.Pools())
}

// GetPool handles GET /pool/{id}
func (h *Handler) GetPool(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid pool id "+raw)
		return
	}

	pool, ok := h.topo.PoolByID(id)
	if !ok {
		h.sendError(w, http.StatusNotFound, "Failed to identify the pool")
		return
	}
	h.sendJSON(w, http.StatusOK, pool)
}

// CreatePool handles POST /pool. The create command runs as its own stage;
// property and quota assignments only dispatch once the pool exists, so they
// form the second stage and run in parallel within it.
func (h *Handler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var args map[string]any
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	for _, arg := range []string{"name", "pg_num"} {
		if _, ok := args[arg]; !ok {
			h.sendError(w, http.StatusBadRequest, fmt.Sprintf("Argument %q is missing", arg))
			return
		}
	}

	name, ok := args["name"].(string)
	if !ok {
		h.sendError(w, http.StatusBadRequest, "Argument \"name\" must be a string")
		return
	}

	createCommand := cluster.Command{
		"prefix": "osd pool create",
		"pool":   name,
		"pg_num": args["pg_num"],
	}
	delete(args, "pg_num")
	delete(args, "name")

	setCommands := []cluster.Command{}
	for _, property := range topology.PoolProperties {
		value, ok := args[property]
		if !ok {
			continue
		}
		setCommands = append(setCommands, cluster.Command{
			"prefix": "osd pool set",
			"pool":   name,
			"var":    property,
			"val":    value,
		})
		delete(args, property)
	}

	for _, quota := range topology.PoolQuotaProperties {
		value, ok := args[quota.Property]
		if !ok {
			continue
		}
		setCommands = append(setCommands, cluster.Command{
			"prefix": "osd pool set-quota",
			"pool":   name,
			"field":  quota.Field,
			"val":    fmt.Sprintf("%v", value),
		})
		delete(args, quota.Property)
	}

	if len(args) != 0 {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("Invalid arguments found: %v", args))
		return
	}

	stages := [][]cluster.Command{{createCommand}}
	if len(setCommands) > 0 {
		stages = append(stages, setCommands)
	}

	reqID, err := h.registry.Submit(stages)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sendAccepted(w, reqID)
}
