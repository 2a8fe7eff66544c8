package handlers

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/reef-labs/reefd/internal/cluster"
	"github.com/reef-labs/reefd/internal/topology"
)

// ListOSDs handles GET /osd. Accepts repeated ?id= filters and an optional
// ?pool= filter.
func (h *Handler) ListOSDs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ids := query["id"]

	var poolID *int
	if raw := query.Get("pool"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "Invalid pool id "+raw)
			return
		}
		poolID = &id
	}

	h.sendJSON(w, http.StatusOK, h.topo.OSDs(ids, poolID))
}

// GetOSD handles GET /osd/{id}
func (h *Handler) GetOSD(w http.ResponseWriter, r *http.Request) {
	id, ok := h.osdID(w, r)
	if !ok {
		return
	}

	osds := h.topo.OSDs([]string{strconv.Itoa(id)}, nil)
	if len(osds) != 1 {
		h.sendError(w, http.StatusNotFound, "Failed to identify the OSD")
		return
	}
	h.sendJSON(w, http.StatusOK, osds[0])
}

// PatchOSD handles PATCH /osd/{id}. The body may carry "in", "up" and
// "reweight"; a single-stage command request applies the changes. Setting a
// down OSD up is rejected, only the daemon itself can report up.
func (h *Handler) PatchOSD(w http.ResponseWriter, r *http.Request) {
	id, ok := h.osdID(w, r)
	if !ok {
		return
	}

	var args struct {
		In       *bool    `json:"in"`
		Up       *bool    `json:"up"`
		Reweight *float64 `json:"reweight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var commands []cluster.Command

	if args.In != nil {
		prefix := "osd in"
		if !*args.In {
			prefix = "osd out"
		}
		commands = append(commands, cluster.Command{
			"prefix": prefix,
			"ids":    []string{strconv.Itoa(id)},
		})
	}

	if args.Up != nil {
		if *args.Up {
			h.sendError(w, http.StatusBadRequest, "It is not valid to set a down OSD to be up")
			return
		}
		commands = append(commands, cluster.Command{
			"prefix": "osd down",
			"ids":    []string{strconv.Itoa(id)},
		})
	}

	if args.Reweight != nil {
		commands = append(commands, cluster.Command{
			"prefix": "osd reweight",
			"id":     id,
			"weight": *args.Reweight,
		})
	}

	reqID, err := h.registry.Submit([][]cluster.Command{commands})
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sendAccepted(w, reqID)
}

// GetOSDCommands handles GET /osd/{id}/command. Lists the commands currently
// valid against the OSD; a down OSD accepts none.
func (h *Handler) GetOSDCommands(w http.ResponseWriter, r *http.Request) {
	id, ok := h.osdID(w, r)
	if !ok {
		return
	}

	osd, found := h.topo.OSDByID(id)
	if !found {
		h.sendError(w, http.StatusNotFound, "Failed to identify the OSD")
		return
	}

	if osd.IsUp() {
		h.sendJSON(w, http.StatusOK, topology.OSDImplementedCommands)
		return
	}
	h.sendJSON(w, http.StatusOK, []string{})
}

// PostOSDCommand handles POST /osd/{id}/command/{command}
func (h *Handler) PostOSDCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := h.osdID(w, r)
	if !ok {
		return
	}
	command := r.PathValue("command")

	osd, found := h.topo.OSDByID(id)
	if !found {
		h.sendError(w, http.StatusNotFound, "Failed to identify the OSD")
		return
	}

	if !osd.IsUp() || !slices.Contains(topology.OSDImplementedCommands, command) {
		h.sendError(w, http.StatusBadRequest, "Command \""+command+"\" not available")
		return
	}

	reqID, err := h.registry.Submit([][]cluster.Command{{{
		"prefix": "osd " + command,
		"who":    strconv.Itoa(id),
	}}})
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sendAccepted(w, reqID)
}

// osdID parses the {id} path segment, replying 400 on garbage.
func (h *Handler) osdID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid OSD id "+raw)
		return 0, false
	}
	return id, true
}
