package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reef-labs/reefd/internal/cluster"
	"github.com/reef-labs/reefd/internal/topology"
)

// GetClusterConfig handles GET /config/cluster
func (h *Handler) GetClusterConfig(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.state.Config())
}

// GetClusterConfigKey handles GET /config/cluster/{key}
func (h *Handler) GetClusterConfigKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	value, ok := h.state.ConfigKey(key)
	if !ok {
		h.sendError(w, http.StatusNotFound, "Unknown configuration key "+key)
		return
	}
	h.sendJSON(w, http.StatusOK, value)
}

// GetOSDConfig handles GET /config/osd. The OSD map carries its flags as a
// single comma-separated string.
func (h *Handler) GetOSDConfig(w http.ResponseWriter, r *http.Request) {
	flags := []string{}
	if raw := h.state.OSDMap().Flags; raw != "" {
		flags = strings.Split(raw, ",")
	}
	h.sendJSON(w, http.StatusOK, flags)
}

// PatchOSDConfig handles PATCH /config/osd. The body maps flag names to the
// desired state; unknown flags are logged and skipped.
func (h *Handler) PatchOSDConfig(w http.ResponseWriter, r *http.Request) {
	var args map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var commands []cluster.Command
	for _, flag := range topology.OSDFlags {
		desired, ok := args[flag]
		if !ok {
			continue
		}
		delete(args, flag)

		mode := "set"
		if !desired {
			mode = "unset"
		}
		commands = append(commands, cluster.Command{
			"prefix": "osd " + mode,
			"key":    flag,
		})
	}

	for flag := range args {
		h.logger.Warn("Flag not valid to set/unset", "flag", flag)
	}

	id, err := h.registry.Submit([][]cluster.Command{commands})
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.sendAccepted(w, id)
}

// GetServers handles GET /server
func (h *Handler) GetServers(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.state.Servers())
}

// GetServer handles GET /server/{fqdn}
func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	fqdn := r.PathValue("fqdn")

	server, ok := h.state.ServerByFqdn(fqdn)
	if !ok {
		h.sendError(w, http.StatusNotFound, "Unknown server "+fqdn)
		return
	}
	h.sendJSON(w, http.StatusOK, server)
}

// GetMons handles GET /mon
func (h *Handler) GetMons(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.topo.Mons())
}

// GetMon handles GET /mon/{name}
func (h *Handler) GetMon(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	mon, ok := h.topo.MonByName(name)
	if !ok {
		h.sendError(w, http.StatusNotFound, "Failed to identify the monitor "+name)
		return
	}
	h.sendJSON(w, http.StatusOK, mon)
}
