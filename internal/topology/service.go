package topology

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/reef-labs/reefd/internal/cluster"
)

// Service answers read queries about the cluster's topology from the cached
// cluster maps. It never mutates anything and never talks to the manager.
type Service struct {
	state  *cluster.StateStore
	logger *slog.Logger
}

// ServiceConfig holds configuration for the topology service.
type ServiceConfig struct {
	State  *cluster.StateStore
	Logger *slog.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.State == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Service{
		state:  cfg.State,
		logger: cfg.Logger,
	}, nil
}

// MonInfo is a mon map entry annotated with quorum membership and the host
// it runs on.
type MonInfo struct {
	cluster.Mon
	InQuorum bool   `json:"in_quorum"`
	Leader   bool   `json:"leader"`
	Server   string `json:"server"`
}

// Mons returns every monitor with quorum and placement annotations. The
// leader is the first quorum member by rank.
func (s *Service) Mons() []MonInfo {
	monMap := s.state.MonMap()
	status := s.state.MonStatus()

	inQuorum := make(map[int]bool, len(status.Quorum))
	for _, rank := range status.Quorum {
		inQuorum[rank] = true
	}
	leaderRank := -1
	if len(status.Quorum) > 0 {
		leaderRank = status.Quorum[0]
	}

	mons := make([]MonInfo, 0, len(monMap.Mons))
	for _, mon := range monMap.Mons {
		info := MonInfo{
			Mon:      mon,
			InQuorum: inQuorum[mon.Rank],
			Leader:   mon.Rank == leaderRank,
		}
		if md, ok := s.state.Metadata("mon", mon.Name); ok {
			info.Server = md.Hostname
		}
		mons = append(mons, info)
	}
	return mons
}

// MonByName returns the annotated mon with the given name.
func (s *Service) MonByName(name string) (MonInfo, bool) {
	for _, mon := range s.Mons() {
		if mon.Name == name {
			return mon, true
		}
	}
	return MonInfo{}, false
}

// OSDInfo is an OSD map entry annotated with pool membership, placement,
// reweight and the commands currently valid against it.
type OSDInfo struct {
	cluster.OSD
	Pools         []int    `json:"pools"`
	Server        string   `json:"server"`
	Reweight      float64  `json:"reweight"`
	ValidCommands []string `json:"valid_commands"`
}

// OSDs returns annotated OSDs, optionally filtered by id and by pool
// membership. The ids filter uses string form to match the API's query
// parameters.
func (s *Service) OSDs(ids []string, poolID *int) []OSDInfo {
	osdMap := s.state.OSDMap()
	tree := s.state.OSDTree()

	osds := osdMap.OSDs
	if len(ids) > 0 {
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		filtered := osds[:0:0]
		for _, osd := range osds {
			if wanted[strconv.Itoa(osd.ID)] {
				filtered = append(filtered, osd)
			}
		}
		osds = filtered
	}

	poolsByOSD := s.osdPools()

	reweight := make(map[int]float64, len(tree.Nodes))
	for _, node := range tree.Nodes {
		if node.Reweight != nil {
			reweight[node.ID] = *node.Reweight
		}
	}

	out := make([]OSDInfo, 0, len(osds))
	for _, osd := range osds {
		info := OSDInfo{
			OSD:           osd,
			Pools:         poolsByOSD[osd.ID],
			Reweight:      reweight[osd.ID],
			ValidCommands: []string{},
		}
		if info.Pools == nil {
			info.Pools = []int{}
		}
		if osd.IsUp() {
			info.ValidCommands = OSDImplementedCommands
		}
		if md, ok := s.state.Metadata("osd", strconv.Itoa(osd.ID)); ok {
			info.Server = md.Hostname
		}

		if poolID != nil && !slices.Contains(info.Pools, *poolID) {
			continue
		}
		out = append(out, info)
	}
	return out
}

// OSDByID returns the raw OSD map entry for one id.
func (s *Service) OSDByID(id int) (cluster.OSD, bool) {
	for _, osd := range s.state.OSDMap().OSDs {
		if osd.ID == id {
			return osd, true
		}
	}
	return cluster.OSD{}, false
}

// Pools returns the OSD map's pool table.
func (s *Service) Pools() []cluster.Pool {
	return s.state.OSDMap().Pools
}

// PoolByID returns one pool by id.
func (s *Service) PoolByID(id int) (cluster.Pool, bool) {
	for _, pool := range s.state.OSDMap().Pools {
		if pool.ID == id {
			return pool, true
		}
	}
	return cluster.Pool{}, false
}

// PoolOSDs maps each pool id to the sorted OSD ids its CRUSH rule selects.
// A pool whose ruleset has no rule matching its size resolves to no OSDs.
func (s *Service) PoolOSDs() map[int][]int {
	osdMap := s.state.OSDMap()
	crush := s.state.CrushMap()
	nodes := s.state.OSDTree().Nodes

	out := make(map[int][]int, len(osdMap.Pools))
	for _, pool := range osdMap.Pools {
		var selected map[int]struct{}
		for _, rule := range crush.Rules {
			if rule.Ruleset != pool.CrushRuleset {
				continue
			}
			if rule.MinSize <= pool.Size && pool.Size <= rule.MaxSize {
				selected = crushRuleOSDs(nodes, rule)
			}
		}

		ids := make([]int, 0, len(selected))
		for id := range selected {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		out[pool.ID] = ids
	}
	return out
}

// osdPools inverts PoolOSDs: OSD id to the sorted pool ids it serves.
func (s *Service) osdPools() map[int][]int {
	out := make(map[int][]int)
	for poolID, osds := range s.PoolOSDs() {
		for _, osd := range osds {
			out[osd] = append(out[osd], poolID)
		}
	}
	for _, pools := range out {
		slices.Sort(pools)
	}
	return out
}
