package cluster

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Mon is one monitor daemon as reported by the mon map.
type Mon struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Addr string `json:"addr"`
}

type MonMap struct {
	Epoch int   `json:"epoch"`
	Mons  []Mon `json:"mons"`
}

// MonStatus carries the current quorum, ordered by rank with the leader first.
type MonStatus struct {
	Quorum []int `json:"quorum"`
}

// OSD is one storage daemon entry from the OSD map. Up and In are 0/1 as
// reported on the wire.
type OSD struct {
	ID         int     `json:"osd"`
	UUID       string  `json:"uuid"`
	Up         int     `json:"up"`
	In         int     `json:"in"`
	Weight     float64 `json:"weight"`
	PublicAddr string  `json:"public_addr"`
}

func (o OSD) IsUp() bool { return o.Up != 0 }
func (o OSD) IsIn() bool { return o.In != 0 }

type Pool struct {
	ID           int    `json:"pool"`
	Name         string `json:"pool_name"`
	Size         int    `json:"size"`
	MinSize      int    `json:"min_size"`
	PGNum        int    `json:"pg_num"`
	PGPNum       int    `json:"pgp_num"`
	CrushRuleset int    `json:"crush_ruleset"`
}

type OSDMap struct {
	Epoch int    `json:"epoch"`
	Flags string `json:"flags"`
	OSDs  []OSD  `json:"osds"`
	Pools []Pool `json:"pools"`
}

// TreeNode is one node of the OSD tree: non-negative IDs are OSDs (leaves),
// negative IDs are buckets (hosts, racks, roots).
type TreeNode struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Children []int    `json:"children,omitempty"`
	Reweight *float64 `json:"reweight,omitempty"`
}

type OSDTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type CrushStep struct {
	Op   string `json:"op"`
	Item int    `json:"item"`
	Type string `json:"type"`
	Num  int    `json:"num"`
}

type CrushRule struct {
	ID      int         `json:"rule_id"`
	Ruleset int         `json:"ruleset"`
	MinSize int         `json:"min_size"`
	MaxSize int         `json:"max_size"`
	Steps   []CrushStep `json:"steps"`
}

type CrushMap struct {
	Rules []CrushRule `json:"rules"`
}

// DaemonMetadata is per-daemon metadata (hostname and friends) keyed by
// daemon kind ("mon", "osd") and name.
type DaemonMetadata struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
}

// Server is one physical host and the daemons it runs.
type Server struct {
	Hostname string   `json:"hostname"`
	Services []string `json:"services"`
}

// StateStore caches the latest cluster maps pushed by the manager over the
// control socket. Readers get copies; the store never hands out internal
// slices.
type StateStore struct {
	mu        sync.RWMutex
	monMap    MonMap
	monStatus MonStatus
	osdMap    OSDMap
	osdTree   OSDTree
	crushMap  CrushMap
	config    map[string]string
	metadata  map[string]map[string]DaemonMetadata
	servers   []Server
}

func NewStateStore() *StateStore {
	return &StateStore{
		config:   make(map[string]string),
		metadata: make(map[string]map[string]DaemonMetadata),
	}
}

// Apply decodes a pushed map frame into the store. Unknown map names are an
// error so the caller can log them.
func (s *StateStore) Apply(name string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "mon_map":
		return json.Unmarshal(data, &s.monMap)
	case "mon_status":
		return json.Unmarshal(data, &s.monStatus)
	case "osd_map":
		return json.Unmarshal(data, &s.osdMap)
	case "osd_map_tree":
		return json.Unmarshal(data, &s.osdTree)
	case "osd_map_crush":
		return json.Unmarshal(data, &s.crushMap)
	case "config":
		return json.Unmarshal(data, &s.config)
	case "servers":
		return json.Unmarshal(data, &s.servers)
	case "metadata":
		var entries []DaemonMetadata
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		for _, md := range entries {
			byName, ok := s.metadata[md.Kind]
			if !ok {
				byName = make(map[string]DaemonMetadata)
				s.metadata[md.Kind] = byName
			}
			byName[md.Name] = md
		}
		return nil
	default:
		return fmt.Errorf("unknown cluster map %q", name)
	}
}

func (s *StateStore) MonMap() MonMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.monMap
	out.Mons = append([]Mon(nil), s.monMap.Mons...)
	return out
}

func (s *StateStore) MonStatus() MonStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return MonStatus{Quorum: append([]int(nil), s.monStatus.Quorum...)}
}

func (s *StateStore) OSDMap() OSDMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.osdMap
	out.OSDs = append([]OSD(nil), s.osdMap.OSDs...)
	out.Pools = append([]Pool(nil), s.osdMap.Pools...)
	return out
}

func (s *StateStore) OSDTree() OSDTree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return OSDTree{Nodes: append([]TreeNode(nil), s.osdTree.Nodes...)}
}

func (s *StateStore) CrushMap() CrushMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CrushMap{Rules: append([]CrushRule(nil), s.crushMap.Rules...)}
}

// Config returns the cluster configuration dump.
func (s *StateStore) Config() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.config))
	for k, v := range s.config {
		out[k] = v
	}
	return out
}

// ConfigKey returns one configuration value and whether it exists.
func (s *StateStore) ConfigKey(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.config[key]
	return v, ok
}

// Metadata returns the metadata for one daemon, or false when the manager
// has not reported it yet.
func (s *StateStore) Metadata(kind, name string) (DaemonMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.metadata[kind][name]
	return md, ok
}

func (s *StateStore) Servers() []Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Server(nil), s.servers...)
}

// ServerByFqdn returns the server entry for a hostname.
func (s *StateStore) ServerByFqdn(fqdn string) (Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, srv := range s.servers {
		if srv.Hostname == fqdn {
			return srv, true
		}
	}
	return Server{}, false
}
