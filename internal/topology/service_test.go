package topology

import (
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/reef-labs/reefd/internal/cluster"
)

func newTestService(t *testing.T) (*Service, *cluster.StateStore) {
	t.Helper()

	store := cluster.NewStateStore()
	service, err := NewService(ServiceConfig{
		State:  store,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return service, store
}

func apply(t *testing.T, store *cluster.StateStore, name, data string) {
	t.Helper()
	if err := store.Apply(name, json.RawMessage(data)); err != nil {
		t.Fatalf("Apply(%s) error = %v", name, err)
	}
}

func loadFixture(t *testing.T, store *cluster.StateStore) {
	t.Helper()

	apply(t, store, "mon_map", `{
		"epoch": 2,
		"mons": [
			{"rank": 0, "name": "a", "addr": "10.0.0.1:6789"},
			{"rank": 1, "name": "b", "addr": "10.0.0.2:6789"},
			{"rank": 2, "name": "c", "addr": "10.0.0.3:6789"}
		]
	}`)
	apply(t, store, "mon_status", `{"quorum": [1, 0]}`)
	apply(t, store, "osd_map", `{
		"epoch": 20,
		"flags": "sortbitwise",
		"osds": [
			{"osd": 0, "up": 1, "in": 1, "weight": 1.0},
			{"osd": 1, "up": 1, "in": 1, "weight": 1.0},
			{"osd": 2, "up": 0, "in": 0, "weight": 1.0}
		],
		"pools": [
			{"pool": 0, "pool_name": "rbd", "size": 2, "min_size": 1, "pg_num": 64, "pgp_num": 64, "crush_ruleset": 0},
			{"pool": 1, "pool_name": "spare", "size": 9, "min_size": 1, "pg_num": 8, "pgp_num": 8, "crush_ruleset": 0}
		]
	}`)
	apply(t, store, "osd_map_tree", `{
		"nodes": [
			{"id": -1, "name": "default", "type": "root", "children": [-2, -3]},
			{"id": -2, "name": "node1", "type": "host", "children": [0, 1]},
			{"id": -3, "name": "node2", "type": "host", "children": [2]},
			{"id": 0, "name": "osd.0", "type": "osd", "reweight": 1.0},
			{"id": 1, "name": "osd.1", "type": "osd", "reweight": 0.5},
			{"id": 2, "name": "osd.2", "type": "osd", "reweight": 0.0}
		]
	}`)
	apply(t, store, "osd_map_crush", `{
		"rules": [{
			"rule_id": 0,
			"ruleset": 0,
			"min_size": 1,
			"max_size": 3,
			"steps": [
				{"op": "take", "item": -1},
				{"op": "chooseleaf_firstn", "type": "host"},
				{"op": "emit"}
			]
		}]
	}`)
	apply(t, store, "metadata", `[
		{"kind": "mon", "name": "a", "hostname": "node1"},
		{"kind": "osd", "name": "0", "hostname": "node1"},
		{"kind": "osd", "name": "2", "hostname": "node2"}
	]`)
}

func TestServiceMons(t *testing.T) {
	service, store := newTestService(t)
	loadFixture(t, store)

	mons := service.Mons()
	if len(mons) != 3 {
		t.Fatalf("Mons() returned %d, want 3", len(mons))
	}

	byName := make(map[string]MonInfo)
	for _, mon := range mons {
		byName[mon.Name] = mon
	}

	if !byName["a"].InQuorum || !byName["b"].InQuorum || byName["c"].InQuorum {
		t.Errorf("quorum annotation wrong: %+v", byName)
	}
	// Quorum is ordered by rank with the leader first.
	if byName["a"].Leader || !byName["b"].Leader {
		t.Errorf("leader annotation wrong: %+v", byName)
	}
	if byName["a"].Server != "node1" {
		t.Errorf("mon a server = %q, want node1", byName["a"].Server)
	}

	if _, ok := service.MonByName("a"); !ok {
		t.Error("MonByName(a) not found")
	}
	if _, ok := service.MonByName("zz"); ok {
		t.Error("MonByName(zz) found")
	}
}

func TestServiceOSDs(t *testing.T) {
	service, store := newTestService(t)
	loadFixture(t, store)

	osds := service.OSDs(nil, nil)
	if len(osds) != 3 {
		t.Fatalf("OSDs() returned %d, want 3", len(osds))
	}

	byID := make(map[int]OSDInfo)
	for _, osd := range osds {
		byID[osd.ID] = osd
	}

	if !slices.Equal(byID[0].Pools, []int{0}) {
		t.Errorf("osd 0 pools = %v, want [0]", byID[0].Pools)
	}
	if byID[0].Server != "node1" || byID[2].Server != "node2" {
		t.Errorf("server annotation wrong: %+v", byID)
	}
	if byID[1].Reweight != 0.5 {
		t.Errorf("osd 1 reweight = %v, want 0.5", byID[1].Reweight)
	}
	if !slices.Equal(byID[0].ValidCommands, OSDImplementedCommands) {
		t.Errorf("osd 0 valid commands = %v", byID[0].ValidCommands)
	}
	if len(byID[2].ValidCommands) != 0 {
		t.Errorf("down osd valid commands = %v, want none", byID[2].ValidCommands)
	}
}

func TestServiceOSDFilters(t *testing.T) {
	service, store := newTestService(t)
	loadFixture(t, store)

	osds := service.OSDs([]string{"1", "2"}, nil)
	if len(osds) != 2 {
		t.Fatalf("OSDs(ids) returned %d, want 2", len(osds))
	}

	pool := 0
	osds = service.OSDs(nil, &pool)
	ids := make([]int, 0, len(osds))
	for _, osd := range osds {
		ids = append(ids, osd.ID)
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []int{0, 1, 2}) {
		t.Errorf("OSDs(pool=0) = %v, want [0 1 2]", ids)
	}

	missing := 42
	if got := service.OSDs(nil, &missing); len(got) != 0 {
		t.Errorf("OSDs(pool=42) = %v, want none", got)
	}
}

func TestServicePoolOSDs(t *testing.T) {
	service, store := newTestService(t)
	loadFixture(t, store)

	pools := service.PoolOSDs()

	if !slices.Equal(pools[0], []int{0, 1, 2}) {
		t.Errorf("pool 0 osds = %v, want [0 1 2]", pools[0])
	}
	// Pool 1's size exceeds the rule's max_size, so no rule matches.
	if len(pools[1]) != 0 {
		t.Errorf("pool 1 osds = %v, want none", pools[1])
	}
}

func TestServiceOSDByID(t *testing.T) {
	service, store := newTestService(t)
	loadFixture(t, store)

	osd, ok := service.OSDByID(2)
	if !ok {
		t.Fatal("OSDByID(2) not found")
	}
	if osd.IsUp() {
		t.Error("osd 2 reported up")
	}

	if _, ok := service.OSDByID(99); ok {
		t.Error("OSDByID(99) found")
	}
}

func TestServicePools(t *testing.T) {
	service, store := newTestService(t)
	loadFixture(t, store)

	if got := service.Pools(); len(got) != 2 {
		t.Errorf("Pools() returned %d, want 2", len(got))
	}

	pool, ok := service.PoolByID(1)
	if !ok || pool.Name != "spare" {
		t.Errorf("PoolByID(1) = %+v, %v", pool, ok)
	}
	if _, ok := service.PoolByID(7); ok {
		t.Error("PoolByID(7) found")
	}
}
