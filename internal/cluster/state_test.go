package cluster

import (
	"encoding/json"
	"testing"
)

func mustApply(t *testing.T, store *StateStore, name, data string) {
	t.Helper()
	if err := store.Apply(name, json.RawMessage(data)); err != nil {
		t.Fatalf("Apply(%s) error = %v", name, err)
	}
}

func TestStateStoreApplyMonMap(t *testing.T) {
	store := NewStateStore()
	mustApply(t, store, "mon_map", `{
		"epoch": 4,
		"mons": [
			{"rank": 0, "name": "a", "addr": "10.0.0.1:6789"},
			{"rank": 1, "name": "b", "addr": "10.0.0.2:6789"}
		]
	}`)
	mustApply(t, store, "mon_status", `{"quorum": [0, 1]}`)

	monMap := store.MonMap()
	if monMap.Epoch != 4 || len(monMap.Mons) != 2 {
		t.Fatalf("MonMap() = %+v, want epoch 4 with 2 mons", monMap)
	}
	if monMap.Mons[1].Name != "b" {
		t.Errorf("mon name = %q, want b", monMap.Mons[1].Name)
	}

	status := store.MonStatus()
	if len(status.Quorum) != 2 || status.Quorum[0] != 0 {
		t.Errorf("MonStatus() = %+v", status)
	}
}

func TestStateStoreApplyOSDMap(t *testing.T) {
	store := NewStateStore()
	mustApply(t, store, "osd_map", `{
		"epoch": 11,
		"flags": "noout,sortbitwise",
		"osds": [
			{"osd": 0, "uuid": "u0", "up": 1, "in": 1, "weight": 1.0, "public_addr": "10.0.0.1:6800"},
			{"osd": 1, "uuid": "u1", "up": 0, "in": 1, "weight": 1.0, "public_addr": "10.0.0.2:6800"}
		],
		"pools": [
			{"pool": 0, "pool_name": "rbd", "size": 2, "min_size": 1, "pg_num": 64, "pgp_num": 64, "crush_ruleset": 0}
		]
	}`)

	osdMap := store.OSDMap()
	if osdMap.Flags != "noout,sortbitwise" {
		t.Errorf("flags = %q", osdMap.Flags)
	}
	if len(osdMap.OSDs) != 2 || len(osdMap.Pools) != 1 {
		t.Fatalf("OSDMap() = %+v", osdMap)
	}
	if !osdMap.OSDs[0].IsUp() || osdMap.OSDs[1].IsUp() {
		t.Error("up decoding wrong")
	}
	if osdMap.Pools[0].Name != "rbd" {
		t.Errorf("pool name = %q, want rbd", osdMap.Pools[0].Name)
	}
}

func TestStateStoreApplyConfigAndServers(t *testing.T) {
	store := NewStateStore()
	mustApply(t, store, "config", `{"osd_pool_default_size": "2"}`)
	mustApply(t, store, "servers", `[{"hostname": "node1", "services": ["mon.a", "osd.0"]}]`)
	mustApply(t, store, "metadata", `[{"kind": "osd", "name": "0", "hostname": "node1"}]`)

	if v, ok := store.ConfigKey("osd_pool_default_size"); !ok || v != "2" {
		t.Errorf("ConfigKey() = %q, %v", v, ok)
	}
	if _, ok := store.ConfigKey("missing"); ok {
		t.Error("ConfigKey(missing) = ok")
	}

	if srv, ok := store.ServerByFqdn("node1"); !ok || len(srv.Services) != 2 {
		t.Errorf("ServerByFqdn() = %+v, %v", srv, ok)
	}
	if _, ok := store.ServerByFqdn("node9"); ok {
		t.Error("ServerByFqdn(node9) = ok")
	}

	if md, ok := store.Metadata("osd", "0"); !ok || md.Hostname != "node1" {
		t.Errorf("Metadata() = %+v, %v", md, ok)
	}
}

func TestStateStoreApplyUnknownMap(t *testing.T) {
	store := NewStateStore()
	if err := store.Apply("pg_summary", json.RawMessage(`{}`)); err == nil {
		t.Error("Apply(pg_summary) expected error")
	}
	if err := store.Apply("mon_map", json.RawMessage(`not json`)); err == nil {
		t.Error("Apply with garbage payload expected error")
	}
}

func TestStateStoreCopies(t *testing.T) {
	store := NewStateStore()
	mustApply(t, store, "osd_map", `{"osds": [{"osd": 0, "up": 1, "in": 1}]}`)

	got := store.OSDMap()
	got.OSDs[0].Up = 0

	if !store.OSDMap().OSDs[0].IsUp() {
		t.Error("mutating a returned copy leaked into the store")
	}
}

func TestFrameDecoding(t *testing.T) {
	raw := `{"type":"completion","tag":"abc:0","result":0,"output":"done"}`

	var f frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if f.Type != frameCompletion || f.Tag != "abc:0" {
		t.Errorf("frame = %+v", f)
	}
	if f.Result == nil || *f.Result != 0 {
		t.Error("result not decoded")
	}

	// A missing result must stay distinguishable from result 0.
	var noResult frame
	if err := json.Unmarshal([]byte(`{"type":"completion","tag":"abc:0"}`), &noResult); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if noResult.Result != nil {
		t.Error("absent result decoded as non-nil")
	}
}
