package topology

// OSDFlags are the OSD map flags that may be set or unset through the API.
var OSDFlags = []string{
	"pause", "noup", "nodown", "noout", "noin", "nobackfill",
	"norecover", "noscrub", "nodeep-scrub",
}

// OSDImplementedCommands are the per-OSD maintenance commands the gateway
// accepts for OSDs that are up.
var OSDImplementedCommands = []string{"scrub", "deep_scrub", "repair"}

// PoolProperties are the valid values for the "var" argument of the
// "osd pool set" command.
var PoolProperties = []string{
	"size", "min_size", "crash_replay_interval", "pg_num",
	"pgp_num", "crush_ruleset", "hashpspool",
}

// PoolQuotaProperty maps an API-level quota property to the field name of
// the "osd pool set-quota" command.
type PoolQuotaProperty struct {
	Property string
	Field    string
}

var PoolQuotaProperties = []PoolQuotaProperty{
	{"quota_max_bytes", "max_bytes"},
	{"quota_max_objects", "max_objects"},
}
