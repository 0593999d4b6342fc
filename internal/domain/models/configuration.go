package models

// ConfigPv is one process-variable entry of a configuration's ordered list.
// The unique id is what snapshot items reference, so a rename-only change
// (which keeps the id) never invalidates historical snapshot data.
type ConfigPv struct {
	UniqueID       string `json:"unique_id" db:"unique_id"`
	PvName         string `json:"pv_name" db:"pv_name"`
	ReadbackPvName string `json:"readback_pv_name,omitempty" db:"readback_pv_name"`
	ReadOnly       bool   `json:"read_only" db:"read_only"`
}

// Configuration couples a CONFIGURATION node with its ConfigPv list for
// atomic create/update operations.
type Configuration struct {
	Node   *Node      `json:"node"`
	PvList []ConfigPv `json:"pv_list"`
}
