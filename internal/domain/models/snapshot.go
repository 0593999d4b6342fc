package models

import "time"

// SnapshotItem is one captured value of a snapshot. ConfigPvID references the
// ConfigPv of the snapshot's configuration; a snapshot's item set corresponds
// one-to-one to the configuration's ConfigPv list at capture time.
type SnapshotItem struct {
	ConfigPvID    string    `json:"config_pv_id" db:"config_pv_id"`
	Value         string    `json:"value" db:"value"`
	ReadbackValue string    `json:"readback_value,omitempty" db:"readback_value"`
	Time          time.Time `json:"time" db:"time"`
	Severity      string    `json:"severity" db:"severity"`
	Status        string    `json:"status" db:"status"`
}

// Snapshot couples a SNAPSHOT node with its captured items.
type Snapshot struct {
	Node  *Node          `json:"node"`
	Items []SnapshotItem `json:"items"`
}
