package models

import "time"

// Tag is a user-annotated label attached to a committed snapshot. Tag names
// are unique per snapshot; listings are ordered by created time descending.
type Tag struct {
	SnapshotID string    `json:"snapshot_id" db:"snapshot_id"`
	Name       string    `json:"name" db:"name"`
	Comment    string    `json:"comment,omitempty" db:"comment"`
	UserName   string    `json:"user_name" db:"user_name"`
	Created    time.Time `json:"created" db:"created"`
}
