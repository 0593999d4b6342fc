package models

import (
	"time"
)

// NodeType discriminates the three kinds of tree nodes.
type NodeType string

const (
	NodeTypeFolder        NodeType = "FOLDER"
	NodeTypeConfiguration NodeType = "CONFIGURATION"
	NodeTypeSnapshot      NodeType = "SNAPSHOT"
)

// SnapshotStatus makes the draft/committed distinction explicit instead of
// encoding it in the absence of name and comment.
type SnapshotStatus string

const (
	SnapshotStatusDraft     SnapshotStatus = "DRAFT"
	SnapshotStatusCommitted SnapshotStatus = "COMMITTED"
)

// RootUniqueID is the fixed unique id of the top-level folder. The root is
// created once at bootstrap and can never be moved, renamed or deleted.
const RootUniqueID = "44bef5de-e8e6-4014-af37-b8f6c8a939a2"

// RootName is the display name of the root folder. It is never part of a path.
const RootName = "Save & Restore Root"

// Well-known property keys.
const (
	PropertyGolden  = "golden"  // "true" marks a snapshot as the canonical reference
	PropertyComment = "comment" // commit comment of a snapshot
)

// Node is an entry in the hierarchical store: a folder, a configuration
// (save set) or a snapshot. Type-specific payloads (ConfigPv lists,
// SnapshotItem lists) are stored separately, keyed by the node's unique id.
type Node struct {
	UniqueID     string            `json:"unique_id" db:"unique_id"`
	Name         string            `json:"name" db:"name"`
	NodeType     NodeType          `json:"node_type" db:"node_type"`
	ParentID     *string           `json:"parent_id,omitempty" db:"parent_id"` // nil only for the root
	Status       SnapshotStatus    `json:"status,omitempty" db:"status"`       // snapshots only
	Properties   map[string]string `json:"properties,omitempty" db:"properties"`
	Created      time.Time         `json:"created" db:"created"`
	LastModified time.Time         `json:"last_modified" db:"last_modified"`
	UserName     string            `json:"user_name" db:"user_name"`
}

// IsRoot reports whether the node is the fixed root folder.
func (n *Node) IsRoot() bool {
	return n.UniqueID == RootUniqueID
}

// Property returns the value of a property, or "" if unset.
func (n *Node) Property(key string) string {
	if n.Properties == nil {
		return ""
	}
	return n.Properties[key]
}

// IsGolden reports whether a snapshot carries the golden marker.
func (n *Node) IsGolden() bool {
	return n.Property(PropertyGolden) == "true"
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	cp := *n
	if n.ParentID != nil {
		pid := *n.ParentID
		cp.ParentID = &pid
	}
	if n.Properties != nil {
		cp.Properties = make(map[string]string, len(n.Properties))
		for k, v := range n.Properties {
			cp.Properties[k] = v
		}
	}
	return &cp
}

// CanContain implements the containment invariants: folders hold folders and
// configurations, configurations hold snapshots, snapshots are leaves.
func CanContain(parent, child NodeType) bool {
	switch parent {
	case NodeTypeFolder:
		return child == NodeTypeFolder || child == NodeTypeConfiguration
	case NodeTypeConfiguration:
		return child == NodeTypeSnapshot
	default:
		return false
	}
}
