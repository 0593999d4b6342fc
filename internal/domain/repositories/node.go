package repositories

import (
	"context"

	"saveandrestore/internal/domain/models"
)

// NodeRepository defines data access operations on the node tree. All
// mutating operations participate in a transaction when one is present in
// the context; reads observe a single consistent point-in-time view.
type NodeRepository interface {
	// GetNode retrieves a node by unique id
	GetNode(ctx context.Context, id string) (*models.Node, error)

	// GetChildNodes lists the child nodes of a node in insertion order
	GetChildNodes(ctx context.Context, id string) ([]models.Node, error)

	// GetParentNode retrieves the parent of a node
	GetParentNode(ctx context.Context, id string) (*models.Node, error)

	// GetRootNode retrieves the fixed-id root folder
	GetRootNode(ctx context.Context) (*models.Node, error)

	// CreateNode creates a node under the given parent. Fails with
	// domain.ErrNotFound for an unknown parent, domain.ErrValidation when
	// the node type violates the parent's allowed-children rule, and
	// domain.ErrConflict when a same-type sibling has the same name.
	CreateNode(ctx context.Context, parentID string, node *models.Node) (*models.Node, error)

	// UpdateNode writes name, properties and snapshot status. Node type and
	// parent are immutable here; renames colliding with a same-type sibling
	// fail with domain.ErrConflict. preserveTimestamp keeps the stored
	// created/last-modified times (migration use).
	UpdateNode(ctx context.Context, node *models.Node, preserveTimestamp bool) (*models.Node, error)

	// Reparent moves a single node under a new parent, enforcing the same
	// containment and sibling-name rules as CreateNode.
	Reparent(ctx context.Context, id, newParentID string) error

	// DeleteNode removes a node and its entire subtree, including snapshot
	// data and tags. All-or-nothing.
	DeleteNode(ctx context.Context, id string) error

	// GetFromPath resolves an absolute slash-separated path to 0, 1 or 2
	// nodes (a folder and a configuration may share the terminal name).
	GetFromPath(ctx context.Context, path string) ([]models.Node, error)

	// GetFullPath computes the absolute path of a node, omitting the root's
	// own name.
	GetFullPath(ctx context.Context, id string) (string, error)
}

// ConfigurationRepository stores the ordered ConfigPv list owned by a
// CONFIGURATION node.
type ConfigurationRepository interface {
	// SetConfigPvs overwrites the ConfigPv list of a configuration
	SetConfigPvs(ctx context.Context, configID string, pvs []models.ConfigPv) error

	// GetConfigPvs retrieves the ordered ConfigPv list of a configuration
	GetConfigPvs(ctx context.Context, configID string) ([]models.ConfigPv, error)
}

// SnapshotRepository stores the captured items of a SNAPSHOT node.
type SnapshotRepository interface {
	// SetSnapshotItems overwrites the item list of a snapshot
	SetSnapshotItems(ctx context.Context, snapshotID string, items []models.SnapshotItem) error

	// GetSnapshotItems retrieves the item list of a snapshot
	GetSnapshotItems(ctx context.Context, snapshotID string) ([]models.SnapshotItem, error)

	// GetAllSnapshotNodes lists every SNAPSHOT node in the tree
	GetAllSnapshotNodes(ctx context.Context) ([]models.Node, error)
}

// TagRepository stores the tags attached to committed snapshots.
type TagRepository interface {
	// AddTag appends a tag; duplicate (snapshot, name) fails with
	// domain.ErrConflict
	AddTag(ctx context.Context, tag *models.Tag) error

	// RemoveTag removes a tag by (snapshot, name); absent tags fail with
	// domain.ErrNotFound
	RemoveTag(ctx context.Context, snapshotID, name string) error

	// GetTags lists a snapshot's tags ordered by created time descending
	GetTags(ctx context.Context, snapshotID string) ([]models.Tag, error)

	// GetAllTags lists every tag in the store ordered by created time
	// descending
	GetAllTags(ctx context.Context) ([]models.Tag, error)
}
