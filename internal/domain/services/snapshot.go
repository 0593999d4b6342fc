package services

import (
	"context"

	"saveandrestore/internal/domain/models"
)

// SnapshotService creates draft and committed snapshots, stores captured
// values and manages the golden marker.
type SnapshotService interface {
	// SaveSnapshot captures items under a configuration. Empty name and
	// comment produce (or overwrite) the caller's draft snapshot; non-empty
	// name and comment produce a committed snapshot.
	SaveSnapshot(ctx context.Context, req *SaveSnapshotRequest) (*models.Snapshot, error)

	// CommitSnapshot promotes a draft snapshot by supplying name and comment
	CommitSnapshot(ctx context.Context, req *CommitSnapshotRequest) (*models.Node, error)

	// GetSnapshots lists the committed snapshots of a configuration
	GetSnapshots(ctx context.Context, configID string) ([]models.Node, error)

	// GetAllSnapshots lists every committed snapshot in the tree
	GetAllSnapshots(ctx context.Context) ([]models.Node, error)

	// GetSnapshotNode retrieves a committed snapshot node; drafts and
	// non-snapshot ids fail with domain.ErrNotFound
	GetSnapshotNode(ctx context.Context, id string) (*models.Node, error)

	// GetSnapshotItems retrieves the captured items of a snapshot
	GetSnapshotItems(ctx context.Context, snapshotID string) ([]models.SnapshotItem, error)

	// TagSnapshotAsGolden sets or clears the golden property on one snapshot
	TagSnapshotAsGolden(ctx context.Context, snapshotID string, golden bool, userName string) (*models.Node, error)
}

// SaveSnapshotRequest represents a snapshot capture request
type SaveSnapshotRequest struct {
	ConfigID string                `json:"config_id"`
	Items    []models.SnapshotItem `json:"items"`
	Name     string                `json:"name,omitempty"`
	Comment  string                `json:"comment,omitempty"`
	UserName string                `json:"user_name"`
}

// CommitSnapshotRequest promotes a draft snapshot
type CommitSnapshotRequest struct {
	SnapshotID string `json:"snapshot_id"`
	Name       string `json:"name"`
	Comment    string `json:"comment"`
	UserName   string `json:"user_name"`
}
