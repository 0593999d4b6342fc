package services

import (
	"context"

	"saveandrestore/internal/domain/models"
)

// TagManager manages the tag list attached to committed snapshots
type TagManager interface {
	// AddTagToSnapshot appends a tag; a duplicate name on the same snapshot
	// fails with domain.ErrConflict
	AddTagToSnapshot(ctx context.Context, req *AddTagRequest) (*models.Tag, error)

	// RemoveTagFromSnapshot removes a tag by name; an absent tag fails with
	// domain.ErrNotFound
	RemoveTagFromSnapshot(ctx context.Context, snapshotID, name string) error

	// GetTags lists a snapshot's tags, most recent first
	GetTags(ctx context.Context, snapshotID string) ([]models.Tag, error)

	// GetAllTags lists every tag in the store, most recent first
	GetAllTags(ctx context.Context) ([]models.Tag, error)
}

// AddTagRequest represents a tag creation request
type AddTagRequest struct {
	SnapshotID string `json:"snapshot_id"`
	Name       string `json:"name"`
	Comment    string `json:"comment,omitempty"`
	UserName   string `json:"user_name"`
}
