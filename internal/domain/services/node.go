package services

import (
	"context"

	"saveandrestore/internal/domain/models"
)

// NodeService handles structural node operations
type NodeService interface {
	// CreateNode creates a folder or configuration node under a parent
	CreateNode(ctx context.Context, req *CreateNodeRequest) (*models.Node, error)

	// GetNode retrieves a node by unique id
	GetNode(ctx context.Context, id string) (*models.Node, error)

	// GetChildNodes lists a node's children
	GetChildNodes(ctx context.Context, id string) ([]models.Node, error)

	// GetParentNode retrieves a node's parent
	GetParentNode(ctx context.Context, id string) (*models.Node, error)

	// GetRootNode retrieves the root folder
	GetRootNode(ctx context.Context) (*models.Node, error)

	// UpdateNode renames a node and/or updates its properties
	UpdateNode(ctx context.Context, req *UpdateNodeRequest) (*models.Node, error)

	// DeleteNode removes a node and its entire subtree
	DeleteNode(ctx context.Context, id string) error
}

// CreateNodeRequest represents a node creation request
type CreateNodeRequest struct {
	ParentID   string            `json:"parent_id"`
	Name       string            `json:"name"`
	NodeType   models.NodeType   `json:"node_type"`
	Properties map[string]string `json:"properties,omitempty"`
	UserName   string            `json:"user_name"`
}

// UpdateNodeRequest represents a rename/property update request
type UpdateNodeRequest struct {
	UniqueID          string            `json:"unique_id"`
	Name              *string           `json:"name,omitempty"`       // rename
	Properties        map[string]string `json:"properties,omitempty"` // full replacement when non-nil
	UserName          string            `json:"user_name"`
	PreserveTimestamp bool              `json:"preserve_timestamp,omitempty"` // migration use
}
