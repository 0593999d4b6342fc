package services

import (
	"context"

	"saveandrestore/internal/domain/models"
)

// TreeService orchestrates multi-node structural operations
type TreeService interface {
	// MoveNodes reparents nodes to a target folder. All-or-nothing: if any
	// precondition fails for any node, nothing moves. Returns the refreshed
	// target with its children.
	MoveNodes(ctx context.Context, nodeIDs []string, targetID, userName string) (*TargetContents, error)

	// CopyNodes deep-clones node subtrees under a target folder, leaving the
	// sources untouched. Returns the refreshed target with its children.
	CopyNodes(ctx context.Context, nodeIDs []string, targetID, userName string) (*TargetContents, error)

	// IsMoveOrCopyAllowed is the pure precondition predicate behind both
	// operations, exposed so callers can pre-validate before confirming.
	IsMoveOrCopyAllowed(ctx context.Context, nodes []models.Node, target *models.Node) error
}

// TargetContents is a target node together with its children after a
// move/copy operation.
type TargetContents struct {
	Node     *models.Node  `json:"node"`
	Children []models.Node `json:"children"`
}
