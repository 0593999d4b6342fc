package services

import (
	"context"

	"saveandrestore/internal/domain/models"
)

// PathResolver translates between unique node ids and absolute slash-separated
// paths. The root folder's own name is never part of a path.
type PathResolver interface {
	// GetFromPath resolves a path to 0, 1 or 2 nodes; the terminal segment
	// may match both a folder and a configuration sharing that name.
	GetFromPath(ctx context.Context, path string) ([]models.Node, error)

	// GetFullPath computes the absolute path of a node
	GetFullPath(ctx context.Context, id string) (string, error)

	// FindParentFromPathElements descends from a starting node through path
	// elements, returning the deepest folder reached.
	FindParentFromPathElements(ctx context.Context, node *models.Node, elements []string, depth int) (*models.Node, error)
}
