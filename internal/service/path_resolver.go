package service

import (
	"context"
	"log/slog"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
	"saveandrestore/internal/domain/services"
)

type pathResolverService struct {
	nodeRepo repositories.NodeRepository
	logger   *slog.Logger
}

// NewPathResolver creates a new path resolver
func NewPathResolver(
	nodeRepo repositories.NodeRepository,
	logger *slog.Logger,
) services.PathResolver {
	return &pathResolverService{
		nodeRepo: nodeRepo,
		logger:   logger,
	}
}

// GetFromPath resolves a path to 0, 1 or 2 nodes
func (s *pathResolverService) GetFromPath(ctx context.Context, path string) ([]models.Node, error) {
	if path == "" {
		return nil, &domain.ValidationError{Message: "path must not be empty"}
	}
	return s.nodeRepo.GetFromPath(ctx, path)
}

// GetFullPath computes the absolute path of a node
func (s *pathResolverService) GetFullPath(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", &domain.ValidationError{Message: "node id must not be empty"}
	}
	return s.nodeRepo.GetFullPath(ctx, id)
}

// FindParentFromPathElements descends from node through elements[depth:],
// treating every consumed element as a folder name, and returns the deepest
// folder reached. The terminal element is not consumed; it may name a folder
// and a configuration at once, which is the caller's ambiguity to resolve.
func (s *pathResolverService) FindParentFromPathElements(ctx context.Context, node *models.Node, elements []string, depth int) (*models.Node, error) {
	if node == nil {
		root, err := s.nodeRepo.GetRootNode(ctx)
		if err != nil {
			return nil, err
		}
		node = root
	}
	if depth < 0 || depth > len(elements) {
		return nil, &domain.ValidationError{Message: "depth out of range"}
	}

	current := node
	for i := depth; i < len(elements)-1; i++ {
		children, err := s.nodeRepo.GetChildNodes(ctx, current.UniqueID)
		if err != nil {
			return nil, err
		}
		var next *models.Node
		for j := range children {
			child := &children[j]
			if child.NodeType == models.NodeTypeFolder && child.Name == elements[i] {
				next = child
				break
			}
		}
		if next == nil {
			return nil, &domain.NotFoundError{
				Message: "no folder named " + elements[i] + " under " + current.Name,
			}
		}
		current = next
	}
	return current, nil
}
