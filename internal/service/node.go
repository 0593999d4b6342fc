package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"saveandrestore/internal/config"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
	"saveandrestore/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// nodeNamePattern rejects slashes so names stay usable as path segments
var nodeNamePattern = regexp.MustCompile(`^[^/]+$`)

// checkPathLength rejects a freshly created node whose absolute path exceeds
// config.MaxPathLength. Called inside the creating transaction so an
// oversized node rolls back with everything else.
func checkPathLength(ctx context.Context, repo repositories.NodeRepository, id string) error {
	path, err := repo.GetFullPath(ctx, id)
	if err != nil {
		return err
	}
	if len(path) > config.MaxPathLength {
		return &domain.ValidationError{
			Message: fmt.Sprintf("node path exceeds %d characters", config.MaxPathLength),
		}
	}
	return nil
}

type nodeService struct {
	nodeRepo  repositories.NodeRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewNodeService creates a new node service
func NewNodeService(
	nodeRepo repositories.NodeRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.NodeService {
	return &nodeService{
		nodeRepo:  nodeRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// CreateNode creates a folder or configuration node under a parent.
// Snapshot nodes are created by the capture path in SnapshotService only.
func (s *nodeService) CreateNode(ctx context.Context, req *services.CreateNodeRequest) (*models.Node, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.NodeType == models.NodeTypeSnapshot {
		return nil, &domain.ValidationError{Message: "snapshot nodes are created by saving a snapshot"}
	}

	var created *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.nodeRepo.CreateNode(txCtx, req.ParentID, &models.Node{
			Name:       req.Name,
			NodeType:   req.NodeType,
			Properties: req.Properties,
			UserName:   req.UserName,
		})
		if err != nil {
			return err
		}
		return checkPathLength(txCtx, s.nodeRepo, created.UniqueID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node created",
		"unique_id", created.UniqueID,
		"name", created.Name,
		"node_type", created.NodeType,
		"parent_id", req.ParentID,
		"user_name", req.UserName,
	)
	return created, nil
}

// GetNode retrieves a node by unique id
func (s *nodeService) GetNode(ctx context.Context, id string) (*models.Node, error) {
	return s.nodeRepo.GetNode(ctx, id)
}

// GetChildNodes lists a node's children
func (s *nodeService) GetChildNodes(ctx context.Context, id string) ([]models.Node, error) {
	return s.nodeRepo.GetChildNodes(ctx, id)
}

// GetParentNode retrieves a node's parent
func (s *nodeService) GetParentNode(ctx context.Context, id string) (*models.Node, error) {
	return s.nodeRepo.GetParentNode(ctx, id)
}

// GetRootNode retrieves the root folder
func (s *nodeService) GetRootNode(ctx context.Context) (*models.Node, error) {
	return s.nodeRepo.GetRootNode(ctx)
}

// UpdateNode renames a node and/or updates its properties. Snapshot nodes
// are not updatable here: committed snapshots are immutable apart from tags
// and the golden marker, and drafts change only through the capture and
// commit paths.
func (s *nodeService) UpdateNode(ctx context.Context, req *services.UpdateNodeRequest) (*models.Node, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var updated *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.nodeRepo.GetNode(txCtx, req.UniqueID)
		if err != nil {
			return err
		}
		if current.NodeType == models.NodeTypeSnapshot {
			return &domain.ValidationError{
				Message: "snapshots are updated through snapshot operations only",
			}
		}

		node := &models.Node{
			UniqueID:   req.UniqueID,
			Properties: req.Properties,
			UserName:   req.UserName,
		}
		if req.Name != nil {
			node.Name = *req.Name
		}
		updated, err = s.nodeRepo.UpdateNode(txCtx, node, req.PreserveTimestamp)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node updated",
		"unique_id", updated.UniqueID,
		"name", updated.Name,
		"user_name", req.UserName,
	)
	return updated, nil
}

// DeleteNode removes a node and its entire subtree
func (s *nodeService) DeleteNode(ctx context.Context, id string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.nodeRepo.DeleteNode(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("node deleted", "unique_id", id)
	return nil
}

func (s *nodeService) validateCreateRequest(req *services.CreateNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ParentID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
			validation.Match(nodeNamePattern).Error("node name cannot contain slashes"),
		),
		validation.Field(&req.NodeType, validation.Required, validation.In(
			models.NodeTypeFolder,
			models.NodeTypeConfiguration,
			models.NodeTypeSnapshot,
		)),
		validation.Field(&req.UserName, validation.Required),
	)
}

func (s *nodeService) validateUpdateRequest(req *services.UpdateNodeRequest) error {
	if req.Name == nil && req.Properties == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	rules := []*validation.FieldRules{
		validation.Field(&req.UniqueID, validation.Required),
		validation.Field(&req.UserName, validation.Required),
	}
	if req.Name != nil {
		rules = append(rules,
			validation.Field(&req.Name,
				validation.Required,
				validation.Length(1, config.MaxNodeNameLength),
				validation.Match(nodeNamePattern).Error("node name cannot contain slashes"),
			),
		)
	}
	return validation.ValidateStruct(req, rules...)
}
