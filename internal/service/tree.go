package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
	"saveandrestore/internal/domain/services"
)

// treeService orchestrates move/copy across the node store. Every operation
// validates its preconditions and commits inside one transaction, so a
// concurrent writer invalidating a precondition surfaces as a conflict with
// no partial state persisted.
type treeService struct {
	nodeRepo     repositories.NodeRepository
	configRepo   repositories.ConfigurationRepository
	snapshotRepo repositories.SnapshotRepository
	tagRepo      repositories.TagRepository
	txManager    repositories.TransactionManager
	logger       *slog.Logger
}

// NewTreeService creates a new tree operation service
func NewTreeService(
	nodeRepo repositories.NodeRepository,
	configRepo repositories.ConfigurationRepository,
	snapshotRepo repositories.SnapshotRepository,
	tagRepo repositories.TagRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.TreeService {
	return &treeService{
		nodeRepo:     nodeRepo,
		configRepo:   configRepo,
		snapshotRepo: snapshotRepo,
		tagRepo:      tagRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// IsMoveOrCopyAllowed implements the shared precondition checks: all nodes
// share one parent, only folders and configurations move, the target is a
// folder outside every moved subtree, and no moved node collides with a
// same-type child of the target.
func (s *treeService) IsMoveOrCopyAllowed(ctx context.Context, nodes []models.Node, target *models.Node) error {
	if len(nodes) == 0 {
		return &domain.ValidationError{Message: "no nodes selected"}
	}
	if target == nil {
		return &domain.ValidationError{Message: "no target node"}
	}
	if target.NodeType != models.NodeTypeFolder {
		return &domain.ValidationError{Message: "target must be a folder"}
	}

	var parentID string
	for i := range nodes {
		node := &nodes[i]
		if node.NodeType != models.NodeTypeFolder && node.NodeType != models.NodeTypeConfiguration {
			return &domain.ValidationError{
				Message: fmt.Sprintf("%s nodes cannot be moved or copied", node.NodeType),
			}
		}
		if node.IsRoot() || node.ParentID == nil {
			return &domain.ValidationError{Message: "root folder cannot be moved or copied"}
		}
		if i == 0 {
			parentID = *node.ParentID
		} else if *node.ParentID != parentID {
			return &domain.ValidationError{Message: "nodes must share the same parent"}
		}
	}

	// the target must not be any selected node or a descendant of one
	selected := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		selected[nodes[i].UniqueID] = struct{}{}
	}
	for cur := target; ; {
		if _, hit := selected[cur.UniqueID]; hit {
			return &domain.CycleError{Message: "target lies inside a moved subtree"}
		}
		if cur.ParentID == nil {
			break
		}
		parent, err := s.nodeRepo.GetNode(ctx, *cur.ParentID)
		if err != nil {
			return err
		}
		cur = parent
	}

	children, err := s.nodeRepo.GetChildNodes(ctx, target.UniqueID)
	if err != nil {
		return err
	}
	for i := range nodes {
		node := &nodes[i]
		for j := range children {
			child := &children[j]
			if child.UniqueID == node.UniqueID {
				continue
			}
			if child.NodeType == node.NodeType && child.Name == node.Name {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("a %s named %q already exists in the target folder", node.NodeType, node.Name),
					ResourceType: "node",
					ResourceID:   child.UniqueID,
				}
			}
		}
	}
	return nil
}

// MoveNodes reparents nodes to a target folder, all-or-nothing
func (s *treeService) MoveNodes(ctx context.Context, nodeIDs []string, targetID, userName string) (*services.TargetContents, error) {
	if userName == "" {
		return nil, &domain.ValidationError{Message: "user name must not be empty"}
	}

	var contents *services.TargetContents
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		nodes, target, err := s.loadSelection(txCtx, nodeIDs, targetID)
		if err != nil {
			return err
		}
		if err := s.IsMoveOrCopyAllowed(txCtx, nodes, target); err != nil {
			return err
		}

		for i := range nodes {
			if err := s.nodeRepo.Reparent(txCtx, nodes[i].UniqueID, targetID); err != nil {
				return err
			}
			if _, err := s.nodeRepo.UpdateNode(txCtx, &models.Node{
				UniqueID: nodes[i].UniqueID,
				UserName: userName,
			}, false); err != nil {
				return err
			}
		}
		if _, err := s.nodeRepo.UpdateNode(txCtx, &models.Node{
			UniqueID: targetID,
			UserName: userName,
		}, false); err != nil {
			return err
		}

		contents, err = s.targetContents(txCtx, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("nodes moved",
		"count", len(nodeIDs),
		"target_id", targetID,
		"user_name", userName,
	)
	return contents, nil
}

// CopyNodes deep-clones node subtrees under a target folder, leaving the
// sources untouched
func (s *treeService) CopyNodes(ctx context.Context, nodeIDs []string, targetID, userName string) (*services.TargetContents, error) {
	if userName == "" {
		return nil, &domain.ValidationError{Message: "user name must not be empty"}
	}

	var contents *services.TargetContents
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		nodes, target, err := s.loadSelection(txCtx, nodeIDs, targetID)
		if err != nil {
			return err
		}
		if err := s.IsMoveOrCopyAllowed(txCtx, nodes, target); err != nil {
			return err
		}
		// unlike move, a selected node already under the target always
		// collides with itself
		for i := range nodes {
			if *nodes[i].ParentID == targetID {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("a %s named %q already exists in the target folder", nodes[i].NodeType, nodes[i].Name),
					ResourceType: "node",
					ResourceID:   nodes[i].UniqueID,
				}
			}
		}

		for i := range nodes {
			if _, err := s.copySubtree(txCtx, &nodes[i], targetID, userName, nil); err != nil {
				return err
			}
		}
		if _, err := s.nodeRepo.UpdateNode(txCtx, &models.Node{
			UniqueID: targetID,
			UserName: userName,
		}, false); err != nil {
			return err
		}

		contents, err = s.targetContents(txCtx, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("nodes copied",
		"count", len(nodeIDs),
		"target_id", targetID,
		"user_name", userName,
	)
	return contents, nil
}

// copySubtree clones source and its descendants under newParentID. pvIDMap
// carries the source-to-copy ConfigPv id mapping of the enclosing
// configuration so snapshot items keep referencing their configuration's own
// PVs.
func (s *treeService) copySubtree(ctx context.Context, source *models.Node, newParentID, userName string, pvIDMap map[string]string) (*models.Node, error) {
	clone := source.Clone()
	clone.UniqueID = uuid.NewString()
	clone.ParentID = nil
	clone.Created = time.Time{} // refreshed by the store
	clone.UserName = userName

	created, err := s.nodeRepo.CreateNode(ctx, newParentID, clone)
	if err != nil {
		return nil, err
	}

	switch source.NodeType {
	case models.NodeTypeConfiguration:
		pvs, err := s.configRepo.GetConfigPvs(ctx, source.UniqueID)
		if err != nil {
			return nil, err
		}
		pvIDMap = make(map[string]string, len(pvs))
		copied := make([]models.ConfigPv, len(pvs))
		for i, pv := range pvs {
			copied[i] = pv
			copied[i].UniqueID = uuid.NewString()
			pvIDMap[pv.UniqueID] = copied[i].UniqueID
		}
		if err := s.configRepo.SetConfigPvs(ctx, created.UniqueID, copied); err != nil {
			return nil, err
		}

	case models.NodeTypeSnapshot:
		items, err := s.snapshotRepo.GetSnapshotItems(ctx, source.UniqueID)
		if err != nil {
			return nil, err
		}
		copied := make([]models.SnapshotItem, len(items))
		for i, item := range items {
			copied[i] = item
			if mapped, ok := pvIDMap[item.ConfigPvID]; ok {
				copied[i].ConfigPvID = mapped
			}
		}
		if err := s.snapshotRepo.SetSnapshotItems(ctx, created.UniqueID, copied); err != nil {
			return nil, err
		}

		tags, err := s.tagRepo.GetTags(ctx, source.UniqueID)
		if err != nil {
			return nil, err
		}
		for i := len(tags) - 1; i >= 0; i-- { // restore insertion order
			tag := tags[i]
			tag.SnapshotID = created.UniqueID
			if err := s.tagRepo.AddTag(ctx, &tag); err != nil {
				return nil, err
			}
		}
	}

	children, err := s.nodeRepo.GetChildNodes(ctx, source.UniqueID)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if _, err := s.copySubtree(ctx, &children[i], created.UniqueID, userName, pvIDMap); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (s *treeService) loadSelection(ctx context.Context, nodeIDs []string, targetID string) ([]models.Node, *models.Node, error) {
	nodes := make([]models.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		node, err := s.nodeRepo.GetNode(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, *node)
	}
	target, err := s.nodeRepo.GetNode(ctx, targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("target %w", err)
	}
	return nodes, target, nil
}

func (s *treeService) targetContents(ctx context.Context, targetID string) (*services.TargetContents, error) {
	target, err := s.nodeRepo.GetNode(ctx, targetID)
	if err != nil {
		return nil, err
	}
	children, err := s.nodeRepo.GetChildNodes(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return &services.TargetContents{Node: target, Children: children}, nil
}
