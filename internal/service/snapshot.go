package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"saveandrestore/internal/alarm"
	"saveandrestore/internal/config"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
	"saveandrestore/internal/domain/services"
)

// draftNameLayout names draft snapshots after their capture time, matching
// what operators see in the tree until the draft is committed. The owner's
// name is appended so drafts captured in the same millisecond by different
// users never collide as siblings.
const draftNameLayout = "2006-01-02 15:04:05.000"

type snapshotService struct {
	nodeRepo     repositories.NodeRepository
	configRepo   repositories.ConfigurationRepository
	snapshotRepo repositories.SnapshotRepository
	txManager    repositories.TransactionManager
	registry     *alarm.Registry
	logger       *slog.Logger
	nowFn        func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	nodeRepo repositories.NodeRepository,
	configRepo repositories.ConfigurationRepository,
	snapshotRepo repositories.SnapshotRepository,
	txManager repositories.TransactionManager,
	registry *alarm.Registry,
	logger *slog.Logger,
) services.SnapshotService {
	return &snapshotService{
		nodeRepo:     nodeRepo,
		configRepo:   configRepo,
		snapshotRepo: snapshotRepo,
		txManager:    txManager,
		registry:     registry,
		logger:       logger,
		nowFn:        time.Now,
	}
}

func (s *snapshotService) SaveSnapshot(ctx context.Context, req *services.SaveSnapshotRequest) (*models.Snapshot, error) {
	if err := s.validateSaveRequest(req); err != nil {
		return nil, err
	}
	asDraft := req.Name == ""

	var result *models.Snapshot
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		config, err := s.nodeRepo.GetNode(txCtx, req.ConfigID)
		if err != nil {
			return err
		}
		if config.NodeType != models.NodeTypeConfiguration {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, snapshots are saved under configurations", req.ConfigID, config.NodeType),
			}
		}
		if err := s.checkItems(txCtx, req.ConfigID, req.Items); err != nil {
			return err
		}

		var node *models.Node
		if asDraft {
			node, err = s.saveDraft(txCtx, req)
		} else {
			node, err = s.nodeRepo.CreateNode(txCtx, req.ConfigID, &models.Node{
				Name:       req.Name,
				NodeType:   models.NodeTypeSnapshot,
				Status:     models.SnapshotStatusCommitted,
				Properties: map[string]string{models.PropertyComment: req.Comment},
				UserName:   req.UserName,
			})
		}
		if err != nil {
			return err
		}
		if err := s.snapshotRepo.SetSnapshotItems(txCtx, node.UniqueID, req.Items); err != nil {
			return err
		}
		result = &models.Snapshot{Node: node, Items: req.Items}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot saved",
		"snapshot_id", result.Node.UniqueID,
		"config_id", req.ConfigID,
		"status", result.Node.Status,
		"item_count", len(req.Items),
		"user_name", req.UserName,
	)
	return result, nil
}

// saveDraft finds the caller's draft under the configuration and overwrites
// it, or creates a fresh one. A user keeps at most one draft per
// configuration.
func (s *snapshotService) saveDraft(ctx context.Context, req *services.SaveSnapshotRequest) (*models.Node, error) {
	children, err := s.nodeRepo.GetChildNodes(ctx, req.ConfigID)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s (%s)", s.nowFn().UTC().Format(draftNameLayout), req.UserName)
	for i := range children {
		child := &children[i]
		if child.NodeType == models.NodeTypeSnapshot &&
			child.Status == models.SnapshotStatusDraft &&
			child.UserName == req.UserName {
			return s.nodeRepo.UpdateNode(ctx, &models.Node{
				UniqueID: child.UniqueID,
				Name:     name,
				UserName: req.UserName,
			}, false)
		}
	}
	return s.nodeRepo.CreateNode(ctx, req.ConfigID, &models.Node{
		Name:     name,
		NodeType: models.NodeTypeSnapshot,
		Status:   models.SnapshotStatusDraft,
		UserName: req.UserName,
	})
}

func (s *snapshotService) CommitSnapshot(ctx context.Context, req *services.CommitSnapshotRequest) (*models.Node, error) {
	if req == nil {
		return nil, &domain.ValidationError{Message: "request must not be nil"}
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.SnapshotID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
			validation.Match(nodeNamePattern).Error("snapshot name cannot contain slashes"),
		),
		validation.Field(&req.Comment, validation.Required),
		validation.Field(&req.UserName, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	var committed *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.GetNode(txCtx, req.SnapshotID)
		if err != nil {
			return err
		}
		if node.NodeType != models.NodeTypeSnapshot {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, not a snapshot", req.SnapshotID, node.NodeType),
			}
		}
		if node.Status != models.SnapshotStatusDraft {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("snapshot %s is already committed", req.SnapshotID),
				ResourceType: "snapshot",
				ResourceID:   req.SnapshotID,
			}
		}

		props := node.Properties
		if props == nil {
			props = map[string]string{}
		}
		props[models.PropertyComment] = req.Comment
		committed, err = s.nodeRepo.UpdateNode(txCtx, &models.Node{
			UniqueID:   req.SnapshotID,
			Name:       req.Name,
			Status:     models.SnapshotStatusCommitted,
			Properties: props,
			UserName:   req.UserName,
		}, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot committed",
		"snapshot_id", req.SnapshotID,
		"name", req.Name,
		"user_name", req.UserName,
	)
	return committed, nil
}

func (s *snapshotService) GetSnapshots(ctx context.Context, configID string) ([]models.Node, error) {
	config, err := s.nodeRepo.GetNode(ctx, configID)
	if err != nil {
		return nil, err
	}
	if config.NodeType != models.NodeTypeConfiguration {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("node %s is a %s, not a configuration", configID, config.NodeType),
		}
	}
	children, err := s.nodeRepo.GetChildNodes(ctx, configID)
	if err != nil {
		return nil, err
	}
	snapshots := make([]models.Node, 0, len(children))
	for _, child := range children {
		if child.NodeType == models.NodeTypeSnapshot && child.Status == models.SnapshotStatusCommitted {
			snapshots = append(snapshots, child)
		}
	}
	return snapshots, nil
}

func (s *snapshotService) GetAllSnapshots(ctx context.Context) ([]models.Node, error) {
	nodes, err := s.snapshotRepo.GetAllSnapshotNodes(ctx)
	if err != nil {
		return nil, err
	}
	committed := make([]models.Node, 0, len(nodes))
	for _, node := range nodes {
		if node.Status == models.SnapshotStatusCommitted {
			committed = append(committed, node)
		}
	}
	return committed, nil
}

func (s *snapshotService) GetSnapshotNode(ctx context.Context, id string) (*models.Node, error) {
	node, err := s.nodeRepo.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.NodeType != models.NodeTypeSnapshot || node.Status != models.SnapshotStatusCommitted {
		return nil, fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
	}
	return node, nil
}

func (s *snapshotService) GetSnapshotItems(ctx context.Context, snapshotID string) ([]models.SnapshotItem, error) {
	return s.snapshotRepo.GetSnapshotItems(ctx, snapshotID)
}

func (s *snapshotService) TagSnapshotAsGolden(ctx context.Context, snapshotID string, golden bool, userName string) (*models.Node, error) {
	if userName == "" {
		return nil, &domain.ValidationError{Message: "user name must not be empty"}
	}

	var updated *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.GetNode(txCtx, snapshotID)
		if err != nil {
			return err
		}
		if node.NodeType != models.NodeTypeSnapshot || node.Status != models.SnapshotStatusCommitted {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is not a committed snapshot", snapshotID),
			}
		}

		props := node.Properties
		if props == nil {
			props = map[string]string{}
		}
		if golden {
			props[models.PropertyGolden] = "true"
		} else {
			delete(props, models.PropertyGolden)
		}
		updated, err = s.nodeRepo.UpdateNode(txCtx, &models.Node{
			UniqueID:   snapshotID,
			Properties: props,
			UserName:   userName,
		}, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot golden marker changed",
		"snapshot_id", snapshotID,
		"golden", golden,
		"user_name", userName,
	)
	return updated, nil
}

func (s *snapshotService) validateSaveRequest(req *services.SaveSnapshotRequest) error {
	if req == nil {
		return &domain.ValidationError{Message: "request must not be nil"}
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ConfigID, validation.Required),
		validation.Field(&req.Items, validation.Required),
		validation.Field(&req.UserName, validation.Required),
	); err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	if (req.Name == "") != (req.Comment == "") {
		return &domain.ValidationError{
			Message: "name and comment must both be given to commit, or both be empty for a draft",
		}
	}
	if req.Name != "" {
		if err := validation.Validate(req.Name,
			validation.Length(1, config.MaxNodeNameLength),
			validation.Match(nodeNamePattern).Error("snapshot name cannot contain slashes"),
		); err != nil {
			return &domain.ValidationError{Message: err.Error()}
		}
	}
	for i := range req.Items {
		item := &req.Items[i]
		if !s.registry.IsValidSeverity(item.Severity) {
			return &domain.ValidationError{
				Message: fmt.Sprintf("unknown alarm severity %q", item.Severity),
			}
		}
		if !s.registry.IsValidStatus(item.Status) {
			return &domain.ValidationError{
				Message: fmt.Sprintf("unknown alarm status %q", item.Status),
			}
		}
	}
	return nil
}

// checkItems verifies the items correspond one-to-one to the configuration's
// current ConfigPv list: every item references a known pv, no pv is captured
// twice, and no pv is missing
func (s *snapshotService) checkItems(ctx context.Context, configID string, items []models.SnapshotItem) error {
	pvs, err := s.configRepo.GetConfigPvs(ctx, configID)
	if err != nil {
		return err
	}
	known := make(map[string]string, len(pvs))
	for _, pv := range pvs {
		known[pv.UniqueID] = pv.PvName
	}
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		id := items[i].ConfigPvID
		if _, ok := known[id]; !ok {
			return &domain.ValidationError{
				Message: fmt.Sprintf("item references unknown config pv %s", id),
			}
		}
		if _, dup := seen[id]; dup {
			return &domain.ValidationError{
				Message: fmt.Sprintf("config pv %s captured more than once", id),
			}
		}
		seen[id] = struct{}{}
	}
	for id, name := range known {
		if _, ok := seen[id]; !ok {
			return &domain.ValidationError{
				Message: fmt.Sprintf("pv %q is not captured by the snapshot", name),
			}
		}
	}
	return nil
}
