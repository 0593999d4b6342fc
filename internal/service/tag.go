package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
	"saveandrestore/internal/domain/services"
)

type tagService struct {
	nodeRepo  repositories.NodeRepository
	tagRepo   repositories.TagRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewTagManager creates a new tag manager
func NewTagManager(
	nodeRepo repositories.NodeRepository,
	tagRepo repositories.TagRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.TagManager {
	return &tagService{
		nodeRepo:  nodeRepo,
		tagRepo:   tagRepo,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *tagService) AddTagToSnapshot(ctx context.Context, req *services.AddTagRequest) (*models.Tag, error) {
	if req == nil {
		return nil, &domain.ValidationError{Message: "request must not be nil"}
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.SnapshotID, validation.Required),
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.UserName, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	tag := &models.Tag{
		SnapshotID: req.SnapshotID,
		Name:       req.Name,
		Comment:    req.Comment,
		UserName:   req.UserName,
	}
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.GetNode(txCtx, req.SnapshotID)
		if err != nil {
			return err
		}
		if node.NodeType != models.NodeTypeSnapshot || node.Status != models.SnapshotStatusCommitted {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is not a committed snapshot, only committed snapshots can be tagged", req.SnapshotID),
			}
		}
		return s.tagRepo.AddTag(txCtx, tag)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag added",
		"snapshot_id", req.SnapshotID,
		"tag", req.Name,
		"user_name", req.UserName,
	)
	return tag, nil
}

func (s *tagService) RemoveTagFromSnapshot(ctx context.Context, snapshotID, name string) error {
	if snapshotID == "" || name == "" {
		return &domain.ValidationError{Message: "snapshot id and tag name must not be empty"}
	}
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.tagRepo.RemoveTag(txCtx, snapshotID, name)
	})
	if err != nil {
		return err
	}

	s.logger.Info("tag removed", "snapshot_id", snapshotID, "tag", name)
	return nil
}

func (s *tagService) GetTags(ctx context.Context, snapshotID string) ([]models.Tag, error) {
	return s.tagRepo.GetTags(ctx, snapshotID)
}

func (s *tagService) GetAllTags(ctx context.Context) ([]models.Tag, error) {
	return s.tagRepo.GetAllTags(ctx)
}
