package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"saveandrestore/internal/config"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
	"saveandrestore/internal/domain/services"
)

type configurationService struct {
	nodeRepo   repositories.NodeRepository
	configRepo repositories.ConfigurationRepository
	txManager  repositories.TransactionManager
	logger     *slog.Logger
}

// NewConfigurationService creates a new configuration service
func NewConfigurationService(
	nodeRepo repositories.NodeRepository,
	configRepo repositories.ConfigurationRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.ConfigurationService {
	return &configurationService{
		nodeRepo:   nodeRepo,
		configRepo: configRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

func (s *configurationService) CreateConfiguration(ctx context.Context, req *services.CreateConfigurationRequest) (*models.Configuration, error) {
	if req == nil {
		return nil, &domain.ValidationError{Message: "request must not be nil"}
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ParentID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
			validation.Match(nodeNamePattern).Error("node name cannot contain slashes"),
		),
		validation.Field(&req.UserName, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	pvs, err := preparePvList(req.PvList, nil)
	if err != nil {
		return nil, err
	}

	var result *models.Configuration
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.CreateNode(txCtx, req.ParentID, &models.Node{
			Name:     req.Name,
			NodeType: models.NodeTypeConfiguration,
			UserName: req.UserName,
		})
		if err != nil {
			return err
		}
		if err := checkPathLength(txCtx, s.nodeRepo, node.UniqueID); err != nil {
			return err
		}
		if err := s.configRepo.SetConfigPvs(txCtx, node.UniqueID, pvs); err != nil {
			return err
		}
		result = &models.Configuration{Node: node, PvList: pvs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("configuration created",
		"unique_id", result.Node.UniqueID,
		"name", req.Name,
		"pv_count", len(pvs),
		"user_name", req.UserName,
	)
	return result, nil
}

// UpdateConfiguration replaces the ConfigPv list. Entries carrying a unique
// id must refer to existing PVs and keep that identity; entries without one
// are assigned a fresh id. PVs absent from the new list are removed, which
// orphans their historical snapshot items.
func (s *configurationService) UpdateConfiguration(ctx context.Context, req *services.UpdateConfigurationRequest) (*models.Configuration, error) {
	if req == nil {
		return nil, &domain.ValidationError{Message: "request must not be nil"}
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ConfigID, validation.Required),
		validation.Field(&req.UserName, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	var result *models.Configuration
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.nodeRepo.GetNode(txCtx, req.ConfigID)
		if err != nil {
			return err
		}
		if node.NodeType != models.NodeTypeConfiguration {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, not a configuration", req.ConfigID, node.NodeType),
			}
		}

		existing, err := s.configRepo.GetConfigPvs(txCtx, req.ConfigID)
		if err != nil {
			return err
		}
		pvs, err := preparePvList(req.PvList, existing)
		if err != nil {
			return err
		}
		if err := s.configRepo.SetConfigPvs(txCtx, req.ConfigID, pvs); err != nil {
			return err
		}

		updated, err := s.nodeRepo.UpdateNode(txCtx, &models.Node{
			UniqueID: req.ConfigID,
			UserName: req.UserName,
		}, false)
		if err != nil {
			return err
		}
		result = &models.Configuration{Node: updated, PvList: pvs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("configuration updated",
		"unique_id", req.ConfigID,
		"pv_count", len(result.PvList),
		"user_name", req.UserName,
	)
	return result, nil
}

func (s *configurationService) GetConfigPvs(ctx context.Context, configID string) ([]models.ConfigPv, error) {
	return s.configRepo.GetConfigPvs(ctx, configID)
}

// RenamePv changes one PV's name in place. The ConfigPv keeps its unique id,
// so snapshot items captured under the old name still resolve.
func (s *configurationService) RenamePv(ctx context.Context, req *services.RenamePvRequest) (*models.ConfigPv, error) {
	if req == nil {
		return nil, &domain.ValidationError{Message: "request must not be nil"}
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ConfigID, validation.Required),
		validation.Field(&req.OldPvName, validation.Required),
		validation.Field(&req.NewPvName, validation.Required),
		validation.Field(&req.UserName, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	var renamed *models.ConfigPv
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		pvs, err := s.configRepo.GetConfigPvs(txCtx, req.ConfigID)
		if err != nil {
			return err
		}

		idx := -1
		for i := range pvs {
			if pvs[i].PvName == req.NewPvName {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("pv %q already exists in configuration %s", req.NewPvName, req.ConfigID),
					ResourceType: "config_pv",
					ResourceID:   pvs[i].UniqueID,
				}
			}
			if pvs[i].PvName == req.OldPvName {
				idx = i
			}
		}
		if idx < 0 {
			return fmt.Errorf("pv %q in configuration %s: %w", req.OldPvName, req.ConfigID, domain.ErrNotFound)
		}

		pvs[idx].PvName = req.NewPvName
		if err := s.configRepo.SetConfigPvs(txCtx, req.ConfigID, pvs); err != nil {
			return err
		}
		if _, err := s.nodeRepo.UpdateNode(txCtx, &models.Node{
			UniqueID: req.ConfigID,
			UserName: req.UserName,
		}, false); err != nil {
			return err
		}
		cp := pvs[idx]
		renamed = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pv renamed",
		"config_id", req.ConfigID,
		"old_name", req.OldPvName,
		"new_name", req.NewPvName,
		"user_name", req.UserName,
	)
	return renamed, nil
}

// preparePvList validates a replacement pv list and resolves identities
// against the configuration's existing PVs (nil for a new configuration)
func preparePvList(list []models.ConfigPv, existing []models.ConfigPv) ([]models.ConfigPv, error) {
	known := make(map[string]struct{}, len(existing))
	for _, pv := range existing {
		known[pv.UniqueID] = struct{}{}
	}

	names := make(map[string]struct{}, len(list))
	out := make([]models.ConfigPv, len(list))
	for i, pv := range list {
		name := strings.TrimSpace(pv.PvName)
		if name == "" {
			return nil, &domain.ValidationError{Message: "pv name must not be empty"}
		}
		if _, dup := names[name]; dup {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("duplicate pv %q in list", name),
			}
		}
		names[name] = struct{}{}

		out[i] = pv
		out[i].PvName = name
		if pv.UniqueID == "" {
			out[i].UniqueID = uuid.NewString()
		} else if _, ok := known[pv.UniqueID]; !ok {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("pv id %s does not belong to this configuration", pv.UniqueID),
			}
		}
	}
	return out, nil
}
