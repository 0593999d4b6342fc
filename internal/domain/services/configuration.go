package services

import (
	"context"

	"saveandrestore/internal/domain/models"
)

// ConfigurationService manages configuration nodes and their ConfigPv lists
type ConfigurationService interface {
	// CreateConfiguration creates a configuration node plus its ConfigPv
	// list atomically
	CreateConfiguration(ctx context.Context, req *CreateConfigurationRequest) (*models.Configuration, error)

	// UpdateConfiguration overwrites a configuration's ConfigPv list with
	// diff semantics: newly referenced PVs are added, PVs no longer
	// referenced are removed, retained PVs keep their identity.
	UpdateConfiguration(ctx context.Context, req *UpdateConfigurationRequest) (*models.Configuration, error)

	// GetConfigPvs retrieves the ordered ConfigPv list of a configuration
	GetConfigPvs(ctx context.Context, configID string) ([]models.ConfigPv, error)

	// RenamePv renames a single PV in place, preserving its identity so
	// historical snapshot items remain valid
	RenamePv(ctx context.Context, req *RenamePvRequest) (*models.ConfigPv, error)
}

// CreateConfigurationRequest represents a configuration creation request
type CreateConfigurationRequest struct {
	ParentID string            `json:"parent_id"`
	Name     string            `json:"name"`
	PvList   []models.ConfigPv `json:"pv_list"`
	UserName string            `json:"user_name"`
}

// UpdateConfigurationRequest carries the full replacement ConfigPv list.
// Entries with a unique id refer to existing PVs; entries without one are new.
type UpdateConfigurationRequest struct {
	ConfigID string            `json:"config_id"`
	PvList   []models.ConfigPv `json:"pv_list"`
	UserName string            `json:"user_name"`
}

// RenamePvRequest renames one PV of a configuration
type RenamePvRequest struct {
	ConfigID  string `json:"config_id"`
	OldPvName string `json:"old_pv_name"`
	NewPvName string `json:"new_pv_name"`
	UserName  string `json:"user_name"`
}
