package memory

import (
	"context"
	"fmt"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// ConfigurationRepository implements repositories.ConfigurationRepository on
// the in-memory arena.
type ConfigurationRepository struct {
	store *Store
}

// NewConfigurationRepository creates a new configuration repository
func NewConfigurationRepository(store *Store) repositories.ConfigurationRepository {
	return &ConfigurationRepository{store: store}
}

// SetConfigPvs overwrites the ConfigPv list of a configuration
func (r *ConfigurationRepository) SetConfigPvs(ctx context.Context, configID string, pvs []models.ConfigPv) error {
	return r.store.write(ctx, func(v *view) error {
		rec := v.forWrite(configID)
		if rec == nil {
			return fmt.Errorf("configuration %s: %w", configID, domain.ErrNotFound)
		}
		if rec.node.NodeType != models.NodeTypeConfiguration {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, not a configuration", configID, rec.node.NodeType),
			}
		}
		rec.pvs = append([]models.ConfigPv(nil), pvs...)
		return nil
	})
}

// GetConfigPvs retrieves the ordered ConfigPv list of a configuration
func (r *ConfigurationRepository) GetConfigPvs(ctx context.Context, configID string) ([]models.ConfigPv, error) {
	var pvs []models.ConfigPv
	err := r.store.read(ctx, func(v *view) error {
		rec := v.get(configID)
		if rec == nil {
			return fmt.Errorf("configuration %s: %w", configID, domain.ErrNotFound)
		}
		if rec.node.NodeType != models.NodeTypeConfiguration {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, not a configuration", configID, rec.node.NodeType),
			}
		}
		pvs = append([]models.ConfigPv(nil), rec.pvs...)
		return nil
	})
	return pvs, err
}
