package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// ConfigurationRepository implements repositories.ConfigurationRepository on
// Postgres
type ConfigurationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewConfigurationRepository creates a new configuration repository
func NewConfigurationRepository(config *RepositoryConfig) repositories.ConfigurationRepository {
	return &ConfigurationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *ConfigurationRepository) requireConfiguration(ctx context.Context, configID string) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT node_type FROM %s WHERE unique_id = $1`, r.tables.Nodes)

	var nodeType models.NodeType
	if err := exec.QueryRow(ctx, query, configID).Scan(&nodeType); err != nil {
		if isPgNoRowsError(err) {
			return fmt.Errorf("configuration %s: %w", configID, domain.ErrNotFound)
		}
		return fmt.Errorf("get configuration node: %w", err)
	}
	if nodeType != models.NodeTypeConfiguration {
		return &domain.ValidationError{
			Message: fmt.Sprintf("node %s is a %s, not a configuration", configID, nodeType),
		}
	}
	return nil
}

// SetConfigPvs overwrites the ConfigPv list of a configuration
func (r *ConfigurationRepository) SetConfigPvs(ctx context.Context, configID string, pvs []models.ConfigPv) error {
	if err := r.requireConfiguration(ctx, configID); err != nil {
		return err
	}

	exec := GetExecutor(ctx, r.pool)
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE config_id = $1`, r.tables.ConfigPvs)
	if _, err := exec.Exec(ctx, deleteQuery, configID); err != nil {
		return fmt.Errorf("clear config pvs: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (unique_id, config_id, pv_name, readback_pv_name, read_only, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.ConfigPvs)

	for i, pv := range pvs {
		_, err := exec.Exec(ctx, insertQuery,
			pv.UniqueID,
			configID,
			pv.PvName,
			pv.ReadbackPvName,
			pv.ReadOnly,
			i,
		)
		if err != nil {
			if isPgDuplicateError(err) {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("pv %q appears more than once", pv.PvName),
					ResourceType: "config pv",
					ResourceID:   pv.UniqueID,
				}
			}
			if isPgForeignKeyError(err) {
				return &domain.NotFoundError{
					Message: fmt.Sprintf("configuration %s not found", configID),
				}
			}
			return fmt.Errorf("insert config pv: %w", err)
		}
	}
	return nil
}

// GetConfigPvs retrieves the ordered ConfigPv list of a configuration
func (r *ConfigurationRepository) GetConfigPvs(ctx context.Context, configID string) ([]models.ConfigPv, error) {
	if err := r.requireConfiguration(ctx, configID); err != nil {
		return nil, err
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT unique_id, pv_name, readback_pv_name, read_only
		FROM %s
		WHERE config_id = $1
		ORDER BY position ASC
	`, r.tables.ConfigPvs)

	rows, err := exec.Query(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("list config pvs: %w", err)
	}
	defer rows.Close()

	var pvs []models.ConfigPv
	for rows.Next() {
		var pv models.ConfigPv
		if err := rows.Scan(&pv.UniqueID, &pv.PvName, &pv.ReadbackPvName, &pv.ReadOnly); err != nil {
			return nil, fmt.Errorf("scan config pv: %w", err)
		}
		pvs = append(pvs, pv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config pvs: %w", err)
	}
	return pvs, nil
}
