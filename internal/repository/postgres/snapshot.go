package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// SnapshotRepository implements repositories.SnapshotRepository on Postgres
type SnapshotRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(config *RepositoryConfig) repositories.SnapshotRepository {
	return &SnapshotRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *SnapshotRepository) requireSnapshot(ctx context.Context, snapshotID string) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT node_type FROM %s WHERE unique_id = $1`, r.tables.Nodes)

	var nodeType models.NodeType
	if err := exec.QueryRow(ctx, query, snapshotID).Scan(&nodeType); err != nil {
		if isPgNoRowsError(err) {
			return fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
		}
		return fmt.Errorf("get snapshot node: %w", err)
	}
	if nodeType != models.NodeTypeSnapshot {
		return &domain.ValidationError{
			Message: fmt.Sprintf("node %s is a %s, not a snapshot", snapshotID, nodeType),
		}
	}
	return nil
}

// SetSnapshotItems overwrites the item list of a snapshot
func (r *SnapshotRepository) SetSnapshotItems(ctx context.Context, snapshotID string, items []models.SnapshotItem) error {
	if err := r.requireSnapshot(ctx, snapshotID); err != nil {
		return err
	}

	exec := GetExecutor(ctx, r.pool)
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE snapshot_id = $1`, r.tables.SnapshotItems)
	if _, err := exec.Exec(ctx, deleteQuery, snapshotID); err != nil {
		return fmt.Errorf("clear snapshot items: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (snapshot_id, config_pv_id, value, readback_value, time, severity, status, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.SnapshotItems)

	for i, item := range items {
		_, err := exec.Exec(ctx, insertQuery,
			snapshotID,
			item.ConfigPvID,
			item.Value,
			item.ReadbackValue,
			item.Time,
			item.Severity,
			item.Status,
			i,
		)
		if err != nil {
			if isPgDuplicateError(err) {
				return &domain.ConflictError{
					Message:      "snapshot item references the same pv more than once",
					ResourceType: "snapshot item",
					ResourceID:   item.ConfigPvID,
				}
			}
			if isPgForeignKeyError(err) {
				return &domain.NotFoundError{
					Message: fmt.Sprintf("snapshot %s or pv %s not found", snapshotID, item.ConfigPvID),
				}
			}
			return fmt.Errorf("insert snapshot item: %w", err)
		}
	}
	return nil
}

// GetSnapshotItems retrieves the item list of a snapshot
func (r *SnapshotRepository) GetSnapshotItems(ctx context.Context, snapshotID string) ([]models.SnapshotItem, error) {
	if err := r.requireSnapshot(ctx, snapshotID); err != nil {
		return nil, err
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT config_pv_id, value, readback_value, time, severity, status
		FROM %s
		WHERE snapshot_id = $1
		ORDER BY position ASC
	`, r.tables.SnapshotItems)

	rows, err := exec.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot items: %w", err)
	}
	defer rows.Close()

	var items []models.SnapshotItem
	for rows.Next() {
		var item models.SnapshotItem
		err := rows.Scan(
			&item.ConfigPvID,
			&item.Value,
			&item.ReadbackValue,
			&item.Time,
			&item.Severity,
			&item.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot items: %w", err)
	}
	return items, nil
}

// GetAllSnapshotNodes lists every SNAPSHOT node in the tree
func (r *SnapshotRepository) GetAllSnapshotNodes(ctx context.Context) ([]models.Node, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE node_type = $1
		ORDER BY created ASC, unique_id ASC
	`, nodeColumns, r.tables.Nodes)

	rows, err := exec.Query(ctx, query, models.NodeTypeSnapshot)
	if err != nil {
		return nil, fmt.Errorf("list snapshot nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}
