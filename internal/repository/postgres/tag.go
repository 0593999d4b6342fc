package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// TagRepository implements repositories.TagRepository on Postgres
type TagRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewTagRepository creates a new tag repository
func NewTagRepository(config *RepositoryConfig) repositories.TagRepository {
	return &TagRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// AddTag appends a tag to a snapshot
func (r *TagRepository) AddTag(ctx context.Context, tag *models.Tag) error {
	exec := GetExecutor(ctx, r.pool)

	nodeQuery := fmt.Sprintf(`SELECT node_type FROM %s WHERE unique_id = $1`, r.tables.Nodes)
	var nodeType models.NodeType
	if err := exec.QueryRow(ctx, nodeQuery, tag.SnapshotID).Scan(&nodeType); err != nil {
		if isPgNoRowsError(err) {
			return fmt.Errorf("snapshot %s: %w", tag.SnapshotID, domain.ErrNotFound)
		}
		return fmt.Errorf("get snapshot node: %w", err)
	}
	if nodeType != models.NodeTypeSnapshot {
		return &domain.ValidationError{
			Message: fmt.Sprintf("node %s is a %s, not a snapshot", tag.SnapshotID, nodeType),
		}
	}

	if tag.Created.IsZero() {
		tag.Created = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (snapshot_id, name, comment, user_name, created)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Tags)

	_, err := exec.Exec(ctx, query,
		tag.SnapshotID,
		tag.Name,
		tag.Comment,
		tag.UserName,
		tag.Created,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("tag %q already exists on this snapshot", tag.Name),
				ResourceType: "tag",
				ResourceID:   tag.SnapshotID,
			}
		}
		if isPgForeignKeyError(err) {
			return &domain.NotFoundError{
				Message: fmt.Sprintf("snapshot %s not found", tag.SnapshotID),
			}
		}
		return fmt.Errorf("add tag: %w", err)
	}
	return nil
}

// RemoveTag removes a tag by (snapshot, name)
func (r *TagRepository) RemoveTag(ctx context.Context, snapshotID, name string) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`DELETE FROM %s WHERE snapshot_id = $1 AND name = $2`, r.tables.Tags)

	result, err := exec.Exec(ctx, query, snapshotID, name)
	if err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %q on snapshot %s: %w", name, snapshotID, domain.ErrNotFound)
	}
	return nil
}

// GetTags lists a snapshot's tags ordered by created time descending
func (r *TagRepository) GetTags(ctx context.Context, snapshotID string) ([]models.Tag, error) {
	exec := GetExecutor(ctx, r.pool)

	nodeQuery := fmt.Sprintf(`SELECT node_type FROM %s WHERE unique_id = $1`, r.tables.Nodes)
	var nodeType models.NodeType
	if err := exec.QueryRow(ctx, nodeQuery, snapshotID).Scan(&nodeType); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get snapshot node: %w", err)
	}
	if nodeType != models.NodeTypeSnapshot {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("node %s is a %s, not a snapshot", snapshotID, nodeType),
		}
	}

	query := fmt.Sprintf(`
		SELECT snapshot_id, name, comment, user_name, created
		FROM %s
		WHERE snapshot_id = $1
		ORDER BY created DESC, name ASC
	`, r.tables.Tags)

	return r.queryTags(ctx, query, snapshotID)
}

// GetAllTags lists every tag in the store ordered by created time descending
func (r *TagRepository) GetAllTags(ctx context.Context) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT snapshot_id, name, comment, user_name, created
		FROM %s
		ORDER BY created DESC, name ASC
	`, r.tables.Tags)

	return r.queryTags(ctx, query)
}

func (r *TagRepository) queryTags(ctx context.Context, query string, args ...interface{}) ([]models.Tag, error) {
	exec := GetExecutor(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.SnapshotID, &tag.Name, &tag.Comment, &tag.UserName, &tag.Created); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}
