package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// NodeRepository implements repositories.NodeRepository on Postgres
type NodeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *RepositoryConfig) repositories.NodeRepository {
	return &NodeRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const nodeColumns = "unique_id, parent_id, name, node_type, status, properties, created, last_modified, user_name"

func scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.UniqueID,
		&node.ParentID,
		&node.Name,
		&node.NodeType,
		&node.Status,
		&node.Properties,
		&node.Created,
		&node.LastModified,
		&node.UserName,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// GetNode retrieves a node by unique id
func (r *NodeRepository) GetNode(ctx context.Context, id string) (*models.Node, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE unique_id = $1`, nodeColumns, r.tables.Nodes)

	node, err := scanNode(exec.QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}
	return node, nil
}

// GetChildNodes lists the child nodes of a node in insertion order
func (r *NodeRepository) GetChildNodes(ctx context.Context, id string) ([]models.Node, error) {
	// resolve the parent first so an unknown id is NotFound, not an empty list
	if _, err := r.GetNode(ctx, id); err != nil {
		return nil, err
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_id = $1
		ORDER BY position ASC
	`, nodeColumns, r.tables.Nodes)

	rows, err := exec.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list child nodes: %w", err)
	}
	defer rows.Close()

	var children []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		children = append(children, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return children, nil
}

// GetParentNode retrieves the parent of a node
func (r *NodeRepository) GetParentNode(ctx context.Context, id string) (*models.Node, error) {
	node, err := r.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.ParentID == nil {
		return nil, fmt.Errorf("node %s has no parent: %w", id, domain.ErrNotFound)
	}
	return r.GetNode(ctx, *node.ParentID)
}

// GetRootNode retrieves the fixed-id root folder
func (r *NodeRepository) GetRootNode(ctx context.Context) (*models.Node, error) {
	return r.GetNode(ctx, models.RootUniqueID)
}

// CreateNode creates a node under the given parent
func (r *NodeRepository) CreateNode(ctx context.Context, parentID string, node *models.Node) (*models.Node, error) {
	parent, err := r.GetNode(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("parent %w", err)
	}
	if strings.TrimSpace(node.Name) == "" {
		return nil, &domain.ValidationError{Message: "node name must not be empty"}
	}
	if !models.CanContain(parent.NodeType, node.NodeType) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("a %s node cannot contain a %s node", parent.NodeType, node.NodeType),
		}
	}

	cp := node.Clone()
	if cp.UniqueID == "" {
		cp.UniqueID = uuid.NewString()
	}
	cp.ParentID = &parent.UniqueID
	now := time.Now().UTC()
	if cp.Created.IsZero() {
		cp.Created = now
	}
	cp.LastModified = now
	if cp.Properties == nil {
		cp.Properties = map[string]string{}
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		INSERT INTO %s (unique_id, parent_id, name, node_type, status, properties, created, last_modified, user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Nodes)

	_, err = exec.Exec(ctx, query,
		cp.UniqueID,
		cp.ParentID,
		cp.Name,
		cp.NodeType,
		cp.Status,
		cp.Properties,
		cp.Created,
		cp.LastModified,
		cp.UserName,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("a %s named %q already exists in this location", cp.NodeType, cp.Name),
				ResourceType: "node",
				ResourceID:   cp.UniqueID,
			}
		}
		if isPgForeignKeyError(err) {
			return nil, &domain.NotFoundError{
				Message: fmt.Sprintf("parent node %s not found", parentID),
			}
		}
		return nil, fmt.Errorf("create node: %w", err)
	}
	return cp, nil
}

// UpdateNode writes name, properties and snapshot status
func (r *NodeRepository) UpdateNode(ctx context.Context, node *models.Node, preserveTimestamp bool) (*models.Node, error) {
	current, err := r.GetNode(ctx, node.UniqueID)
	if err != nil {
		return nil, err
	}
	if node.NodeType != "" && node.NodeType != current.NodeType {
		return nil, &domain.ValidationError{Message: "node type is immutable"}
	}

	cp := current.Clone()
	if node.Name != "" {
		cp.Name = node.Name
	}
	if current.IsRoot() && cp.Name != current.Name {
		return nil, &domain.ValidationError{Message: "root folder cannot be renamed"}
	}
	if node.Properties != nil {
		cp.Properties = node.Properties
	}
	if cp.Properties == nil {
		cp.Properties = map[string]string{}
	}
	if node.Status != "" {
		cp.Status = node.Status
	}
	if node.UserName != "" {
		cp.UserName = node.UserName
	}
	if !preserveTimestamp {
		cp.LastModified = time.Now().UTC()
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, status = $2, properties = $3, last_modified = $4, user_name = $5
		WHERE unique_id = $6
	`, r.tables.Nodes)

	result, err := exec.Exec(ctx, query,
		cp.Name,
		cp.Status,
		cp.Properties,
		cp.LastModified,
		cp.UserName,
		cp.UniqueID,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("a %s named %q already exists in this location", cp.NodeType, cp.Name),
				ResourceType: "node",
				ResourceID:   cp.UniqueID,
			}
		}
		return nil, fmt.Errorf("update node: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("node %s: %w", cp.UniqueID, domain.ErrNotFound)
	}
	return cp, nil
}

// Reparent moves a single node under a new parent
func (r *NodeRepository) Reparent(ctx context.Context, id, newParentID string) error {
	node, err := r.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if node.IsRoot() {
		return &domain.ValidationError{Message: "root folder cannot be moved"}
	}
	if id == newParentID {
		return &domain.CycleError{Message: "cannot move a node into itself"}
	}
	target, err := r.GetNode(ctx, newParentID)
	if err != nil {
		return fmt.Errorf("target %w", err)
	}
	if !models.CanContain(target.NodeType, node.NodeType) {
		return &domain.ValidationError{
			Message: fmt.Sprintf("a %s node cannot contain a %s node", target.NodeType, node.NodeType),
		}
	}

	inSubtree, err := r.isInSubtree(ctx, newParentID, id)
	if err != nil {
		return err
	}
	if inSubtree {
		return &domain.CycleError{Message: "target lies inside the moved subtree"}
	}

	if node.ParentID != nil && *node.ParentID == newParentID {
		return nil
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`UPDATE %s SET parent_id = $1 WHERE unique_id = $2`, r.tables.Nodes)
	if _, err := exec.Exec(ctx, query, newParentID, id); err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a %s named %q already exists in the target folder", node.NodeType, node.Name),
				ResourceType: "node",
				ResourceID:   id,
			}
		}
		return fmt.Errorf("reparent node: %w", err)
	}
	return nil
}

// isInSubtree reports whether candidate is rootID itself or one of its
// descendants, using the target's ancestor chain.
func (r *NodeRepository) isInSubtree(ctx context.Context, candidate, rootID string) (bool, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		WITH RECURSIVE ancestors AS (
			SELECT unique_id, parent_id FROM %s WHERE unique_id = $1
			UNION ALL
			SELECT n.unique_id, n.parent_id
			FROM %s n JOIN ancestors a ON n.unique_id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE unique_id = $2)
	`, r.tables.Nodes, r.tables.Nodes)

	var exists bool
	if err := exec.QueryRow(ctx, query, candidate, rootID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check subtree containment: %w", err)
	}
	return exists, nil
}

// DeleteNode removes a node and its entire subtree. The parent-link cascade
// wipes descendants and payload rows in the same statement.
func (r *NodeRepository) DeleteNode(ctx context.Context, id string) error {
	if id == models.RootUniqueID {
		return &domain.ValidationError{Message: "root folder cannot be deleted"}
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`DELETE FROM %s WHERE unique_id = $1`, r.tables.Nodes)

	result, err := exec.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetFromPath resolves an absolute slash-separated path to 0, 1 or 2 nodes
func (r *NodeRepository) GetFromPath(ctx context.Context, path string) ([]models.Node, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, &domain.ValidationError{Message: "path must start with a forward slash"}
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		root, err := r.GetRootNode(ctx)
		if err != nil {
			return nil, err
		}
		return []models.Node{*root}, nil
	}
	segments := strings.Split(trimmed, "/")

	exec := GetExecutor(ctx, r.pool)
	parentID := models.RootUniqueID
	for _, seg := range segments[:len(segments)-1] {
		query := fmt.Sprintf(`
			SELECT unique_id FROM %s
			WHERE parent_id = $1 AND name = $2 AND node_type = $3
		`, r.tables.Nodes)
		var id string
		err := exec.QueryRow(ctx, query, parentID, seg, models.NodeTypeFolder).Scan(&id)
		if err != nil {
			if isPgNoRowsError(err) {
				return nil, nil // 0 matches
			}
			return nil, fmt.Errorf("resolve path segment %q: %w", seg, err)
		}
		parentID = id
	}

	terminal := segments[len(segments)-1]
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_id = $1 AND name = $2 AND node_type != $3
		ORDER BY node_type DESC
	`, nodeColumns, r.tables.Nodes)

	rows, err := exec.Query(ctx, query, parentID, terminal, models.NodeTypeSnapshot)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", path, err)
	}
	defer rows.Close()

	var result []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		result = append(result, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return result, nil
}

// GetFullPath computes the absolute path of a node using a recursive CTE,
// omitting the root's own name
func (r *NodeRepository) GetFullPath(ctx context.Context, id string) (string, error) {
	if id == models.RootUniqueID {
		return "/", nil
	}

	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		WITH RECURSIVE node_path AS (
			SELECT unique_id, name, parent_id, name::text AS path
			FROM %s WHERE unique_id = $1
			UNION ALL
			SELECT n.unique_id, n.name, n.parent_id, n.name || '/' || np.path
			FROM %s n JOIN node_path np ON n.unique_id = np.parent_id
			WHERE n.parent_id IS NOT NULL
		)
		SELECT '/' || path FROM node_path WHERE parent_id = $2
	`, r.tables.Nodes, r.tables.Nodes)

	var path string
	err := exec.QueryRow(ctx, query, id, models.RootUniqueID).Scan(&path)
	if err != nil {
		if isPgNoRowsError(err) {
			return "", fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get full path: %w", err)
	}
	return path, nil
}
