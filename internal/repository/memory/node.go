package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// NodeRepository implements repositories.NodeRepository on the in-memory
// arena.
type NodeRepository struct {
	store *Store
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(store *Store) repositories.NodeRepository {
	return &NodeRepository{store: store}
}

// GetNode retrieves a node by unique id
func (r *NodeRepository) GetNode(ctx context.Context, id string) (*models.Node, error) {
	var node *models.Node
	err := r.store.read(ctx, func(v *view) error {
		rec := v.get(id)
		if rec == nil {
			return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		node = rec.node.Clone()
		return nil
	})
	return node, err
}

// GetChildNodes lists the child nodes of a node in insertion order
func (r *NodeRepository) GetChildNodes(ctx context.Context, id string) ([]models.Node, error) {
	var children []models.Node
	err := r.store.read(ctx, func(v *view) error {
		rec := v.get(id)
		if rec == nil {
			return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		children = make([]models.Node, 0, len(rec.children))
		for _, cid := range rec.children {
			child := v.get(cid)
			if child == nil {
				return fmt.Errorf("child %s of node %s: %w", cid, id, domain.ErrNotFound)
			}
			children = append(children, *child.node.Clone())
		}
		return nil
	})
	return children, err
}

// GetParentNode retrieves the parent of a node
func (r *NodeRepository) GetParentNode(ctx context.Context, id string) (*models.Node, error) {
	var parent *models.Node
	err := r.store.read(ctx, func(v *view) error {
		rec := v.get(id)
		if rec == nil {
			return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		if rec.node.ParentID == nil {
			return fmt.Errorf("node %s has no parent: %w", id, domain.ErrNotFound)
		}
		p := v.get(*rec.node.ParentID)
		if p == nil {
			return fmt.Errorf("parent of node %s: %w", id, domain.ErrNotFound)
		}
		parent = p.node.Clone()
		return nil
	})
	return parent, err
}

// GetRootNode retrieves the fixed-id root folder
func (r *NodeRepository) GetRootNode(ctx context.Context) (*models.Node, error) {
	return r.GetNode(ctx, models.RootUniqueID)
}

// CreateNode creates a node under the given parent
func (r *NodeRepository) CreateNode(ctx context.Context, parentID string, node *models.Node) (*models.Node, error) {
	var created *models.Node
	err := r.store.write(ctx, func(v *view) error {
		parent := v.get(parentID)
		if parent == nil {
			return fmt.Errorf("parent node %s: %w", parentID, domain.ErrNotFound)
		}
		if strings.TrimSpace(node.Name) == "" {
			return &domain.ValidationError{Message: "node name must not be empty"}
		}
		if !models.CanContain(parent.node.NodeType, node.NodeType) {
			return &domain.ValidationError{
				Message: fmt.Sprintf("a %s node cannot contain a %s node", parent.node.NodeType, node.NodeType),
			}
		}
		for _, cid := range parent.children {
			child := v.get(cid)
			if child != nil && child.node.NodeType == node.NodeType && child.node.Name == node.Name {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("a %s named %q already exists in this location", node.NodeType, node.Name),
					ResourceType: "node",
					ResourceID:   cid,
				}
			}
		}

		cp := node.Clone()
		if cp.UniqueID == "" {
			cp.UniqueID = uuid.NewString()
		} else if v.get(cp.UniqueID) != nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("node id %s already exists", cp.UniqueID),
				ResourceType: "node",
				ResourceID:   cp.UniqueID,
			}
		}
		pid := parentID
		cp.ParentID = &pid
		now := v.now
		if cp.Created.IsZero() {
			cp.Created = now
		}
		cp.LastModified = now

		v.put(cp.UniqueID, &record{node: cp})
		pw := v.forWrite(parentID)
		pw.children = append(pw.children, cp.UniqueID)

		created = cp.Clone()
		return nil
	})
	return created, err
}

// UpdateNode writes name, properties and snapshot status
func (r *NodeRepository) UpdateNode(ctx context.Context, node *models.Node, preserveTimestamp bool) (*models.Node, error) {
	var updated *models.Node
	err := r.store.write(ctx, func(v *view) error {
		rec := v.forWrite(node.UniqueID)
		if rec == nil {
			return fmt.Errorf("node %s: %w", node.UniqueID, domain.ErrNotFound)
		}
		if node.NodeType != "" && node.NodeType != rec.node.NodeType {
			return &domain.ValidationError{Message: "node type is immutable"}
		}
		newName := rec.node.Name
		if node.Name != "" {
			newName = node.Name
		}
		if rec.node.IsRoot() && newName != rec.node.Name {
			return &domain.ValidationError{Message: "root folder cannot be renamed"}
		}
		if newName != rec.node.Name && rec.node.ParentID != nil {
			parent := v.get(*rec.node.ParentID)
			if parent == nil {
				return fmt.Errorf("parent of node %s: %w", node.UniqueID, domain.ErrNotFound)
			}
			for _, cid := range parent.children {
				if cid == node.UniqueID {
					continue
				}
				sibling := v.get(cid)
				if sibling != nil && sibling.node.NodeType == rec.node.NodeType && sibling.node.Name == newName {
					return &domain.ConflictError{
						Message:      fmt.Sprintf("a %s named %q already exists in this location", rec.node.NodeType, newName),
						ResourceType: "node",
						ResourceID:   cid,
					}
				}
			}
		}

		cp := rec.node.Clone()
		cp.Name = newName
		if node.Properties != nil {
			props := make(map[string]string, len(node.Properties))
			for k, val := range node.Properties {
				props[k] = val
			}
			cp.Properties = props
		}
		if node.Status != "" {
			cp.Status = node.Status
		}
		if node.UserName != "" {
			cp.UserName = node.UserName
		}
		if !preserveTimestamp {
			cp.LastModified = v.now
		}
		rec.node = cp
		updated = cp.Clone()
		return nil
	})
	return updated, err
}

// Reparent moves a single node under a new parent
func (r *NodeRepository) Reparent(ctx context.Context, id, newParentID string) error {
	return r.store.write(ctx, func(v *view) error {
		rec := v.get(id)
		if rec == nil {
			return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		if rec.node.IsRoot() {
			return &domain.ValidationError{Message: "root folder cannot be moved"}
		}
		target := v.get(newParentID)
		if target == nil {
			return fmt.Errorf("target node %s: %w", newParentID, domain.ErrNotFound)
		}
		if id == newParentID {
			return &domain.CycleError{Message: "cannot move a node into itself"}
		}
		// walk the target's ancestor chain; finding the moved node means the
		// target lies inside the moved subtree
		for cur := target; cur.node.ParentID != nil; {
			if *cur.node.ParentID == id {
				return &domain.CycleError{Message: "target lies inside the moved subtree"}
			}
			cur = v.get(*cur.node.ParentID)
			if cur == nil {
				break
			}
		}
		if !models.CanContain(target.node.NodeType, rec.node.NodeType) {
			return &domain.ValidationError{
				Message: fmt.Sprintf("a %s node cannot contain a %s node", target.node.NodeType, rec.node.NodeType),
			}
		}
		oldParentID := *rec.node.ParentID
		if oldParentID == newParentID {
			return nil
		}
		for _, cid := range target.children {
			sibling := v.get(cid)
			if sibling != nil && sibling.node.NodeType == rec.node.NodeType && sibling.node.Name == rec.node.Name {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("a %s named %q already exists in the target folder", rec.node.NodeType, rec.node.Name),
					ResourceType: "node",
					ResourceID:   cid,
				}
			}
		}

		oldParent := v.forWrite(oldParentID)
		if oldParent == nil {
			return fmt.Errorf("parent of node %s: %w", id, domain.ErrNotFound)
		}
		oldParent.children = removeID(oldParent.children, id)

		tw := v.forWrite(newParentID)
		tw.children = append(tw.children, id)

		moved := v.forWrite(id)
		cp := moved.node.Clone()
		npid := newParentID
		cp.ParentID = &npid
		moved.node = cp
		return nil
	})
}

// DeleteNode removes a node and its entire subtree
func (r *NodeRepository) DeleteNode(ctx context.Context, id string) error {
	return r.store.write(ctx, func(v *view) error {
		rec := v.get(id)
		if rec == nil {
			return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		if rec.node.IsRoot() {
			return &domain.ValidationError{Message: "root folder cannot be deleted"}
		}
		parent := v.forWrite(*rec.node.ParentID)
		if parent == nil {
			return fmt.Errorf("parent of node %s: %w", id, domain.ErrNotFound)
		}
		parent.children = removeID(parent.children, id)

		stack := []string{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cr := v.get(cur)
			if cr == nil {
				continue
			}
			stack = append(stack, cr.children...)
			v.delete(cur)
		}
		return nil
	})
}

// GetFromPath resolves an absolute slash-separated path to 0, 1 or 2 nodes
func (r *NodeRepository) GetFromPath(ctx context.Context, path string) ([]models.Node, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, &domain.ValidationError{Message: "path must start with a forward slash"}
	}
	var result []models.Node
	err := r.store.read(ctx, func(v *view) error {
		root := v.get(models.RootUniqueID)
		if root == nil {
			return fmt.Errorf("root node: %w", domain.ErrNotFound)
		}
		trimmed := strings.Trim(path, "/")
		if trimmed == "" {
			result = []models.Node{*root.node.Clone()}
			return nil
		}
		segments := strings.Split(trimmed, "/")

		cur := root
		for _, seg := range segments[:len(segments)-1] {
			var next *record
			for _, cid := range cur.children {
				child := v.get(cid)
				if child != nil && child.node.NodeType == models.NodeTypeFolder && child.node.Name == seg {
					next = child
					break
				}
			}
			if next == nil {
				return nil // 0 matches
			}
			cur = next
		}

		terminal := segments[len(segments)-1]
		for _, cid := range cur.children {
			child := v.get(cid)
			if child != nil && child.node.Name == terminal && child.node.NodeType != models.NodeTypeSnapshot {
				result = append(result, *child.node.Clone())
			}
		}
		// folder before configuration for a deterministic order
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].NodeType == models.NodeTypeFolder && result[j].NodeType != models.NodeTypeFolder
		})
		return nil
	})
	return result, err
}

// GetFullPath computes the absolute path of a node, omitting the root's name
func (r *NodeRepository) GetFullPath(ctx context.Context, id string) (string, error) {
	var path string
	err := r.store.read(ctx, func(v *view) error {
		rec := v.get(id)
		if rec == nil {
			return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		if rec.node.IsRoot() {
			path = "/"
			return nil
		}
		var names []string
		for cur := rec; !cur.node.IsRoot(); {
			names = append(names, cur.node.Name)
			if cur.node.ParentID == nil {
				return fmt.Errorf("node %s is disconnected from the root: %w", id, domain.ErrNotFound)
			}
			cur = v.get(*cur.node.ParentID)
			if cur == nil {
				return fmt.Errorf("ancestor of node %s: %w", id, domain.ErrNotFound)
			}
		}
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
		path = "/" + strings.Join(names, "/")
		return nil
	})
	return path, err
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
