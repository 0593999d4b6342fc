package memory

import (
	"context"
	"fmt"
	"sort"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// SnapshotRepository implements repositories.SnapshotRepository on the
// in-memory arena.
type SnapshotRepository struct {
	store *Store
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(store *Store) repositories.SnapshotRepository {
	return &SnapshotRepository{store: store}
}

// SetSnapshotItems overwrites the item list of a snapshot
func (r *SnapshotRepository) SetSnapshotItems(ctx context.Context, snapshotID string, items []models.SnapshotItem) error {
	return r.store.write(ctx, func(v *view) error {
		rec := v.forWrite(snapshotID)
		if rec == nil {
			return fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
		}
		if rec.node.NodeType != models.NodeTypeSnapshot {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, not a snapshot", snapshotID, rec.node.NodeType),
			}
		}
		rec.items = append([]models.SnapshotItem(nil), items...)
		return nil
	})
}

// GetSnapshotItems retrieves the item list of a snapshot
func (r *SnapshotRepository) GetSnapshotItems(ctx context.Context, snapshotID string) ([]models.SnapshotItem, error) {
	var items []models.SnapshotItem
	err := r.store.read(ctx, func(v *view) error {
		rec := v.get(snapshotID)
		if rec == nil {
			return fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
		}
		if rec.node.NodeType != models.NodeTypeSnapshot {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, not a snapshot", snapshotID, rec.node.NodeType),
			}
		}
		items = append([]models.SnapshotItem(nil), rec.items...)
		return nil
	})
	return items, err
}

// GetAllSnapshotNodes lists every SNAPSHOT node in the tree
func (r *SnapshotRepository) GetAllSnapshotNodes(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	err := r.store.read(ctx, func(v *view) error {
		for _, id := range v.ids() {
			rec := v.get(id)
			if rec != nil && rec.node.NodeType == models.NodeTypeSnapshot {
				nodes = append(nodes, *rec.node.Clone())
			}
		}
		sort.Slice(nodes, func(i, j int) bool {
			if nodes[i].Created.Equal(nodes[j].Created) {
				return nodes[i].UniqueID < nodes[j].UniqueID
			}
			return nodes[i].Created.Before(nodes[j].Created)
		})
		return nil
	})
	return nodes, err
}
