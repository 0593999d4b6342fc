package memory

import (
	"context"
	"fmt"
	"sort"

	"saveandrestore/internal/domain"
	"saveandrestore/internal/domain/models"
	"saveandrestore/internal/domain/repositories"
)

// TagRepository implements repositories.TagRepository on the in-memory arena.
type TagRepository struct {
	store *Store
}

// NewTagRepository creates a new tag repository
func NewTagRepository(store *Store) repositories.TagRepository {
	return &TagRepository{store: store}
}

// AddTag appends a tag to a snapshot
func (r *TagRepository) AddTag(ctx context.Context, tag *models.Tag) error {
	return r.store.write(ctx, func(v *view) error {
		rec := v.forWrite(tag.SnapshotID)
		if rec == nil {
			return fmt.Errorf("snapshot %s: %w", tag.SnapshotID, domain.ErrNotFound)
		}
		if rec.node.NodeType != models.NodeTypeSnapshot {
			return &domain.ValidationError{
				Message: fmt.Sprintf("node %s is a %s, not a snapshot", tag.SnapshotID, rec.node.NodeType),
			}
		}
		for _, existing := range rec.tags {
			if existing.Name == tag.Name {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("tag %q already exists on this snapshot", tag.Name),
					ResourceType: "tag",
					ResourceID:   tag.SnapshotID,
				}
			}
		}
		if tag.Created.IsZero() {
			tag.Created = v.now
		}
		rec.tags = append(rec.tags, *tag)
		return nil
	})
}

// RemoveTag removes a tag by (snapshot, name)
func (r *TagRepository) RemoveTag(ctx context.Context, snapshotID, name string) error {
	return r.store.write(ctx, func(v *view) error {
		rec := v.forWrite(snapshotID)
		if rec == nil {
			return fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
		}
		for i, existing := range rec.tags {
			if existing.Name == name {
				rec.tags = append(rec.tags[:i], rec.tags[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("tag %q on snapshot %s: %w", name, snapshotID, domain.ErrNotFound)
	})
}

// GetTags lists a snapshot's tags ordered by created time descending
func (r *TagRepository) GetTags(ctx context.Context, snapshotID string) ([]models.Tag, error) {
	var tags []models.Tag
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
		tags = sortTagsByRecency(append([]models.Tag(nil), rec.tags...))
		return nil
	})
	return tags, err
}

// GetAllTags lists every tag in the store ordered by created time descending
func (r *TagRepository) GetAllTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.store.read(ctx, func(v *view) error {
		for _, id := range v.ids() {
			rec := v.get(id)
			if rec != nil {
				tags = append(tags, rec.tags...)
			}
		}
		tags = sortTagsByRecency(tags)
		return nil
	})
	return tags, err
}

// sortTagsByRecency orders most recent first, name as tie-breaker.
func sortTagsByRecency(tags []models.Tag) []models.Tag {
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Created.Equal(tags[j].Created) {
			return tags[i].Name < tags[j].Name
		}
		return tags[i].Created.After(tags[j].Created)
	})
	return tags
}
