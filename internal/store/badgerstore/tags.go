package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/store"
)

// CreateTag persists a new tag.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if err := s.tags.Create(ctx, t.ID, t); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	s.emit(store.OpCreate, []string{t.ID}, store.TableTags)
	return nil
}

// GetTag retrieves a tag by ID.
func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	return s.tags.Get(ctx, id)
}

// UpdateTag replaces a stored tag.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	if err := s.tags.Update(ctx, t.ID, t); err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	s.emit(store.OpUpdate, []string{t.ID}, store.TableTags)
	return nil
}

// DeleteTag removes a tag, its node associations and every relation touching it.
// Orphaned associations are removed even if the tag row itself is already gone.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return nil
	}

	var touched []store.Table
	removed := []string{id}

	err := s.db.Update(func(txn *badger.Txn) error {
		ntIDs, err := s.nodeTags.idsByIndex(ctx, txn, idxTag, id)
		if err != nil {
			return err
		}
		for _, ntID := range ntIDs {
			if _, err := s.nodeTags.delete(txn, ntID); err != nil {
				return err
			}
		}
		if len(ntIDs) > 0 {
			touched = append(touched, store.TableNodeTags)
			removed = append(removed, ntIDs...)
		}

		relIDs, err := s.relationIDsForTag(ctx, txn, id)
		if err != nil {
			return err
		}
		for _, relID := range relIDs {
			if _, err := s.relations.delete(txn, relID); err != nil {
				return err
			}
		}
		if len(relIDs) > 0 {
			touched = append(touched, store.TableTagRelations)
			removed = append(removed, relIDs...)
		}

		existed, err := s.tags.delete(txn, id)
		if err != nil {
			return err
		}
		if existed {
			touched = append(touched, store.TableTags)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	if len(touched) > 0 {
		s.emit(store.OpDelete, removed, touched...)
		s.logger.Debug("tag deleted", "tag_id", id, "cascaded", len(removed)-1)
	}
	return nil
}

// ListTagsByWorkspace returns the workspace's tags ordered by creation.
func (s *Store) ListTagsByWorkspace(ctx context.Context, workspace string) ([]domain.Tag, error) {
	if workspace == "" {
		return []domain.Tag{}, nil
	}
	tags, err := s.tags.ListByIndex(ctx, idxWorkspace, workspace)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	domain.SortTags(tags)
	return tags, nil
}

// ListTagsByCategory returns the workspace's tags of one category.
func (s *Store) ListTagsByCategory(ctx context.Context, workspace string, category domain.Category) ([]domain.Tag, error) {
	if workspace == "" {
		return []domain.Tag{}, nil
	}
	tags, err := s.tags.ListByIndex(ctx, idxCategory, compound(workspace, string(category)))
	if err != nil {
		return nil, fmt.Errorf("list tags by category: %w", err)
	}
	domain.SortTags(tags)
	return tags, nil
}

// FindTagByName returns the oldest tag in the workspace whose name matches,
// ignoring case.
func (s *Store) FindTagByName(ctx context.Context, workspace, name string) (*domain.Tag, error) {
	if workspace == "" || strings.TrimSpace(name) == "" {
		return nil, store.ErrNotFound
	}
	tags, err := s.tags.ListByIndex(ctx, idxName, compound(workspace, domain.FoldName(name)))
	if err != nil {
		return nil, fmt.Errorf("find tag by name: %w", err)
	}
	if len(tags) == 0 {
		return nil, store.ErrNotFound
	}
	domain.SortTags(tags)
	return &tags[0], nil
}

// relationIDsForTag returns the ids of relations with tagID at either end, each once.
func (s *Store) relationIDsForTag(ctx context.Context, txn *badger.Txn, tagID string) ([]string, error) {
	asSource, err := s.relations.idsByIndex(ctx, txn, idxSource, tagID)
	if err != nil {
		return nil, err
	}
	asTarget, err := s.relations.idsByIndex(ctx, txn, idxTarget, tagID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(asSource)+len(asTarget))
	ids := make([]string, 0, len(asSource)+len(asTarget))
	for _, id := range append(asSource, asTarget...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
