package badgerstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/store"
)

// CreateTagRelation inserts the relation or, if one already links the same
// source to the same target, overwrites its type and weight (and description
// when given).
func (s *Store) CreateTagRelation(ctx context.Context, rel *domain.TagRelation) (*domain.TagRelation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		result *domain.TagRelation
		op     store.Op
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.relations.getByIndex(txn, idxPair, compound(rel.SourceTagID, rel.TargetTagID))
		switch {
		case err == nil:
			existing.RelationType = rel.RelationType
			existing.Weight = rel.Weight
			if rel.Description != "" {
				existing.Description = rel.Description
			}
			result, op = existing, store.OpUpdate
			return s.relations.update(txn, existing.ID, existing)
		case isNotFound(err):
			result, op = rel, store.OpCreate
			return s.relations.create(txn, rel.ID, rel)
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create tag relation: %w", err)
	}

	s.emit(op, []string{result.ID}, store.TableTagRelations)
	return result, nil
}

// GetTagRelation retrieves a relation by ID.
func (s *Store) GetTagRelation(ctx context.Context, id string) (*domain.TagRelation, error) {
	return s.relations.Get(ctx, id)
}

// GetTagRelationBetween retrieves the relation from source to target.
func (s *Store) GetTagRelationBetween(ctx context.Context, sourceTagID, targetTagID string) (*domain.TagRelation, error) {
	if sourceTagID == "" || targetTagID == "" {
		return nil, store.ErrNotFound
	}
	return s.relations.GetByIndex(ctx, idxPair, compound(sourceTagID, targetTagID))
}

// UpdateTagRelation replaces a stored relation.
func (s *Store) UpdateTagRelation(ctx context.Context, rel *domain.TagRelation) error {
	if err := s.relations.Update(ctx, rel.ID, rel); err != nil {
		return fmt.Errorf("update tag relation: %w", err)
	}
	s.emit(store.OpUpdate, []string{rel.ID}, store.TableTagRelations)
	return nil
}

// DeleteTagRelation removes a relation by ID. Missing rows are not an error.
func (s *Store) DeleteTagRelation(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var existed bool
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		existed, err = s.relations.delete(txn, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete tag relation: %w", err)
	}
	if existed {
		s.emit(store.OpDelete, []string{id}, store.TableTagRelations)
	}
	return nil
}

// DeleteTagRelationBetween removes the relation from source to target, if any.
func (s *Store) DeleteTagRelationBetween(ctx context.Context, sourceTagID, targetTagID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var removedID string
	err := s.db.Update(func(txn *badger.Txn) error {
		rel, err := s.relations.getByIndex(txn, idxPair, compound(sourceTagID, targetTagID))
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		removedID = rel.ID
		_, err = s.relations.delete(txn, rel.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete tag relation between: %w", err)
	}
	if removedID != "" {
		s.emit(store.OpDelete, []string{removedID}, store.TableTagRelations)
	}
	return nil
}

// ListTagRelationsByWorkspace returns the workspace's relations ordered by creation.
func (s *Store) ListTagRelationsByWorkspace(ctx context.Context, workspace string) ([]domain.TagRelation, error) {
	if workspace == "" {
		return []domain.TagRelation{}, nil
	}
	rels, err := s.relations.ListByIndex(ctx, idxWorkspace, workspace)
	if err != nil {
		return nil, fmt.Errorf("list tag relations: %w", err)
	}
	domain.SortTagRelations(rels)
	return rels, nil
}

// ListTagRelationsForTag returns relations with the tag as source or target, each once.
func (s *Store) ListTagRelationsForTag(ctx context.Context, tagID string) ([]domain.TagRelation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tagID == "" {
		return []domain.TagRelation{}, nil
	}

	rels := []domain.TagRelation{}
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := s.relationIDsForTag(ctx, txn, tagID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			rel, err := s.relations.get(txn, id)
			if isNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			rels = append(rels, *rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tag relations for tag: %w", err)
	}
	domain.SortTagRelations(rels)
	return rels, nil
}
