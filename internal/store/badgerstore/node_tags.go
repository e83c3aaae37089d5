package badgerstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/store"
)

// CreateNodeTag inserts the association or, if the (node, tag) pair is
// already stored, bumps its mentions and replaces positions when given.
func (s *Store) CreateNodeTag(ctx context.Context, nt *domain.NodeTag) (*domain.NodeTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		result *domain.NodeTag
		op     store.Op
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		result, op, err = s.upsertNodeTag(txn, nt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create node tag: %w", err)
	}

	s.emit(op, []string{result.ID}, store.TableNodeTags)
	return result, nil
}

func (s *Store) upsertNodeTag(txn *badger.Txn, nt *domain.NodeTag) (*domain.NodeTag, store.Op, error) {
	existing, err := s.nodeTags.getByIndex(txn, idxPair, compound(nt.NodeID, nt.TagID))
	switch {
	case err == nil:
		existing.Mentions++
		if len(nt.Positions) > 0 {
			existing.Positions = slices.Clone(nt.Positions)
		}
		if err := s.nodeTags.update(txn, existing.ID, existing); err != nil {
			return nil, "", err
		}
		return existing, store.OpUpdate, nil
	case isNotFound(err):
		if err := s.nodeTags.create(txn, nt.ID, nt); err != nil {
			return nil, "", err
		}
		return nt, store.OpCreate, nil
	default:
		return nil, "", err
	}
}

// GetNodeTag retrieves an association by ID.
func (s *Store) GetNodeTag(ctx context.Context, id string) (*domain.NodeTag, error) {
	return s.nodeTags.Get(ctx, id)
}

// GetNodeTagByPair retrieves the association between a node and a tag.
func (s *Store) GetNodeTagByPair(ctx context.Context, nodeID, tagID string) (*domain.NodeTag, error) {
	if nodeID == "" || tagID == "" {
		return nil, store.ErrNotFound
	}
	return s.nodeTags.GetByIndex(ctx, idxPair, compound(nodeID, tagID))
}

// UpdateNodeTag replaces a stored association.
func (s *Store) UpdateNodeTag(ctx context.Context, nt *domain.NodeTag) error {
	if err := s.nodeTags.Update(ctx, nt.ID, nt); err != nil {
		return fmt.Errorf("update node tag: %w", err)
	}
	s.emit(store.OpUpdate, []string{nt.ID}, store.TableNodeTags)
	return nil
}

// DeleteNodeTag removes an association by ID. Missing rows are not an error.
func (s *Store) DeleteNodeTag(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var existed bool
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		existed, err = s.nodeTags.delete(txn, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete node tag: %w", err)
	}
	if existed {
		s.emit(store.OpDelete, []string{id}, store.TableNodeTags)
	}
	return nil
}

// DeleteNodeTagByPair removes the association between a node and a tag, if any.
func (s *Store) DeleteNodeTagByPair(ctx context.Context, nodeID, tagID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var removedID string
	err := s.db.Update(func(txn *badger.Txn) error {
		nt, err := s.nodeTags.getByIndex(txn, idxPair, compound(nodeID, tagID))
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		removedID = nt.ID
		_, err = s.nodeTags.delete(txn, nt.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete node tag by pair: %w", err)
	}
	if removedID != "" {
		s.emit(store.OpDelete, []string{removedID}, store.TableNodeTags)
	}
	return nil
}

// DeleteNodeTagsByNode removes every association of a node and returns how many were removed.
func (s *Store) DeleteNodeTagsByNode(ctx context.Context, nodeID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if nodeID == "" {
		return 0, nil
	}
	var ids []string
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		ids, err = s.deleteNodeTagsTxn(ctx, txn, nodeID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete node tags: %w", err)
	}
	if len(ids) > 0 {
		s.emit(store.OpDelete, ids, store.TableNodeTags)
	}
	return len(ids), nil
}

func (s *Store) deleteNodeTagsTxn(ctx context.Context, txn *badger.Txn, nodeID string) ([]string, error) {
	ids, err := s.nodeTags.idsByIndex(ctx, txn, idxNode, nodeID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := s.nodeTags.delete(txn, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// ListNodeTagsByNode returns a node's associations ordered by creation.
func (s *Store) ListNodeTagsByNode(ctx context.Context, nodeID string) ([]domain.NodeTag, error) {
	if nodeID == "" {
		return []domain.NodeTag{}, nil
	}
	nts, err := s.nodeTags.ListByIndex(ctx, idxNode, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list node tags by node: %w", err)
	}
	domain.SortNodeTags(nts)
	return nts, nil
}

// ListNodeTagsByTag returns every association referencing a tag.
func (s *Store) ListNodeTagsByTag(ctx context.Context, tagID string) ([]domain.NodeTag, error) {
	if tagID == "" {
		return []domain.NodeTag{}, nil
	}
	nts, err := s.nodeTags.ListByIndex(ctx, idxTag, tagID)
	if err != nil {
		return nil, fmt.Errorf("list node tags by tag: %w", err)
	}
	domain.SortNodeTags(nts)
	return nts, nil
}

// CountNodeTagsByTag counts associations referencing a tag from index keys alone.
func (s *Store) CountNodeTagsByTag(ctx context.Context, tagID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if tagID == "" {
		return 0, nil
	}
	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = s.nodeTags.countByIndex(ctx, txn, idxTag, tagID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count node tags: %w", err)
	}
	return n, nil
}

// ReplaceNodeTags drops all of a node's associations and inserts nts in one
// transaction. Repeated tags within nts collapse into one row with bumped mentions.
func (s *Store) ReplaceNodeTags(ctx context.Context, nodeID string, nts []*domain.NodeTag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if nodeID == "" {
		return errors.Validation("node id is required")
	}
	for _, nt := range nts {
		if nt.NodeID != nodeID {
			return errors.Validationf("node tag %s belongs to node %q, not %q", nt.ID, nt.NodeID, nodeID)
		}
	}

	var ids []string
	err := s.db.Update(func(txn *badger.Txn) error {
		removed, err := s.deleteNodeTagsTxn(ctx, txn, nodeID)
		if err != nil {
			return err
		}
		ids = append(ids, removed...)
		for _, nt := range nts {
			stored, _, err := s.upsertNodeTag(txn, nt)
			if err != nil {
				return err
			}
			ids = append(ids, stored.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace node tags: %w", err)
	}

	if len(ids) > 0 {
		s.emit(store.OpUpdate, ids, store.TableNodeTags)
	}
	return nil
}
