package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/inkwell/tagstore/internal/domain"
	domainerrors "github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/store"
)

const nodeTagColumns = `id, node_id, tag_id, mentions, positions, create_date`

func scanNodeTag(scanner interface{ Scan(dest ...any) error }) (*domain.NodeTag, error) {
	var (
		nt         domain.NodeTag
		positions  string
		createDate string
	)
	if err := scanner.Scan(&nt.ID, &nt.NodeID, &nt.TagID, &nt.Mentions, &positions, &createDate); err != nil {
		return nil, err
	}
	if positions != "" {
		if err := json.Unmarshal([]byte(positions), &nt.Positions); err != nil {
			return nil, fmt.Errorf("decode positions: %w", err)
		}
	}
	var err error
	if nt.CreateDate, err = parseTime(createDate); err != nil {
		return nil, err
	}
	return &nt, nil
}

// encodePositions serializes positions as JSON text; none is stored as ''.
func encodePositions(p []domain.TagPosition) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode positions: %w", err)
	}
	return string(data), nil
}

func queryNodeTags(ctx context.Context, q querier, query string, args ...any) ([]domain.NodeTag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nts := []domain.NodeTag{}
	for rows.Next() {
		nt, err := scanNodeTag(rows)
		if err != nil {
			return nil, err
		}
		nts = append(nts, *nt)
	}
	return nts, rows.Err()
}

func getNodeTagByPair(ctx context.Context, q querier, nodeID, tagID string) (*domain.NodeTag, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+nodeTagColumns+` FROM node_tags WHERE node_id = ? AND tag_id = ?`, nodeID, tagID)
	nt, err := scanNodeTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return nt, err
}

func insertNodeTag(ctx context.Context, q querier, nt *domain.NodeTag) error {
	positions, err := encodePositions(nt.Positions)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO node_tags (id, node_id, tag_id, mentions, positions, create_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nt.ID, nt.NodeID, nt.TagID, nt.Mentions, positions, formatTime(nt.CreateDate))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func updateNodeTag(ctx context.Context, q querier, nt *domain.NodeTag) (bool, error) {
	positions, err := encodePositions(nt.Positions)
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE node_tags SET node_id = ?, tag_id = ?, mentions = ?, positions = ?, create_date = ?
		WHERE id = ?`,
		nt.NodeID, nt.TagID, nt.Mentions, positions, formatTime(nt.CreateDate), nt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, store.ErrAlreadyExists
		}
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// upsertNodeTag inserts nt or bumps the mentions of the existing (node, tag) row.
func upsertNodeTag(ctx context.Context, q querier, nt *domain.NodeTag) (*domain.NodeTag, store.Op, error) {
	existing, err := getNodeTagByPair(ctx, q, nt.NodeID, nt.TagID)
	switch {
	case err == nil:
		existing.Mentions++
		if len(nt.Positions) > 0 {
			existing.Positions = slices.Clone(nt.Positions)
		}
		if _, err := updateNodeTag(ctx, q, existing); err != nil {
			return nil, "", err
		}
		return existing, store.OpUpdate, nil
	case errors.Is(err, store.ErrNotFound):
		if err := insertNodeTag(ctx, q, nt); err != nil {
			return nil, "", err
		}
		return nt, store.OpCreate, nil
	default:
		return nil, "", err
	}
}

// CreateNodeTag inserts the association or, if the (node, tag) pair is
// already stored, bumps its mentions and replaces positions when given.
func (s *Store) CreateNodeTag(ctx context.Context, nt *domain.NodeTag) (*domain.NodeTag, error) {
	var (
		result *domain.NodeTag
		op     store.Op
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, op, err = upsertNodeTag(ctx, tx, nt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create node tag: %w", err)
	}
	s.emit(op, []string{result.ID}, store.TableNodeTags)
	return result, nil
}

// GetNodeTag retrieves an association by ID.
func (s *Store) GetNodeTag(ctx context.Context, id string) (*domain.NodeTag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeTagColumns+` FROM node_tags WHERE id = ?`, id)
	nt, err := scanNodeTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node tag: %w", err)
	}
	return nt, nil
}

// GetNodeTagByPair retrieves the association between a node and a tag.
func (s *Store) GetNodeTagByPair(ctx context.Context, nodeID, tagID string) (*domain.NodeTag, error) {
	if nodeID == "" || tagID == "" {
		return nil, store.ErrNotFound
	}
	nt, err := getNodeTagByPair(ctx, s.db, nodeID, tagID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get node tag by pair: %w", err)
	}
	return nt, err
}

// UpdateNodeTag replaces a stored association.
func (s *Store) UpdateNodeTag(ctx context.Context, nt *domain.NodeTag) error {
	found, err := updateNodeTag(ctx, s.db, nt)
	if err != nil {
		return fmt.Errorf("update node tag: %w", err)
	}
	if !found {
		return store.ErrNotFound
	}
	s.emit(store.OpUpdate, []string{nt.ID}, store.TableNodeTags)
	return nil
}

// DeleteNodeTag removes an association by ID. Missing rows are not an error.
func (s *Store) DeleteNodeTag(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM node_tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete node tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.emit(store.OpDelete, []string{id}, store.TableNodeTags)
	}
	return nil
}

// DeleteNodeTagByPair removes the association between a node and a tag, if any.
func (s *Store) DeleteNodeTagByPair(ctx context.Context, nodeID, tagID string) error {
	var removedID string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		nt, err := getNodeTagByPair(ctx, tx, nodeID, tagID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removedID = nt.ID
		_, err = tx.ExecContext(ctx, `DELETE FROM node_tags WHERE id = ?`, nt.ID)
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
	if nodeID == "" {
		return 0, nil
	}
	var ids []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		ids, err = deleteNodeTagsTx(ctx, tx, nodeID)
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

func deleteNodeTagsTx(ctx context.Context, tx *sql.Tx, nodeID string) ([]string, error) {
	ids, err := queryIDs(ctx, tx, `SELECT id FROM node_tags WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM node_tags WHERE node_id = ?`, nodeID); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListNodeTagsByNode returns a node's associations ordered by creation.
func (s *Store) ListNodeTagsByNode(ctx context.Context, nodeID string) ([]domain.NodeTag, error) {
	if nodeID == "" {
		return []domain.NodeTag{}, nil
	}
	nts, err := queryNodeTags(ctx, s.db,
		`SELECT `+nodeTagColumns+` FROM node_tags WHERE node_id = ? ORDER BY create_date, id`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list node tags by node: %w", err)
	}
	return nts, nil
}

// ListNodeTagsByTag returns every association referencing a tag.
func (s *Store) ListNodeTagsByTag(ctx context.Context, tagID string) ([]domain.NodeTag, error) {
	if tagID == "" {
		return []domain.NodeTag{}, nil
	}
	nts, err := queryNodeTags(ctx, s.db,
		`SELECT `+nodeTagColumns+` FROM node_tags WHERE tag_id = ? ORDER BY create_date, id`, tagID)
	if err != nil {
		return nil, fmt.Errorf("list node tags by tag: %w", err)
	}
	return nts, nil
}

// CountNodeTagsByTag counts associations referencing a tag.
func (s *Store) CountNodeTagsByTag(ctx context.Context, tagID string) (int, error) {
	if tagID == "" {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM node_tags WHERE tag_id = ?`, tagID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count node tags: %w", err)
	}
	return n, nil
}

// ReplaceNodeTags drops all of a node's associations and inserts nts in one
// transaction. Repeated tags within nts collapse into one row with bumped mentions.
func (s *Store) ReplaceNodeTags(ctx context.Context, nodeID string, nts []*domain.NodeTag) error {
	if nodeID == "" {
		return domainerrors.Validation("node id is required")
	}
	for _, nt := range nts {
		if nt.NodeID != nodeID {
			return domainerrors.Validationf("node tag %s belongs to node %q, not %q", nt.ID, nt.NodeID, nodeID)
		}
	}

	var ids []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		removed, err := deleteNodeTagsTx(ctx, tx, nodeID)
		if err != nil {
			return err
		}
		ids = append(ids, removed...)
		for _, nt := range nts {
			stored, _, err := upsertNodeTag(ctx, tx, nt)
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
