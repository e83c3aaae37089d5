package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/store"
)

const relationColumns = `id, workspace, source_tag_id, target_tag_id, relation_type, weight, description, create_date`

func scanRelation(scanner interface{ Scan(dest ...any) error }) (*domain.TagRelation, error) {
	var (
		r          domain.TagRelation
		createDate string
	)
	err := scanner.Scan(&r.ID, &r.Workspace, &r.SourceTagID, &r.TargetTagID,
		&r.RelationType, &r.Weight, &r.Description, &createDate)
	if err != nil {
		return nil, err
	}
	if r.CreateDate, err = parseTime(createDate); err != nil {
		return nil, err
	}
	return &r, nil
}

func queryRelations(ctx context.Context, q querier, query string, args ...any) ([]domain.TagRelation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rels := []domain.TagRelation{}
	for rows.Next() {
		r, err := scanRelation(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, *r)
	}
	return rels, rows.Err()
}

func getRelationBetween(ctx context.Context, q querier, sourceTagID, targetTagID string) (*domain.TagRelation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+relationColumns+` FROM tag_relations WHERE source_tag_id = ? AND target_tag_id = ?`,
		sourceTagID, targetTagID)
	r, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func updateRelation(ctx context.Context, q querier, r *domain.TagRelation) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE tag_relations SET workspace = ?, source_tag_id = ?, target_tag_id = ?,
			relation_type = ?, weight = ?, description = ?, create_date = ?
		WHERE id = ?`,
		r.Workspace, r.SourceTagID, r.TargetTagID, string(r.RelationType),
		r.Weight, r.Description, formatTime(r.CreateDate), r.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, store.ErrAlreadyExists
		}
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CreateTagRelation inserts the relation or, if one already links the same
// source to the same target, overwrites its type and weight (and description
// when given).
func (s *Store) CreateTagRelation(ctx context.Context, rel *domain.TagRelation) (*domain.TagRelation, error) {
	var (
		result *domain.TagRelation
		op     store.Op
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := getRelationBetween(ctx, tx, rel.SourceTagID, rel.TargetTagID)
		switch {
		case err == nil:
			existing.RelationType = rel.RelationType
			existing.Weight = rel.Weight
			if rel.Description != "" {
				existing.Description = rel.Description
			}
			result, op = existing, store.OpUpdate
			_, err = updateRelation(ctx, tx, existing)
			return err
		case errors.Is(err, store.ErrNotFound):
			result, op = rel, store.OpCreate
			_, err = tx.ExecContext(ctx, `
				INSERT INTO tag_relations (`+relationColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rel.ID, rel.Workspace, rel.SourceTagID, rel.TargetTagID,
				string(rel.RelationType), rel.Weight, rel.Description, formatTime(rel.CreateDate))
			if isUniqueViolation(err) {
				return store.ErrAlreadyExists
			}
			return err
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
	row := s.db.QueryRowContext(ctx, `SELECT `+relationColumns+` FROM tag_relations WHERE id = ?`, id)
	r, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag relation: %w", err)
	}
	return r, nil
}

// GetTagRelationBetween retrieves the relation from source to target.
func (s *Store) GetTagRelationBetween(ctx context.Context, sourceTagID, targetTagID string) (*domain.TagRelation, error) {
	if sourceTagID == "" || targetTagID == "" {
		return nil, store.ErrNotFound
	}
	r, err := getRelationBetween(ctx, s.db, sourceTagID, targetTagID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get tag relation between: %w", err)
	}
	return r, err
}

// UpdateTagRelation replaces a stored relation.
func (s *Store) UpdateTagRelation(ctx context.Context, rel *domain.TagRelation) error {
	found, err := updateRelation(ctx, s.db, rel)
	if err != nil {
		return fmt.Errorf("update tag relation: %w", err)
	}
	if !found {
		return store.ErrNotFound
	}
	s.emit(store.OpUpdate, []string{rel.ID}, store.TableTagRelations)
	return nil
}

// DeleteTagRelation removes a relation by ID. Missing rows are not an error.
func (s *Store) DeleteTagRelation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tag_relations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag relation: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.emit(store.OpDelete, []string{id}, store.TableTagRelations)
	}
	return nil
}

// DeleteTagRelationBetween removes the relation from source to target, if any.
func (s *Store) DeleteTagRelationBetween(ctx context.Context, sourceTagID, targetTagID string) error {
	var removedID string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r, err := getRelationBetween(ctx, tx, sourceTagID, targetTagID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removedID = r.ID
		_, err = tx.ExecContext(ctx, `DELETE FROM tag_relations WHERE id = ?`, r.ID)
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
	rels, err := queryRelations(ctx, s.db,
		`SELECT `+relationColumns+` FROM tag_relations WHERE workspace = ? ORDER BY create_date, id`, workspace)
	if err != nil {
		return nil, fmt.Errorf("list tag relations: %w", err)
	}
	return rels, nil
}

// ListTagRelationsForTag returns relations with the tag as source or target, each once.
func (s *Store) ListTagRelationsForTag(ctx context.Context, tagID string) ([]domain.TagRelation, error) {
	if tagID == "" {
		return []domain.TagRelation{}, nil
	}
	rels, err := queryRelations(ctx, s.db,
		`SELECT `+relationColumns+` FROM tag_relations
		WHERE source_tag_id = ? OR target_tag_id = ?
		ORDER BY create_date, id`, tagID, tagID)
	if err != nil {
		return nil, fmt.Errorf("list tag relations for tag: %w", err)
	}
	return rels, nil
}
