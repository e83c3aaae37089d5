package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, workspace, name, color, category, icon, description, metadata, create_date, last_edit`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		t          domain.Tag
		createDate string
		lastEdit   string
	)
	err := scanner.Scan(
		&t.ID,
		&t.Workspace,
		&t.Name,
		&t.Color,
		&t.Category,
		&t.Icon,
		&t.Description,
		&t.Metadata,
		&createDate,
		&lastEdit,
	)
	if err != nil {
		return nil, err
	}

	if t.CreateDate, err = parseTime(createDate); err != nil {
		return nil, err
	}
	if t.LastEdit, err = parseTime(lastEdit); err != nil {
		return nil, err
	}
	return &t, nil
}

func queryTags(ctx context.Context, q querier, query string, args ...any) ([]domain.Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists on a duplicate id.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, workspace, name, name_fold, color, category, icon, description, metadata, create_date, last_edit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Workspace,
		t.Name,
		domain.FoldName(t.Name),
		t.Color,
		string(t.Category),
		t.Icon,
		t.Description,
		t.Metadata,
		formatTime(t.CreateDate),
		formatTime(t.LastEdit),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("create tag: %w", err)
	}
	s.emit(store.OpCreate, []string{t.ID}, store.TableTags)
	return nil
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// UpdateTag replaces a stored tag.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET workspace = ?, name = ?, name_fold = ?, color = ?, category = ?,
			icon = ?, description = ?, metadata = ?, create_date = ?, last_edit = ?
		WHERE id = ?`,
		t.Workspace,
		t.Name,
		domain.FoldName(t.Name),
		t.Color,
		string(t.Category),
		t.Icon,
		t.Description,
		t.Metadata,
		formatTime(t.CreateDate),
		formatTime(t.LastEdit),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	s.emit(store.OpUpdate, []string{t.ID}, store.TableTags)
	return nil
}

// DeleteTag removes a tag, its node associations and every relation touching it
// in one transaction.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	var (
		touched []store.Table
		removed = []string{id}
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ntIDs, err := queryIDs(ctx, tx, `SELECT id FROM node_tags WHERE tag_id = ?`, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM node_tags WHERE tag_id = ?`, id); err != nil {
			return err
		}

		relIDs, err := queryIDs(ctx, tx,
			`SELECT id FROM tag_relations WHERE source_tag_id = ? OR target_tag_id = ?`, id, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tag_relations WHERE source_tag_id = ? OR target_tag_id = ?`, id, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return err
		}

		if len(ntIDs) > 0 {
			touched = append(touched, store.TableNodeTags)
			removed = append(removed, ntIDs...)
		}
		if len(relIDs) > 0 {
			touched = append(touched, store.TableTagRelations)
			removed = append(removed, relIDs...)
		}
		if n, _ := res.RowsAffected(); n > 0 {
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
	tags, err := queryTags(ctx, s.db,
		`SELECT `+tagColumns+` FROM tags WHERE workspace = ? ORDER BY create_date, id`, workspace)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// ListTagsByCategory returns the workspace's tags of one category.
func (s *Store) ListTagsByCategory(ctx context.Context, workspace string, category domain.Category) ([]domain.Tag, error) {
	if workspace == "" {
		return []domain.Tag{}, nil
	}
	tags, err := queryTags(ctx, s.db,
		`SELECT `+tagColumns+` FROM tags WHERE workspace = ? AND category = ? ORDER BY create_date, id`,
		workspace, string(category))
	if err != nil {
		return nil, fmt.Errorf("list tags by category: %w", err)
	}
	return tags, nil
}

// FindTagByName returns the oldest tag in the workspace whose name matches,
// ignoring case.
func (s *Store) FindTagByName(ctx context.Context, workspace, name string) (*domain.Tag, error) {
	if workspace == "" || strings.TrimSpace(name) == "" {
		return nil, store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE workspace = ? AND name_fold = ? ORDER BY create_date, id LIMIT 1`,
		workspace, domain.FoldName(name))
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by name: %w", err)
	}
	return t, nil
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
