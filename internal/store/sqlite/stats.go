package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inkwell/tagstore/internal/domain"
)

// TagsWithStats returns the workspace's tags with their association counts.
func (s *Store) TagsWithStats(ctx context.Context, workspace string) ([]domain.TagWithStats, error) {
	if workspace == "" {
		return []domain.TagWithStats{}, nil
	}

	var out []domain.TagWithStats
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		tags, counts, err := tagsAndCounts(ctx, tx, workspace)
		if err != nil {
			return err
		}
		out = domain.ProjectTagsWithStats(tags, counts)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tags with stats: %w", err)
	}
	return out, nil
}

// TagGraph returns the workspace's tags and relations as a graph.
func (s *Store) TagGraph(ctx context.Context, workspace string) (domain.TagGraph, error) {
	if workspace == "" {
		return domain.EmptyTagGraph(), nil
	}

	var g domain.TagGraph
	err := s.readTx(ctx, func(tx *sql.Tx) error {
		tags, counts, err := tagsAndCounts(ctx, tx, workspace)
		if err != nil {
			return err
		}
		rels, err := queryRelations(ctx, tx,
			`SELECT `+relationColumns+` FROM tag_relations WHERE workspace = ? ORDER BY create_date, id`, workspace)
		if err != nil {
			return err
		}
		g = domain.ProjectTagGraph(tags, rels, counts)
		return nil
	})
	if err != nil {
		return domain.TagGraph{}, fmt.Errorf("tag graph: %w", err)
	}
	return g, nil
}

// readTx runs fn in a transaction that is always rolled back, so multi-query
// views read one snapshot.
func (s *Store) readTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}

func tagsAndCounts(ctx context.Context, q querier, workspace string) ([]domain.Tag, map[string]int, error) {
	tags, err := queryTags(ctx, q,
		`SELECT `+tagColumns+` FROM tags WHERE workspace = ? ORDER BY create_date, id`, workspace)
	if err != nil {
		return nil, nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT nt.tag_id, COUNT(*)
		FROM node_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE t.workspace = ?
		GROUP BY nt.tag_id`, workspace)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	counts := make(map[string]int, len(tags))
	for rows.Next() {
		var (
			tagID string
			n     int
		)
		if err := rows.Scan(&tagID, &n); err != nil {
			return nil, nil, err
		}
		counts[tagID] = n
	}
	return tags, counts, rows.Err()
}
