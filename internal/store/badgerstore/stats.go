package badgerstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwell/tagstore/internal/domain"
)

// TagsWithStats returns the workspace's tags with their association counts,
// read from one consistent snapshot.
func (s *Store) TagsWithStats(ctx context.Context, workspace string) ([]domain.TagWithStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workspace == "" {
		return []domain.TagWithStats{}, nil
	}

	var out []domain.TagWithStats
	err := s.db.View(func(txn *badger.Txn) error {
		tags, counts, err := s.tagsAndCounts(ctx, txn, workspace)
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
	if err := ctx.Err(); err != nil {
		return domain.TagGraph{}, err
	}
	if workspace == "" {
		return domain.EmptyTagGraph(), nil
	}

	var g domain.TagGraph
	err := s.db.View(func(txn *badger.Txn) error {
		tags, counts, err := s.tagsAndCounts(ctx, txn, workspace)
		if err != nil {
			return err
		}
		rels, err := s.relations.listByIndex(ctx, txn, idxWorkspace, workspace)
		if err != nil {
			return err
		}
		domain.SortTagRelations(rels)
		g = domain.ProjectTagGraph(tags, rels, counts)
		return nil
	})
	if err != nil {
		return domain.TagGraph{}, fmt.Errorf("tag graph: %w", err)
	}
	return g, nil
}

func (s *Store) tagsAndCounts(ctx context.Context, txn *badger.Txn, workspace string) ([]domain.Tag, map[string]int, error) {
	tags, err := s.tags.listByIndex(ctx, txn, idxWorkspace, workspace)
	if err != nil {
		return nil, nil, err
	}
	domain.SortTags(tags)

	counts := make(map[string]int, len(tags))
	for _, t := range tags {
		n, err := s.nodeTags.countByIndex(ctx, txn, idxTag, t.ID)
		if err != nil {
			return nil, nil, err
		}
		counts[t.ID] = n
	}
	return tags, counts, nil
}
