// Package store defines the persistence contract for tags, node associations and tag relations.
//
// Backends live in subpackages (badgerstore, sqlite). Every backend reports committed
// writes through an EventEmitter so live queries can re-run without polling.
package store

import (
	"context"

	"github.com/inkwell/tagstore/internal/domain"
)

// Store defines the interface for all persistence operations.
//
// Query methods given an empty workspace, node or tag id return an empty
// result rather than an error.
type Store interface {
	// Lifecycle
	Close() error

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	// DeleteTag removes the tag together with its node associations and
	// every relation it takes part in, atomically.
	DeleteTag(ctx context.Context, id string) error
	ListTagsByWorkspace(ctx context.Context, workspace string) ([]domain.Tag, error)
	ListTagsByCategory(ctx context.Context, workspace string, category domain.Category) ([]domain.Tag, error)
	// FindTagByName matches names case-insensitively within a workspace.
	FindTagByName(ctx context.Context, workspace, name string) (*domain.Tag, error)

	// Node tags
	// CreateNodeTag inserts the association, or when the (node, tag) pair
	// already exists bumps its mention count and returns the stored row.
	CreateNodeTag(ctx context.Context, nt *domain.NodeTag) (*domain.NodeTag, error)
	GetNodeTag(ctx context.Context, id string) (*domain.NodeTag, error)
	GetNodeTagByPair(ctx context.Context, nodeID, tagID string) (*domain.NodeTag, error)
	UpdateNodeTag(ctx context.Context, nt *domain.NodeTag) error
	DeleteNodeTag(ctx context.Context, id string) error
	DeleteNodeTagByPair(ctx context.Context, nodeID, tagID string) error
	DeleteNodeTagsByNode(ctx context.Context, nodeID string) (int, error)
	ListNodeTagsByNode(ctx context.Context, nodeID string) ([]domain.NodeTag, error)
	ListNodeTagsByTag(ctx context.Context, tagID string) ([]domain.NodeTag, error)
	CountNodeTagsByTag(ctx context.Context, tagID string) (int, error)
	// ReplaceNodeTags swaps every association of nodeID for the given rows in
	// one transaction. Rows must all carry nodeID.
	ReplaceNodeTags(ctx context.Context, nodeID string, nts []*domain.NodeTag) error

	// Tag relations
	// CreateTagRelation inserts the relation, or when a relation from source
	// to target already exists updates its type, weight and description.
	CreateTagRelation(ctx context.Context, rel *domain.TagRelation) (*domain.TagRelation, error)
	GetTagRelation(ctx context.Context, id string) (*domain.TagRelation, error)
	GetTagRelationBetween(ctx context.Context, sourceTagID, targetTagID string) (*domain.TagRelation, error)
	UpdateTagRelation(ctx context.Context, rel *domain.TagRelation) error
	DeleteTagRelation(ctx context.Context, id string) error
	DeleteTagRelationBetween(ctx context.Context, sourceTagID, targetTagID string) error
	ListTagRelationsByWorkspace(ctx context.Context, workspace string) ([]domain.TagRelation, error)
	// ListTagRelationsForTag returns relations where the tag is source or
	// target. A self-relation appears once.
	ListTagRelationsForTag(ctx context.Context, tagID string) ([]domain.TagRelation, error)

	// Derived views
	TagsWithStats(ctx context.Context, workspace string) ([]domain.TagWithStats, error)
	TagGraph(ctx context.Context, workspace string) (domain.TagGraph, error)
}
