package service

import (
	"context"
	"strings"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/livequery"
	"github.com/inkwell/tagstore/internal/store"
)

// Table sets each live view reads from.
var (
	tagTables      = []store.Table{store.TableTags}
	nodeTagTables  = []store.Table{store.TableNodeTags}
	relationTables = []store.Table{store.TableTagRelations}
	nodeTagsTables = []store.Table{store.TableTags, store.TableNodeTags}
	statsTables    = []store.Table{store.TableTags, store.TableNodeTags}
	graphTables    = []store.Table{store.TableTags, store.TableNodeTags, store.TableTagRelations}
)

// TagWatcher builds live views over the tag store. Every view re-runs when
// a table it reads from changes, and an empty key yields an empty result.
type TagWatcher struct {
	store store.Store
	hub   *livequery.Hub
}

// NewTagWatcher creates a watcher. The hub must be the store's event emitter.
func NewTagWatcher(store store.Store, hub *livequery.Hub) *TagWatcher {
	return &TagWatcher{store: store, hub: hub}
}

// Hub returns the hub views subscribe to.
func (w *TagWatcher) Hub() *livequery.Hub {
	return w.hub
}

// TagsByWorkspace watches every tag in a workspace.
func (w *TagWatcher) TagsByWorkspace(ctx context.Context, workspace string) *livequery.Subscription[[]domain.Tag] {
	return livequery.Watch(ctx, w.hub, tagTables, w.tagsByWorkspaceQuery(workspace))
}

func (w *TagWatcher) tagsByWorkspaceQuery(workspace string) livequery.Query[[]domain.Tag] {
	return func(ctx context.Context) ([]domain.Tag, error) {
		return w.store.ListTagsByWorkspace(ctx, workspace)
	}
}

// Tag watches a single tag. The value is nil while the tag does not exist.
func (w *TagWatcher) Tag(ctx context.Context, id string) *livequery.Subscription[*domain.Tag] {
	return livequery.Watch(ctx, w.hub, tagTables, func(ctx context.Context) (*domain.Tag, error) {
		if id == "" {
			return nil, nil
		}
		tag, err := w.store.GetTag(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return tag, err
	})
}

// TagsByCategory watches the workspace's tags of one category.
func (w *TagWatcher) TagsByCategory(ctx context.Context, workspace string, category domain.Category) *livequery.Subscription[[]domain.Tag] {
	return livequery.Watch(ctx, w.hub, tagTables, func(ctx context.Context) ([]domain.Tag, error) {
		return w.store.ListTagsByCategory(ctx, workspace, category)
	})
}

// NodeTags watches the tags associated with a node.
func (w *TagWatcher) NodeTags(ctx context.Context, nodeID string) *livequery.Subscription[[]domain.Tag] {
	return livequery.Watch(ctx, w.hub, nodeTagsTables, func(ctx context.Context) ([]domain.Tag, error) {
		return tagsForNode(ctx, w.store, nodeID)
	})
}

// NodeTagRelations watches a node's association rows.
func (w *TagWatcher) NodeTagRelations(ctx context.Context, nodeID string) *livequery.Subscription[[]domain.NodeTag] {
	return livequery.Watch(ctx, w.hub, nodeTagTables, func(ctx context.Context) ([]domain.NodeTag, error) {
		return w.store.ListNodeTagsByNode(ctx, nodeID)
	})
}

// NodesWithTag watches the IDs of nodes carrying a tag.
func (w *TagWatcher) NodesWithTag(ctx context.Context, tagID string) *livequery.Subscription[[]string] {
	return livequery.Watch(ctx, w.hub, nodeTagTables, func(ctx context.Context) ([]string, error) {
		return nodesWithTag(ctx, w.store, tagID)
	})
}

// TagRelations watches every relation in a workspace.
func (w *TagWatcher) TagRelations(ctx context.Context, workspace string) *livequery.Subscription[[]domain.TagRelation] {
	return livequery.Watch(ctx, w.hub, relationTables, w.tagRelationsQuery(workspace))
}

func (w *TagWatcher) tagRelationsQuery(workspace string) livequery.Query[[]domain.TagRelation] {
	return func(ctx context.Context) ([]domain.TagRelation, error) {
		return w.store.ListTagRelationsByWorkspace(ctx, workspace)
	}
}

// TagRelationsForTag watches relations with the tag at either end.
func (w *TagWatcher) TagRelationsForTag(ctx context.Context, tagID string) *livequery.Subscription[[]domain.TagRelation] {
	return livequery.Watch(ctx, w.hub, relationTables, func(ctx context.Context) ([]domain.TagRelation, error) {
		return w.store.ListTagRelationsForTag(ctx, tagID)
	})
}

// TagGraph watches the workspace's tag graph. Usage counts on graph nodes
// make it depend on associations too.
func (w *TagWatcher) TagGraph(ctx context.Context, workspace string) *livequery.Subscription[domain.TagGraph] {
	return livequery.Watch(ctx, w.hub, graphTables, w.tagGraphQuery(workspace))
}

func (w *TagWatcher) tagGraphQuery(workspace string) livequery.Query[domain.TagGraph] {
	return func(ctx context.Context) (domain.TagGraph, error) {
		return w.store.TagGraph(ctx, workspace)
	}
}

// TagsWithStats watches the workspace's tags with usage counts.
func (w *TagWatcher) TagsWithStats(ctx context.Context, workspace string) *livequery.Subscription[[]domain.TagWithStats] {
	return livequery.Watch(ctx, w.hub, statsTables, w.tagsWithStatsQuery(workspace))
}

func (w *TagWatcher) tagsWithStatsQuery(workspace string) livequery.Query[[]domain.TagWithStats] {
	return func(ctx context.Context) ([]domain.TagWithStats, error) {
		return w.store.TagsWithStats(ctx, workspace)
	}
}

// TagSearch watches the workspace's tags whose name contains query. A blank
// query yields an empty list, never the whole workspace.
func (w *TagWatcher) TagSearch(ctx context.Context, workspace, query string) *livequery.Subscription[[]domain.Tag] {
	return livequery.Watch(ctx, w.hub, tagTables, w.tagSearchQuery(workspace, query))
}

func (w *TagWatcher) tagSearchQuery(workspace, query string) livequery.Query[[]domain.Tag] {
	return func(ctx context.Context) ([]domain.Tag, error) {
		if workspace == "" || strings.TrimSpace(query) == "" {
			return []domain.Tag{}, nil
		}
		tags, err := w.store.ListTagsByWorkspace(ctx, workspace)
		if err != nil {
			return nil, err
		}
		return filterByName(tags, query), nil
	}
}

// TagUsageCount watches how many association rows reference a tag.
func (w *TagWatcher) TagUsageCount(ctx context.Context, tagID string) *livequery.Subscription[int] {
	return livequery.Watch(ctx, w.hub, nodeTagTables, func(ctx context.Context) (int, error) {
		return w.store.CountNodeTagsByTag(ctx, tagID)
	})
}

// SearchBinding is a search view whose query text changes over time, as
// when a user types into a search box. Results for superseded queries are
// never delivered.
func (w *TagWatcher) SearchBinding(ctx context.Context, workspace string) *livequery.Binding[string, []domain.Tag] {
	return livequery.Bind(ctx, w.hub, tagTables, func(query string) livequery.Query[[]domain.Tag] {
		return w.tagSearchQuery(workspace, query)
	})
}

// WorkspaceView names a workspace-scoped live view.
type WorkspaceView string

// Workspace views served over live streams.
const (
	ViewTags      WorkspaceView = "tags"
	ViewStats     WorkspaceView = "stats"
	ViewGraph     WorkspaceView = "graph"
	ViewRelations WorkspaceView = "relations"
	ViewSearch    WorkspaceView = "search"
)

// WorkspaceViews lists the views WatchWorkspace accepts.
var WorkspaceViews = []WorkspaceView{ViewTags, ViewStats, ViewGraph, ViewRelations, ViewSearch}

// WatchWorkspace starts a workspace view with its value type erased, for
// transports that only need to serialize it. arg is the search query for
// ViewSearch and ignored otherwise.
func (w *TagWatcher) WatchWorkspace(ctx context.Context, view WorkspaceView, workspace, arg string) (*livequery.Subscription[any], error) {
	var (
		tables []store.Table
		query  livequery.Query[any]
	)
	switch view {
	case ViewTags:
		tables, query = tagTables, erase(w.tagsByWorkspaceQuery(workspace))
	case ViewStats:
		tables, query = statsTables, erase(w.tagsWithStatsQuery(workspace))
	case ViewGraph:
		tables, query = graphTables, erase(w.tagGraphQuery(workspace))
	case ViewRelations:
		tables, query = relationTables, erase(w.tagRelationsQuery(workspace))
	case ViewSearch:
		tables, query = tagTables, erase(w.tagSearchQuery(workspace, arg))
	default:
		return nil, errors.Validationf("unknown live view %q", view)
	}
	return livequery.Watch(ctx, w.hub, tables, query), nil
}

func erase[T any](q livequery.Query[T]) livequery.Query[any] {
	return func(ctx context.Context) (any, error) {
		return q(ctx)
	}
}
