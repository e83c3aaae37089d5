package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/livequery"
)

// awaitValue waits until the subscription's latest snapshot satisfies ok.
func awaitValue[T any](t *testing.T, sub *livequery.Subscription[T], ok func(T) bool) T {
	t.Helper()
	var value T
	require.Eventually(t, func() bool {
		snap := sub.Current()
		value = snap.Value
		return snap.State == livequery.Ready && ok(snap.Value)
	}, 2*time.Second, 5*time.Millisecond)
	return value
}

func TestWatcher_TagsByWorkspaceFollowsWrites(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	sub := env.watcher.TagsByWorkspace(ctx, "ws")
	defer sub.Close()
	awaitValue(t, sub, func(tags []domain.Tag) bool { return len(tags) == 0 })

	tag := env.createTag(t, "ws", "Hero")
	awaitValue(t, sub, func(tags []domain.Tag) bool { return len(tags) == 1 && tags[0].Name == "Hero" })

	_, err := env.svc.UpdateTag(ctx, tag.ID, domain.TagUpdateInput{Name: ptr("Protagonist")})
	require.NoError(t, err)
	awaitValue(t, sub, func(tags []domain.Tag) bool { return len(tags) == 1 && tags[0].Name == "Protagonist" })

	require.NoError(t, env.svc.DeleteTag(ctx, tag.ID))
	awaitValue(t, sub, func(tags []domain.Tag) bool { return len(tags) == 0 })
}

func TestWatcher_StatsRollUp(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	tag := env.createTag(t, "ws", "Hero")

	stats := env.watcher.TagsWithStats(ctx, "ws")
	defer stats.Close()
	usage := env.watcher.TagUsageCount(ctx, tag.ID)
	defer usage.Close()
	graph := env.watcher.TagGraph(ctx, "ws")
	defer graph.Close()

	for _, node := range []string{"n1", "n2", "n3"} {
		_, err := env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: node, TagID: tag.ID})
		require.NoError(t, err)
	}

	awaitValue(t, stats, func(s []domain.TagWithStats) bool { return len(s) == 1 && s[0].UsageCount == 3 })
	awaitValue(t, usage, func(n int) bool { return n == 3 })
	awaitValue(t, graph, func(g domain.TagGraph) bool { return len(g.Nodes) == 1 && g.Nodes[0].UsageCount == 3 })
}

func TestWatcher_EmptyKeys(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.createTag(t, "ws", "Hero")

	tags := env.watcher.TagsByWorkspace(ctx, "")
	defer tags.Close()
	graph := env.watcher.TagGraph(ctx, "")
	defer graph.Close()
	tag := env.watcher.Tag(ctx, "")
	defer tag.Close()
	search := env.watcher.TagSearch(ctx, "ws", "")
	defer search.Close()

	assert.Empty(t, awaitValue(t, tags, func([]domain.Tag) bool { return true }))
	g := awaitValue(t, graph, func(domain.TagGraph) bool { return true })
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.Nil(t, awaitValue(t, tag, func(*domain.Tag) bool { return true }))
	assert.Empty(t, awaitValue(t, search, func([]domain.Tag) bool { return true }))
}

func TestWatcher_TagMissingIsNil(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := env.createTag(t, "ws", "Hero")

	sub := env.watcher.Tag(ctx, created.ID)
	defer sub.Close()
	awaitValue(t, sub, func(tag *domain.Tag) bool { return tag != nil && tag.ID == created.ID })

	require.NoError(t, env.svc.DeleteTag(ctx, created.ID))
	awaitValue(t, sub, func(tag *domain.Tag) bool { return tag == nil })
}

func TestWatcher_RelationsBothEnds(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	a := env.createTag(t, "ws", "A")
	b := env.createTag(t, "ws", "B")

	forA := env.watcher.TagRelationsForTag(ctx, a.ID)
	defer forA.Close()
	forB := env.watcher.TagRelationsForTag(ctx, b.ID)
	defer forB.Close()

	_, err := env.svc.CreateTagRelation(ctx, domain.TagRelationCreateInput{Workspace: "ws", SourceTagID: a.ID, TargetTagID: b.ID})
	require.NoError(t, err)

	awaitValue(t, forA, func(r []domain.TagRelation) bool { return len(r) == 1 })
	awaitValue(t, forB, func(r []domain.TagRelation) bool { return len(r) == 1 })
}

func TestWatcher_NodeViews(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	hero := env.createTag(t, "ws", "Hero")

	tags := env.watcher.NodeTags(ctx, "scene")
	defer tags.Close()
	rows := env.watcher.NodeTagRelations(ctx, "scene")
	defer rows.Close()
	nodes := env.watcher.NodesWithTag(ctx, hero.ID)
	defer nodes.Close()

	_, err := env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: "scene", TagID: hero.ID})
	require.NoError(t, err)

	awaitValue(t, tags, func(ts []domain.Tag) bool { return len(ts) == 1 && ts[0].ID == hero.ID })
	awaitValue(t, rows, func(nts []domain.NodeTag) bool { return len(nts) == 1 })
	awaitValue(t, nodes, func(ids []string) bool { return len(ids) == 1 && ids[0] == "scene" })

	// Renaming the tag re-runs the node's tag view, which reads tags too.
	_, err = env.svc.UpdateTag(ctx, hero.ID, domain.TagUpdateInput{Name: ptr("Protagonist")})
	require.NoError(t, err)
	awaitValue(t, tags, func(ts []domain.Tag) bool { return len(ts) == 1 && ts[0].Name == "Protagonist" })
}

func TestWatcher_SearchBinding(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.createTag(t, "ws", "Dragon")
	env.createTag(t, "ws", "Knight")

	b := env.watcher.SearchBinding(ctx, "ws")
	defer b.Close()

	b.Set("drag")
	require.Eventually(t, func() bool {
		s := b.Current()
		return s.State == livequery.Ready && len(s.Value) == 1 && s.Value[0].Name == "Dragon"
	}, 2*time.Second, 5*time.Millisecond)

	b.Set("")
	require.Eventually(t, func() bool {
		s := b.Current()
		return s.State == livequery.Ready && len(s.Value) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_WatchWorkspace(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.createTag(t, "ws", "Hero")

	for _, view := range WorkspaceViews {
		sub, err := env.watcher.WatchWorkspace(ctx, view, "ws", "her")
		require.NoError(t, err, view)
		awaitValue(t, sub, func(v any) bool { return v != nil })
		sub.Close()
	}

	_, err := env.watcher.WatchWorkspace(ctx, "nope", "ws", "")
	assert.Error(t, err)
}
