package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/livequery"
	"github.com/inkwell/tagstore/internal/store"
	"github.com/inkwell/tagstore/internal/store/badgerstore"
)

type testEnv struct {
	svc     *TagService
	watcher *TagWatcher
	hub     *livequery.Hub
	store   store.Store
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := livequery.NewHub(logger)
	st, err := badgerstore.NewInMemory(logger, hub)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = hub.Shutdown(context.Background())
		_ = st.Close()
	})

	svc := NewTagService(st, logger)
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return &testEnv{svc: svc, watcher: NewTagWatcher(st, hub), hub: hub, store: st}
}

func (e *testEnv) createTag(t *testing.T, workspace, name string) *domain.Tag {
	t.Helper()
	tag, err := e.svc.CreateTag(context.Background(), domain.TagCreateInput{Workspace: workspace, Name: name})
	require.NoError(t, err)
	return tag
}

func ptr[T any](v T) *T { return &v }

func TestCreateRenameDelete(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tag := env.createTag(t, "ws-1", "  Hero ")
	assert.Equal(t, "Hero", tag.Name)
	assert.Equal(t, domain.CategoryCustom, tag.Category)
	assert.Equal(t, "#A8A8A8", tag.Color)

	tags, err := env.svc.ListTags(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Hero", tags[0].Name)

	renamed, err := env.svc.UpdateTag(ctx, tag.ID, domain.TagUpdateInput{Name: ptr("Protagonist")})
	require.NoError(t, err)
	assert.Equal(t, "Protagonist", renamed.Name)
	assert.True(t, renamed.LastEdit.After(tag.LastEdit))

	got, err := env.svc.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "Protagonist", got.Name)

	require.NoError(t, env.svc.DeleteTag(ctx, tag.ID))
	tags, err = env.svc.ListTags(ctx, "ws-1")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestCreateTag_Validation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    domain.TagCreateInput
		field string
	}{
		{"blank name", domain.TagCreateInput{Workspace: "ws", Name: "   "}, "name"},
		{"missing workspace", domain.TagCreateInput{Name: "x"}, "workspace"},
		{"bad color", domain.TagCreateInput{Workspace: "ws", Name: "x", Color: "red"}, "color"},
		{"bad category", domain.TagCreateInput{Workspace: "ws", Name: "x", Category: "villain"}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateTag(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))

			var derr *errors.Error
			require.True(t, errors.As(err, &derr))
			details, ok := derr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestUpdateTag_Recategorize(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	tag := env.createTag(t, "ws", "Castle")

	updated, err := env.svc.UpdateTag(ctx, tag.ID, domain.TagUpdateInput{Category: ptr(domain.CategoryLocation)})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryLocation, updated.Category)
	assert.Equal(t, "#4ECDC4", updated.Color)

	_, err = env.svc.UpdateTag(ctx, tag.ID, domain.TagUpdateInput{Name: ptr(" ")})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = env.svc.UpdateTag(ctx, "tag-missing", domain.TagUpdateInput{Name: ptr("x")})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSearchTags(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.createTag(t, "ws", "Dragon")
	env.createTag(t, "ws", "Dragonfly")
	env.createTag(t, "ws", "Knight")
	env.createTag(t, "other", "Dragon")

	for _, q := range []string{"", "   "} {
		got, err := env.svc.SearchTags(ctx, "ws", q)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got, "blank query %q must not list the workspace", q)
	}

	got, err := env.svc.SearchTags(ctx, "ws", "DRAGON")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// The query is matched untrimmed.
	got, err = env.svc.SearchTags(ctx, "ws", "Dragon ")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = env.svc.SearchTags(ctx, "", "Dragon")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetOrCreateTag(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	first, created, err := env.svc.GetOrCreateTag(ctx, "ws", "Elena", domain.CategoryCharacter)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.CategoryCharacter, first.Category)
	assert.Equal(t, "#FF6B6B", first.Color)

	again, created, err := env.svc.GetOrCreateTag(ctx, "ws", "ELENA", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	other, created, err := env.svc.GetOrCreateTag(ctx, "ws", "Sword", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.CategoryCustom, other.Category)
}

func TestAssociationRollUp(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	tag := env.createTag(t, "ws", "Hero")

	for _, node := range []string{"node-1", "node-2", "node-3"} {
		_, err := env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: node, TagID: tag.ID})
		require.NoError(t, err)
	}

	stats, err := env.svc.GetTagsWithStats(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].UsageCount)

	count, err := env.svc.TagUsageCount(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	nodes, err := env.svc.NodesWithTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"node-1", "node-2", "node-3"}, nodes)
}

func TestAddTagToNode_Upserts(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	tag := env.createTag(t, "ws", "Hero")

	first, err := env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: "n", TagID: tag.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Mentions)

	second, err := env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: "n", TagID: tag.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Mentions)

	_, err = env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: "n"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestNodeTagLifecycle(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	a := env.createTag(t, "ws", "A")
	b := env.createTag(t, "ws", "B")
	c := env.createTag(t, "ws", "C")

	require.NoError(t, env.svc.SyncNodeTags(ctx, "node", []string{a.ID, b.ID}))
	tags, err := env.svc.TagsForNode(ctx, "node")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, tagIDs(tags))

	require.NoError(t, env.svc.SyncNodeTags(ctx, "node", []string{c.ID}))
	tags, err = env.svc.TagsForNode(ctx, "node")
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, tagIDs(tags))

	nt, err := env.svc.UpdateTagPositions(ctx, "node", c.ID, []domain.TagPosition{{Start: 0, End: 3}, {Start: 10, End: 13}})
	require.NoError(t, err)
	assert.Equal(t, 2, nt.Mentions)

	_, err = env.svc.UpdateTagPositions(ctx, "node", c.ID, []domain.TagPosition{{Start: 5, End: 1}})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = env.svc.UpdateTagPositions(ctx, "node", a.ID, nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, env.svc.RemoveTagFromNode(ctx, "node", c.ID))
	rows, err := env.svc.NodeTagsForNode(ctx, "node")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSyncTagsFromContent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	hero := env.createTag(t, "ws", "Hero")
	villain := env.createTag(t, "ws", "Villain")
	sword := env.createTag(t, "ws", "Sword")

	kept, err := env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: "scene", TagID: hero.ID})
	require.NoError(t, err)
	_, err = env.svc.AddTagToNode(ctx, domain.NodeTagCreateInput{NodeID: "scene", TagID: sword.ID})
	require.NoError(t, err)

	doc := `{"root": {"children": [{"type": "paragraph", "children": [
	  {"type": "tag", "tagId": "` + hero.ID + `", "tagName": "Hero"},
	  {"type": "text", "text": " vs "},
	  {"type": "tag", "tagId": "` + villain.ID + `", "tagName": "Villain"},
	  {"type": "text", "text": ", again "},
	  {"type": "tag", "tagId": "` + hero.ID + `", "tagName": "Hero"}
	]}]}}`

	rows, err := env.svc.SyncTagsFromContent(ctx, "scene", doc)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byTag := make(map[string]domain.NodeTag)
	for _, r := range rows {
		byTag[r.TagID] = r
	}

	heroRow := byTag[hero.ID]
	assert.Equal(t, kept.ID, heroRow.ID, "existing association is kept")
	assert.Equal(t, 2, heroRow.Mentions)
	assert.Equal(t, []domain.TagPosition{{Start: 0, End: 4}, {Start: 23, End: 27}}, heroRow.Positions)

	villainRow := byTag[villain.ID]
	assert.Equal(t, 1, villainRow.Mentions)
	assert.Equal(t, []domain.TagPosition{{Start: 8, End: 15}}, villainRow.Positions)

	_, ok := byTag[sword.ID]
	assert.False(t, ok, "tag no longer in content is removed")

	rows, err = env.svc.SyncTagsFromContent(ctx, "scene", "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSyncTagsFromContent_SkipsUnknownTags(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	hero := env.createTag(t, "ws", "Hero")

	doc := `{"root": {"children": [
	  {"type": "tag", "tagId": "` + hero.ID + `", "tagName": "Hero"},
	  {"type": "tag", "tagId": "tag-does-not-exist", "tagName": "Ghost"}
	]}}`

	rows, err := env.svc.SyncTagsFromContent(ctx, "scene", doc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, hero.ID, rows[0].TagID)
	assert.Equal(t, []domain.TagPosition{{Start: 0, End: 4}}, rows[0].Positions)

	count, err := env.svc.TagUsageCount(ctx, "tag-does-not-exist")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRelations(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	a := env.createTag(t, "ws", "A")
	b := env.createTag(t, "ws", "B")

	rel, err := env.svc.CreateTagRelation(ctx, domain.TagRelationCreateInput{
		Workspace:    "ws",
		SourceTagID:  a.ID,
		TargetTagID:  b.ID,
		RelationType: domain.RelationKnows,
		Weight:       ptr(250),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, rel.Weight)

	// Re-relating without a type or weight keeps the stored ones.
	again, err := env.svc.CreateTagRelation(ctx, domain.TagRelationCreateInput{
		Workspace:   "ws",
		SourceTagID: a.ID,
		TargetTagID: b.ID,
		Description: "old friends",
	})
	require.NoError(t, err)
	assert.Equal(t, rel.ID, again.ID)
	assert.Equal(t, domain.RelationKnows, again.RelationType)
	assert.Equal(t, 100, again.Weight)
	assert.Equal(t, "old friends", again.Description)

	updated, err := env.svc.UpdateTagRelation(ctx, rel.ID, domain.TagRelationUpdateInput{Weight: ptr(-5)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Weight)

	forA, err := env.svc.TagRelationsForTag(ctx, a.ID)
	require.NoError(t, err)
	forB, err := env.svc.TagRelationsForTag(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, forA, 1)
	assert.Len(t, forB, 1)

	graph, err := env.svc.GetTagGraph(ctx, "ws")
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, a.ID, graph.Edges[0].Source)

	require.NoError(t, env.svc.DeleteTagRelationBetween(ctx, b.ID, a.ID))
	all, err := env.svc.ListTagRelations(ctx, "ws")
	require.NoError(t, err)
	assert.Len(t, all, 1, "reverse direction is a different relation")

	require.NoError(t, env.svc.DeleteTagRelationBetween(ctx, a.ID, b.ID))
	all, err = env.svc.ListTagRelations(ctx, "ws")
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = env.svc.CreateTagRelation(ctx, domain.TagRelationCreateInput{
		Workspace: "ws", SourceTagID: a.ID, TargetTagID: b.ID, RelationType: "enemy",
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestEmptyWorkspace(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	graph, err := env.svc.GetTagGraph(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, graph.Nodes)
	assert.NotNil(t, graph.Edges)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)

	stats, err := env.svc.GetTagsWithStats(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func tagIDs(tags []domain.Tag) []string {
	ids := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}
