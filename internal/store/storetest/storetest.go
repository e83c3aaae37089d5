// Package storetest is a behavioural test suite every store.Store backend must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/store"
)

// Factory opens a fresh, empty store wired to emitter. The suite closes it.
type Factory func(t *testing.T, emitter store.EventEmitter) store.Store

// Recorder is an EventEmitter that keeps every ChangeEvent it receives.
type Recorder struct {
	mu     sync.Mutex
	events []store.ChangeEvent
}

// Emit implements store.EventEmitter.
func (r *Recorder) Emit(event any) {
	if e, ok := event.(store.ChangeEvent); ok {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []store.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.ChangeEvent(nil), r.events...)
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	s   store.Store
	rec *Recorder
	now time.Time
}

func (f *fixture) tick() time.Time {
	f.now = f.now.Add(time.Millisecond)
	return f.now
}

func (f *fixture) tag(workspace, name string, category domain.Category) *domain.Tag {
	f.t.Helper()
	t := domain.NewTag(domain.TagCreateInput{Workspace: workspace, Name: name, Category: category}, f.tick())
	require.NoError(f.t, f.s.CreateTag(f.ctx, t))
	return t
}

func (f *fixture) link(nodeID, tagID string) *domain.NodeTag {
	f.t.Helper()
	nt, err := f.s.CreateNodeTag(f.ctx, domain.NewNodeTag(domain.NodeTagCreateInput{NodeID: nodeID, TagID: tagID}, f.tick()))
	require.NoError(f.t, err)
	return nt
}

func (f *fixture) relate(workspace, source, target string) *domain.TagRelation {
	f.t.Helper()
	rel, err := f.s.CreateTagRelation(f.ctx, domain.NewTagRelation(domain.TagRelationCreateInput{
		Workspace:   workspace,
		SourceTagID: source,
		TargetTagID: target,
	}, f.tick()))
	require.NoError(f.t, err)
	return rel
}

// Run executes the suite, opening a fresh store per subtest.
func Run(t *testing.T, open Factory) {
	cases := []struct {
		name string
		fn   func(f *fixture)
	}{
		{"TagCRUD", testTagCRUD},
		{"CreateRenameDeleteScenario", testCreateRenameDelete},
		{"ListTagsByCategory", testListTagsByCategory},
		{"FindTagByName", testFindTagByName},
		{"EmptyKeysReturnEmpty", testEmptyKeys},
		{"NodeTagUpsert", testNodeTagUpsert},
		{"NodeTagDeletes", testNodeTagDeletes},
		{"ReplaceNodeTags", testReplaceNodeTags},
		{"UsageCountRollUp", testUsageCountRollUp},
		{"StatsAreIdempotent", testStatsIdempotent},
		{"RelationUpsertAndBetween", testRelationUpsert},
		{"RelationBidirectionalLookup", testRelationBidirectional},
		{"TagGraph", testTagGraph},
		{"DeleteTagCascades", testDeleteTagCascades},
		{"ChangeEvents", testChangeEvents},
		{"PositionsRoundTrip", testPositionsRoundTrip},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &Recorder{}
			s := open(t, rec)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(&fixture{
				t:   t,
				ctx: context.Background(),
				s:   s,
				rec: rec,
				now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			})
		})
	}
}

func testTagCRUD(f *fixture) {
	t := f.t
	tag := f.tag("ws-1", "Hero", "")

	got, err := f.s.GetTag(f.ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, tag.Name, got.Name)
	assert.Equal(t, domain.CategoryCustom, got.Category)
	assert.Equal(t, domain.CategoryCustom.DefaultColor(), got.Color)
	assert.True(t, tag.CreateDate.Equal(got.CreateDate))

	err = f.s.CreateTag(f.ctx, tag)
	assert.True(t, errors.Is(err, store.ErrAlreadyExists))

	_, err = f.s.GetTag(f.ctx, "tag-missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	missing := *tag
	missing.ID = "tag-missing"
	err = f.s.UpdateTag(f.ctx, &missing)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	// Deleting twice is fine.
	require.NoError(t, f.s.DeleteTag(f.ctx, tag.ID))
	require.NoError(t, f.s.DeleteTag(f.ctx, tag.ID))
}

func testCreateRenameDelete(f *fixture) {
	t := f.t
	tag := f.tag("W", "Hero", "")

	tags, err := f.s.ListTagsByWorkspace(f.ctx, "W")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Hero", tags[0].Name)
	assert.Equal(t, domain.CategoryCustom, tags[0].Category)
	assert.Equal(t, "#A8A8A8", tags[0].Color)

	name := "Protagonist"
	tag.Apply(domain.TagUpdateInput{Name: &name}, f.tick())
	require.NoError(t, f.s.UpdateTag(f.ctx, tag))

	got, err := f.s.GetTag(f.ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "Protagonist", got.Name)
	assert.True(t, got.LastEdit.After(got.CreateDate))

	require.NoError(t, f.s.DeleteTag(f.ctx, tag.ID))
	tags, err = f.s.ListTagsByWorkspace(f.ctx, "W")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func testListTagsByCategory(f *fixture) {
	t := f.t
	hero := f.tag("ws-1", "Hero", domain.CategoryCharacter)
	f.tag("ws-1", "Castle", domain.CategoryLocation)
	villain := f.tag("ws-1", "Villain", domain.CategoryCharacter)
	f.tag("ws-2", "Other", domain.CategoryCharacter)

	chars, err := f.s.ListTagsByCategory(f.ctx, "ws-1", domain.CategoryCharacter)
	require.NoError(t, err)
	require.Len(t, chars, 2)
	assert.Equal(t, hero.ID, chars[0].ID)
	assert.Equal(t, villain.ID, chars[1].ID)

	all, err := f.s.ListTagsByWorkspace(f.ctx, "ws-1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testFindTagByName(f *fixture) {
	t := f.t
	first := f.tag("ws-1", "Dark Forest", domain.CategoryLocation)
	f.tag("ws-1", "dark forest", domain.CategoryLocation)
	f.tag("ws-2", "Dark Forest", domain.CategoryLocation)

	got, err := f.s.FindTagByName(f.ctx, "ws-1", "DARK FOREST")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = f.s.FindTagByName(f.ctx, "ws-1", "Forest")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = f.s.FindTagByName(f.ctx, "", "Dark Forest")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	// Renaming moves the tag in the name index.
	name := "Sunny Meadow"
	first.Apply(domain.TagUpdateInput{Name: &name}, f.tick())
	require.NoError(t, f.s.UpdateTag(f.ctx, first))
	got, err = f.s.FindTagByName(f.ctx, "ws-1", "sunny meadow")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func testEmptyKeys(f *fixture) {
	t := f.t
	f.tag("ws-1", "Hero", "")

	tags, err := f.s.ListTagsByWorkspace(f.ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)

	stats, err := f.s.TagsWithStats(f.ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)

	g, err := f.s.TagGraph(f.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.EmptyTagGraph(), g)

	nts, err := f.s.ListNodeTagsByNode(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, nts)

	rels, err := f.s.ListTagRelationsForTag(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rels)

	n, err := f.s.CountNodeTagsByTag(f.ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testNodeTagUpsert(f *fixture) {
	t := f.t
	tag := f.tag("ws-1", "Hero", "")

	first := f.link("node-1", tag.ID)
	assert.Equal(t, 0, first.Mentions)

	again, err := f.s.CreateNodeTag(f.ctx, domain.NewNodeTag(domain.NodeTagCreateInput{
		NodeID:    "node-1",
		TagID:     tag.ID,
		Positions: []domain.TagPosition{{Start: 3, End: 7}},
	}, f.tick()))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, again.Mentions)
	assert.Equal(t, []domain.TagPosition{{Start: 3, End: 7}}, again.Positions)

	nts, err := f.s.ListNodeTagsByNode(f.ctx, "node-1")
	require.NoError(t, err)
	require.Len(t, nts, 1)
	assert.Equal(t, 1, nts[0].Mentions)

	byPair, err := f.s.GetNodeTagByPair(f.ctx, "node-1", tag.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byPair.ID)

	byPair.SetPositions([]domain.TagPosition{{Start: 0, End: 1}, {Start: 5, End: 6}, {Start: 9, End: 10}})
	require.NoError(t, f.s.UpdateNodeTag(f.ctx, byPair))
	got, err := f.s.GetNodeTag(f.ctx, byPair.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Mentions)
}

func testNodeTagDeletes(f *fixture) {
	t := f.t
	a := f.tag("ws-1", "A", "")
	b := f.tag("ws-1", "B", "")
	ntA := f.link("node-1", a.ID)
	f.link("node-1", b.ID)
	f.link("node-2", a.ID)

	require.NoError(t, f.s.DeleteNodeTag(f.ctx, ntA.ID))
	_, err := f.s.GetNodeTag(f.ctx, ntA.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	require.NoError(t, f.s.DeleteNodeTag(f.ctx, ntA.ID))

	require.NoError(t, f.s.DeleteNodeTagByPair(f.ctx, "node-2", a.ID))
	require.NoError(t, f.s.DeleteNodeTagByPair(f.ctx, "node-2", a.ID))
	n, err := f.s.CountNodeTagsByTag(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	removed, err := f.s.DeleteNodeTagsByNode(f.ctx, "node-1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	nts, err := f.s.ListNodeTagsByTag(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, nts)
}

func testReplaceNodeTags(f *fixture) {
	t := f.t
	a := f.tag("ws-1", "A", "")
	b := f.tag("ws-1", "B", "")
	c := f.tag("ws-1", "C", "")
	f.link("node-1", a.ID)
	f.link("node-1", b.ID)
	f.link("node-2", a.ID)

	next := []*domain.NodeTag{
		domain.NewNodeTag(domain.NodeTagCreateInput{NodeID: "node-1", TagID: b.ID}, f.tick()),
		domain.NewNodeTag(domain.NodeTagCreateInput{NodeID: "node-1", TagID: c.ID}, f.tick()),
		domain.NewNodeTag(domain.NodeTagCreateInput{NodeID: "node-1", TagID: c.ID}, f.tick()),
	}
	require.NoError(t, f.s.ReplaceNodeTags(f.ctx, "node-1", next))

	nts, err := f.s.ListNodeTagsByNode(f.ctx, "node-1")
	require.NoError(t, err)
	require.Len(t, nts, 2)
	assert.Equal(t, b.ID, nts[0].TagID)
	assert.Equal(t, 0, nts[0].Mentions)
	assert.Equal(t, c.ID, nts[1].TagID)
	assert.Equal(t, 1, nts[1].Mentions)

	// Other nodes are untouched.
	other, err := f.s.ListNodeTagsByNode(f.ctx, "node-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	wrongNode := []*domain.NodeTag{
		domain.NewNodeTag(domain.NodeTagCreateInput{NodeID: "node-9", TagID: a.ID}, f.tick()),
	}
	err = f.s.ReplaceNodeTags(f.ctx, "node-1", wrongNode)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	require.NoError(t, f.s.ReplaceNodeTags(f.ctx, "node-1", nil))
	nts, err = f.s.ListNodeTagsByNode(f.ctx, "node-1")
	require.NoError(t, err)
	assert.Empty(t, nts)
}

func testUsageCountRollUp(f *fixture) {
	t := f.t
	tag := f.tag("W", "T", "")
	for _, node := range []string{"n1", "n2", "n3"} {
		f.link(node, tag.ID)
	}

	stats, err := f.s.TagsWithStats(f.ctx, "W")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].UsageCount)

	f.link("n4", tag.ID)
	stats, err = f.s.TagsWithStats(f.ctx, "W")
	require.NoError(t, err)
	assert.Equal(t, 4, stats[0].UsageCount)

	n, err := f.s.CountNodeTagsByTag(f.ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func testStatsIdempotent(f *fixture) {
	t := f.t
	a := f.tag("ws-1", "A", "")
	b := f.tag("ws-1", "B", "")
	f.link("n1", a.ID)
	f.link("n2", a.ID)
	f.link("n1", b.ID)

	first, err := f.s.TagsWithStats(f.ctx, "ws-1")
	require.NoError(t, err)
	second, err := f.s.TagsWithStats(f.ctx, "ws-1")
	require.NoError(t, err)

	assert.Equal(t, usage(first), usage(second))
	assert.Equal(t, map[string]int{a.ID: 2, b.ID: 1}, usage(first))
}

func usage(stats []domain.TagWithStats) map[string]int {
	m := make(map[string]int, len(stats))
	for _, s := range stats {
		m[s.ID] = s.UsageCount
	}
	return m
}

func testRelationUpsert(f *fixture) {
	t := f.t
	a := f.tag("ws-1", "A", "")
	b := f.tag("ws-1", "B", "")
	rel := f.relate("ws-1", a.ID, b.ID)
	assert.Equal(t, domain.RelationRelated, rel.RelationType)
	assert.Equal(t, domain.DefaultWeight, rel.Weight)

	w := 80
	again, err := f.s.CreateTagRelation(f.ctx, domain.NewTagRelation(domain.TagRelationCreateInput{
		Workspace:    "ws-1",
		SourceTagID:  a.ID,
		TargetTagID:  b.ID,
		RelationType: domain.RelationKnows,
		Weight:       &w,
	}, f.tick()))
	require.NoError(t, err)
	assert.Equal(t, rel.ID, again.ID)
	assert.Equal(t, domain.RelationKnows, again.RelationType)
	assert.Equal(t, 80, again.Weight)

	between, err := f.s.GetTagRelationBetween(f.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, rel.ID, between.ID)
	assert.Equal(t, 80, between.Weight)

	// Direction matters.
	_, err = f.s.GetTagRelationBetween(f.ctx, b.ID, a.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	between.Description = "allies"
	require.NoError(t, f.s.UpdateTagRelation(f.ctx, between))
	got, err := f.s.GetTagRelation(f.ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, "allies", got.Description)

	require.NoError(t, f.s.DeleteTagRelationBetween(f.ctx, a.ID, b.ID))
	_, err = f.s.GetTagRelation(f.ctx, rel.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	require.NoError(t, f.s.DeleteTagRelationBetween(f.ctx, a.ID, b.ID))

	other := f.relate("ws-1", b.ID, a.ID)
	require.NoError(t, f.s.DeleteTagRelation(f.ctx, other.ID))
	rels, err := f.s.ListTagRelationsByWorkspace(f.ctx, "ws-1")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func testRelationBidirectional(f *fixture) {
	t := f.t
	a := f.tag("ws-1", "A", "")
	b := f.tag("ws-1", "B", "")
	c := f.tag("ws-1", "C", "")
	ab := f.relate("ws-1", a.ID, b.ID)
	self := f.relate("ws-1", c.ID, c.ID)

	for _, id := range []string{a.ID, b.ID} {
		rels, err := f.s.ListTagRelationsForTag(f.ctx, id)
		require.NoError(t, err)
		require.Len(t, rels, 1, "tag %s", id)
		assert.Equal(t, ab.ID, rels[0].ID)
	}

	rels, err := f.s.ListTagRelationsForTag(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, self.ID, rels[0].ID)
}

func testTagGraph(f *fixture) {
	t := f.t
	hero := f.tag("ws-1", "Hero", domain.CategoryCharacter)
	castle := f.tag("ws-1", "Castle", domain.CategoryLocation)
	f.tag("ws-2", "Elsewhere", "")
	f.link("n1", hero.ID)
	rel := f.relate("ws-1", hero.ID, castle.ID)

	g, err := f.s.TagGraph(f.ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, domain.GraphNode{
		ID:         hero.ID,
		Label:      "Hero",
		Color:      domain.CategoryCharacter.DefaultColor(),
		Category:   domain.CategoryCharacter,
		UsageCount: 1,
	}, g.Nodes[0])
	assert.Equal(t, 0, g.Nodes[1].UsageCount)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, domain.GraphEdge{
		ID:     rel.ID,
		Source: hero.ID,
		Target: castle.ID,
		Type:   domain.RelationRelated,
		Weight: domain.DefaultWeight,
	}, g.Edges[0])
}

func testDeleteTagCascades(f *fixture) {
	t := f.t
	a := f.tag("ws-1", "A", "")
	b := f.tag("ws-1", "B", "")
	c := f.tag("ws-1", "C", "")
	f.link("n1", a.ID)
	f.link("n2", a.ID)
	keep := f.link("n1", b.ID)
	f.relate("ws-1", a.ID, b.ID)
	f.relate("ws-1", c.ID, a.ID)
	bc := f.relate("ws-1", b.ID, c.ID)

	require.NoError(t, f.s.DeleteTag(f.ctx, a.ID))

	n, err := f.s.CountNodeTagsByTag(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	nts, err := f.s.ListNodeTagsByNode(f.ctx, "n1")
	require.NoError(t, err)
	require.Len(t, nts, 1)
	assert.Equal(t, keep.ID, nts[0].ID)

	rels, err := f.s.ListTagRelationsByWorkspace(f.ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, bc.ID, rels[0].ID)

	g, err := f.s.TagGraph(f.ctx, "ws-1")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}

func testChangeEvents(f *fixture) {
	t := f.t
	a := f.tag("ws-1", "A", "")
	b := f.tag("ws-1", "B", "")
	f.link("n1", a.ID)
	f.relate("ws-1", a.ID, b.ID)

	events := f.rec.Events()
	require.Len(t, events, 4)
	assert.Equal(t, store.ChangeEvent{Tables: []store.Table{store.TableTags}, Op: store.OpCreate, IDs: []string{a.ID}}, events[0])
	assert.Equal(t, []store.Table{store.TableNodeTags}, events[2].Tables)
	assert.Equal(t, []store.Table{store.TableTagRelations}, events[3].Tables)

	f.rec.Reset()
	require.NoError(t, f.s.DeleteTag(f.ctx, a.ID))
	events = f.rec.Events()
	require.Len(t, events, 1, "a cascade commits as one event")
	assert.Equal(t, store.OpDelete, events[0].Op)
	assert.ElementsMatch(t, store.AllTables, events[0].Tables)

	// No-op deletes stay silent.
	f.rec.Reset()
	require.NoError(t, f.s.DeleteTag(f.ctx, a.ID))
	require.NoError(t, f.s.DeleteNodeTagByPair(f.ctx, "n1", a.ID))
	assert.Empty(t, f.rec.Events())
}

func testPositionsRoundTrip(f *fixture) {
	t := f.t
	tag := f.tag("ws-1", "Hero", "")
	positions := []domain.TagPosition{{Start: 0, End: 4}, {Start: 20, End: 24}}

	nt, err := f.s.CreateNodeTag(f.ctx, domain.NewNodeTag(domain.NodeTagCreateInput{
		NodeID:    "n1",
		TagID:     tag.ID,
		Mentions:  len(positions),
		Positions: positions,
	}, f.tick()))
	require.NoError(t, err)
	assert.Equal(t, 2, nt.Mentions)

	got, err := f.s.GetNodeTag(f.ctx, nt.ID)
	require.NoError(t, err)
	assert.Equal(t, positions, got.Positions)
	assert.True(t, nt.CreateDate.Equal(got.CreateDate))
}
