package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestNewTag_DefaultsCategoryAndColor(t *testing.T) {
	tag := NewTag(TagCreateInput{Workspace: "ws-1", Name: "  Hero  "}, fixedNow)

	assert.True(t, strings.HasPrefix(tag.ID, "tag-"))
	assert.Equal(t, "Hero", tag.Name)
	assert.Equal(t, CategoryCustom, tag.Category)
	assert.Equal(t, "#A8A8A8", tag.Color)
	assert.Equal(t, fixedNow, tag.CreateDate)
	assert.Equal(t, fixedNow, tag.LastEdit)
}

func TestNewTag_ColorFollowsResolvedCategory(t *testing.T) {
	for _, c := range Categories {
		t.Run(string(c), func(t *testing.T) {
			tag := NewTag(TagCreateInput{Workspace: "ws-1", Name: "x", Category: c}, fixedNow)
			assert.Equal(t, c, tag.Category)
			assert.Equal(t, c.DefaultColor(), tag.Color)
		})
	}
}

func TestNewTag_ExplicitColorWins(t *testing.T) {
	tag := NewTag(TagCreateInput{
		Workspace: "ws-1",
		Name:      "Castle",
		Category:  CategoryLocation,
		Color:     "#123456",
	}, fixedNow)

	assert.Equal(t, "#123456", tag.Color)
	assert.Equal(t, CategoryLocation, tag.Category)
}

func TestNewNodeTag_Defaults(t *testing.T) {
	nt := NewNodeTag(NodeTagCreateInput{NodeID: "node-1", TagID: "tag-1"}, fixedNow)

	assert.True(t, strings.HasPrefix(nt.ID, "ntag-"))
	assert.Equal(t, 0, nt.Mentions)
	assert.Empty(t, nt.Positions)
	assert.Equal(t, fixedNow, nt.CreateDate)
}

func TestNewNodeTag_PositionsKeepMentions(t *testing.T) {
	positions := []TagPosition{{Start: 0, End: 4}, {Start: 10, End: 14}}
	nt := NewNodeTag(NodeTagCreateInput{NodeID: "node-1", TagID: "tag-1", Positions: positions}, fixedNow)

	assert.Equal(t, 0, nt.Mentions, "positions alone do not set mentions")
	assert.Len(t, nt.Positions, 2)

	counted := NewNodeTag(NodeTagCreateInput{NodeID: "node-1", TagID: "tag-1", Mentions: 2, Positions: positions}, fixedNow)
	assert.Equal(t, 2, counted.Mentions)

	// The builder must not alias the caller's slice.
	positions[0].Start = 99
	assert.Equal(t, 0, nt.Positions[0].Start)
}

func TestNewTagRelation_Defaults(t *testing.T) {
	rel := NewTagRelation(TagRelationCreateInput{
		Workspace:   "ws-1",
		SourceTagID: "tag-a",
		TargetTagID: "tag-b",
	}, fixedNow)

	assert.True(t, strings.HasPrefix(rel.ID, "rel-"))
	assert.Equal(t, RelationRelated, rel.RelationType)
	assert.Equal(t, DefaultWeight, rel.Weight)
}

func TestNewTagRelation_WeightClamped(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		w := tt.in
		rel := NewTagRelation(TagRelationCreateInput{
			Workspace:   "ws-1",
			SourceTagID: "a",
			TargetTagID: "b",
			Weight:      &w,
		}, fixedNow)
		assert.Equal(t, tt.want, rel.Weight, "weight %d", tt.in)
	}
}

func TestTag_Apply_RecolorsOnCategoryChange(t *testing.T) {
	tag := NewTag(TagCreateInput{Workspace: "ws-1", Name: "Sword", Category: CategoryCharacter}, fixedNow)
	item := CategoryItem

	later := fixedNow.Add(time.Minute)
	tag.Apply(TagUpdateInput{Category: &item}, later)

	assert.Equal(t, CategoryItem, tag.Category)
	assert.Equal(t, CategoryItem.DefaultColor(), tag.Color)
	assert.Equal(t, later, tag.LastEdit)
}

func TestTag_Apply_KeepsCustomColorOnCategoryChange(t *testing.T) {
	tag := NewTag(TagCreateInput{Workspace: "ws-1", Name: "Sword", Color: "#000000"}, fixedNow)
	item := CategoryItem

	tag.Apply(TagUpdateInput{Category: &item}, fixedNow)

	assert.Equal(t, "#000000", tag.Color)
}

func TestTag_Apply_Rename(t *testing.T) {
	tag := NewTag(TagCreateInput{Workspace: "ws-1", Name: "Hero"}, fixedNow)
	name := " Protagonist "

	tag.Apply(TagUpdateInput{Name: &name}, fixedNow.Add(time.Second))

	assert.Equal(t, "Protagonist", tag.Name)
	assert.True(t, tag.LastEdit.After(tag.CreateDate))
}

func TestTagRelation_Apply(t *testing.T) {
	rel := NewTagRelation(TagRelationCreateInput{Workspace: "ws-1", SourceTagID: "a", TargetTagID: "b"}, fixedNow)
	knows := RelationKnows
	w := 900
	desc := "old friends"

	rel.Apply(TagRelationUpdateInput{RelationType: &knows, Weight: &w, Description: &desc})

	assert.Equal(t, RelationKnows, rel.RelationType)
	assert.Equal(t, MaxWeight, rel.Weight)
	assert.Equal(t, "old friends", rel.Description)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, FoldName("STRASSE"), FoldName("straße"))
	assert.Equal(t, "hero", FoldName("  HeRo "))

	tag := Tag{Name: "Dark Forest"}
	assert.True(t, tag.NameContains("FOREST"))
	assert.False(t, tag.NameContains("castle"))
	assert.True(t, tag.NameContains("k f"))
	assert.False(t, tag.NameContains("Forest "), "query spaces are significant")
}

func TestSortTags_ByCreateDateThenID(t *testing.T) {
	tags := []Tag{
		{ID: "b", CreateDate: fixedNow},
		{ID: "c", CreateDate: fixedNow.Add(-time.Hour)},
		{ID: "a", CreateDate: fixedNow},
	}

	SortTags(tags)

	ids := make([]string, len(tags))
	for i, tag := range tags {
		ids[i] = tag.ID
	}
	require.Equal(t, []string{"c", "a", "b"}, ids)
}
