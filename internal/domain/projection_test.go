package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectTagsWithStats(t *testing.T) {
	tags := []Tag{{ID: "t1", Name: "Hero"}, {ID: "t2", Name: "Villain"}}
	counts := map[string]int{"t1": 3}

	got := ProjectTagsWithStats(tags, counts)

	require.Len(t, got, 2)
	assert.Equal(t, "Hero", got[0].Name)
	assert.Equal(t, 3, got[0].UsageCount)
	assert.Equal(t, 0, got[1].UsageCount)
}

func TestProjectTagsWithStats_EmptyIsNonNil(t *testing.T) {
	got := ProjectTagsWithStats(nil, nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestProjectTagGraph(t *testing.T) {
	tags := []Tag{
		{ID: "t1", Name: "Hero", Color: "#FF6B6B", Category: CategoryCharacter},
		{ID: "t2", Name: "Castle", Color: "#4ECDC4", Category: CategoryLocation},
	}
	rels := []TagRelation{
		{ID: "r1", SourceTagID: "t1", TargetTagID: "t2", RelationType: RelationBelongs, Weight: 70},
	}

	g := ProjectTagGraph(tags, rels, map[string]int{"t2": 5})

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, GraphNode{ID: "t1", Label: "Hero", Color: "#FF6B6B", Category: CategoryCharacter}, g.Nodes[0])
	assert.Equal(t, 5, g.Nodes[1].UsageCount)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, GraphEdge{ID: "r1", Source: "t1", Target: "t2", Type: RelationBelongs, Weight: 70}, g.Edges[0])
}

func TestEmptyTagGraph_EncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(EmptyTagGraph())

	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(data))
}
