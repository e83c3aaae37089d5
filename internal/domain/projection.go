package domain

// TagWithStats is a tag annotated with the number of nodes referencing it.
type TagWithStats struct {
	Tag
	UsageCount int `json:"usage_count"`
}

// GraphNode is a tag as drawn in the tag graph.
type GraphNode struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Color      string   `json:"color"`
	Category   Category `json:"category"`
	UsageCount int      `json:"usage_count"`
}

// GraphEdge is a relation as drawn in the tag graph.
type GraphEdge struct {
	ID     string       `json:"id"`
	Source string       `json:"source"`
	Target string       `json:"target"`
	Type   RelationType `json:"type"`
	Weight int          `json:"weight"`
}

// TagGraph is the flat node/edge projection of a workspace's tags and relations.
type TagGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EmptyTagGraph returns a graph whose slices encode as [] rather than null.
func EmptyTagGraph() TagGraph {
	return TagGraph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
}

// ProjectTagsWithStats annotates each tag with its usage count. Tags missing
// from counts have zero usage. The result preserves the order of tags.
func ProjectTagsWithStats(tags []Tag, counts map[string]int) []TagWithStats {
	out := make([]TagWithStats, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagWithStats{Tag: t, UsageCount: counts[t.ID]})
	}
	return out
}

// ProjectTagGraph builds the graph view. Relations are projected as-is, even
// when an endpoint no longer resolves to a tag.
func ProjectTagGraph(tags []Tag, relations []TagRelation, counts map[string]int) TagGraph {
	g := TagGraph{
		Nodes: make([]GraphNode, 0, len(tags)),
		Edges: make([]GraphEdge, 0, len(relations)),
	}
	for _, t := range tags {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:         t.ID,
			Label:      t.Name,
			Color:      t.Color,
			Category:   t.Category,
			UsageCount: counts[t.ID],
		})
	}
	for _, r := range relations {
		g.Edges = append(g.Edges, GraphEdge{
			ID:     r.ID,
			Source: r.SourceTagID,
			Target: r.TargetTagID,
			Type:   r.RelationType,
			Weight: r.Weight,
		})
	}
	return g
}
