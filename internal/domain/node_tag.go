package domain

import (
	"slices"
	"strings"
	"time"
)

// TagPosition is a [Start, End) character range where a tag is mentioned in a node's content.
type TagPosition struct {
	Start int `json:"start" validate:"gte=0"`
	End   int `json:"end" validate:"gtefield=Start"`
}

// NodeTag associates a content node (chapter, scene, wiki entry) with a tag.
type NodeTag struct {
	ID         string        `json:"id"`
	NodeID     string        `json:"node_id" validate:"required"`
	TagID      string        `json:"tag_id" validate:"required"`
	Mentions   int           `json:"mentions" validate:"gte=0"`
	Positions  []TagPosition `json:"positions,omitempty" validate:"omitempty,dive"`
	CreateDate time.Time     `json:"create_date"`
}

// NodeTagCreateInput holds the fields for associating a tag with a node.
type NodeTagCreateInput struct {
	NodeID    string        `json:"node_id" validate:"required"`
	TagID     string        `json:"tag_id" validate:"required"`
	Mentions  int           `json:"mentions,omitempty" validate:"gte=0"`
	Positions []TagPosition `json:"positions,omitempty" validate:"omitempty,dive"`
}

// SetPositions replaces the mention positions and recounts mentions from them.
func (nt *NodeTag) SetPositions(positions []TagPosition) {
	nt.Positions = slices.Clone(positions)
	nt.Mentions = len(positions)
}

// PairKey returns the compound (node, tag) key used for uniqueness lookups.
func PairKey(nodeID, tagID string) string {
	return nodeID + ":" + tagID
}

// SortNodeTags orders associations by creation time, then id.
func SortNodeTags(nts []NodeTag) {
	slices.SortFunc(nts, func(a, b NodeTag) int {
		if c := a.CreateDate.Compare(b.CreateDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
