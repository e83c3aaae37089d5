package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/inkwell/tagstore/internal/id"
)

// NewTag builds a tag from creation input. Category defaults to custom and
// color defaults to the resolved category's color.
func NewTag(in TagCreateInput, now time.Time) *Tag {
	now = now.UTC()
	category := in.Category
	if category == "" {
		category = CategoryCustom
	}
	color := in.Color
	if color == "" {
		color = category.DefaultColor()
	}
	return &Tag{
		ID:          id.MustGenerate(id.PrefixTag),
		Workspace:   in.Workspace,
		Name:        strings.TrimSpace(in.Name),
		Color:       color,
		Category:    category,
		Icon:        in.Icon,
		Description: in.Description,
		Metadata:    in.Metadata,
		CreateDate:  now,
		LastEdit:    now,
	}
}

// NewNodeTag builds a node/tag association. Mentions default to 0; callers
// that know the mention count pass it explicitly.
func NewNodeTag(in NodeTagCreateInput, now time.Time) *NodeTag {
	return &NodeTag{
		ID:         id.MustGenerate(id.PrefixNodeTag),
		NodeID:     in.NodeID,
		TagID:      in.TagID,
		Mentions:   in.Mentions,
		Positions:  slices.Clone(in.Positions),
		CreateDate: now.UTC(),
	}
}

// NewTagRelation builds a directed relation. Type defaults to related and
// weight to DefaultWeight; weight is always clamped.
func NewTagRelation(in TagRelationCreateInput, now time.Time) *TagRelation {
	relType := in.RelationType
	if relType == "" {
		relType = RelationRelated
	}
	weight := DefaultWeight
	if in.Weight != nil {
		weight = ClampWeight(*in.Weight)
	}
	return &TagRelation{
		ID:           id.MustGenerate(id.PrefixTagRelation),
		Workspace:    in.Workspace,
		SourceTagID:  in.SourceTagID,
		TargetTagID:  in.TargetTagID,
		RelationType: relType,
		Weight:       weight,
		Description:  in.Description,
		CreateDate:   now.UTC(),
	}
}
