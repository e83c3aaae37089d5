package domain

import (
	"slices"
	"strings"
	"time"
)

// RelationType describes how a source tag relates to a target tag.
type RelationType string

// Relation types.
const (
	RelationRelated  RelationType = "related"
	RelationParent   RelationType = "parent"
	RelationChild    RelationType = "child"
	RelationConflict RelationType = "conflict"
	RelationAlias    RelationType = "alias"
	RelationBelongs  RelationType = "belongs"
	RelationOwns     RelationType = "owns"
	RelationKnows    RelationType = "knows"
	RelationCustom   RelationType = "custom"
)

// RelationTypes lists every valid relation type.
var RelationTypes = []RelationType{
	RelationRelated,
	RelationParent,
	RelationChild,
	RelationConflict,
	RelationAlias,
	RelationBelongs,
	RelationOwns,
	RelationKnows,
	RelationCustom,
}

// Valid reports whether r is a known relation type.
func (r RelationType) Valid() bool {
	return slices.Contains(RelationTypes, r)
}

// Relation weight bounds and default.
const (
	MinWeight     = 0
	MaxWeight     = 100
	DefaultWeight = 50
)

// ClampWeight forces w into [MinWeight, MaxWeight].
func ClampWeight(w int) int {
	return max(MinWeight, min(MaxWeight, w))
}

// TagRelation is a directed, typed, weighted edge between two tags of a workspace.
type TagRelation struct {
	ID           string       `json:"id"`
	Workspace    string       `json:"workspace" validate:"required"`
	SourceTagID  string       `json:"source_tag_id" validate:"required"`
	TargetTagID  string       `json:"target_tag_id" validate:"required"`
	RelationType RelationType `json:"relation_type" validate:"relationtype"`
	Weight       int          `json:"weight" validate:"gte=0,lte=100"`
	Description  string       `json:"description,omitempty" validate:"max=500"`
	CreateDate   time.Time    `json:"create_date"`
}

// TagRelationCreateInput holds the fields for creating a relation.
// A nil Weight means "use the default"; an explicit zero is kept.
type TagRelationCreateInput struct {
	Workspace    string       `json:"workspace" validate:"required"`
	SourceTagID  string       `json:"source_tag_id" validate:"required"`
	TargetTagID  string       `json:"target_tag_id" validate:"required"`
	RelationType RelationType `json:"relation_type,omitempty" validate:"omitempty,relationtype"`
	Weight       *int         `json:"weight,omitempty"`
	Description  string       `json:"description,omitempty" validate:"max=500"`
}

// TagRelationUpdateInput holds a partial relation update.
type TagRelationUpdateInput struct {
	RelationType *RelationType `json:"relation_type,omitempty" validate:"omitempty,relationtype"`
	Weight       *int          `json:"weight,omitempty"`
	Description  *string       `json:"description,omitempty" validate:"omitempty,max=500"`
}

// Apply merges the update into the relation, clamping the weight.
func (r *TagRelation) Apply(in TagRelationUpdateInput) {
	if in.RelationType != nil {
		r.RelationType = *in.RelationType
	}
	if in.Weight != nil {
		r.Weight = ClampWeight(*in.Weight)
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
}

// Involves reports whether the relation has tagID at either end.
func (r *TagRelation) Involves(tagID string) bool {
	return r.SourceTagID == tagID || r.TargetTagID == tagID
}

// SortTagRelations orders relations by creation time, then id.
func SortTagRelations(rels []TagRelation) {
	slices.SortFunc(rels, func(a, b TagRelation) int {
		if c := a.CreateDate.Compare(b.CreateDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
