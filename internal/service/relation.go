package service

import (
	"context"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/store"
)

// CreateTagRelation relates source to target. If the pair is already
// related, the stored relation is updated; a type or weight left out of in
// keeps its stored value.
func (s *TagService) CreateTagRelation(ctx context.Context, in domain.TagRelationCreateInput) (*domain.TagRelation, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	rel := domain.NewTagRelation(in, s.now())

	existing, err := s.store.GetTagRelationBetween(ctx, in.SourceTagID, in.TargetTagID)
	switch {
	case err == nil:
		if in.RelationType == "" {
			rel.RelationType = existing.RelationType
		}
		if in.Weight == nil {
			rel.Weight = existing.Weight
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if err := s.validator.Validate(rel); err != nil {
		return nil, err
	}
	stored, err := s.store.CreateTagRelation(ctx, rel)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag relation saved",
		"relation_id", stored.ID,
		"source_tag_id", stored.SourceTagID,
		"target_tag_id", stored.TargetTagID,
		"type", stored.RelationType,
		"weight", stored.Weight,
	)
	return stored, nil
}

// UpdateTagRelation applies a partial update; the weight is clamped to [0, 100].
func (s *TagService) UpdateTagRelation(ctx context.Context, id string, in domain.TagRelationUpdateInput) (*domain.TagRelation, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	rel, err := s.GetTagRelation(ctx, id)
	if err != nil {
		return nil, err
	}
	rel.Apply(in)
	if err := s.validator.Validate(rel); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTagRelation(ctx, rel); err != nil {
		return nil, err
	}

	s.logger.Info("tag relation updated", "relation_id", rel.ID, "type", rel.RelationType, "weight", rel.Weight)
	return rel, nil
}

// DeleteTagRelation removes a relation by ID.
func (s *TagService) DeleteTagRelation(ctx context.Context, id string) error {
	if err := s.store.DeleteTagRelation(ctx, id); err != nil {
		return err
	}
	s.logger.Info("tag relation deleted", "relation_id", id)
	return nil
}

// DeleteTagRelationBetween removes the relation from source to target, if any.
// The reverse direction is untouched.
func (s *TagService) DeleteTagRelationBetween(ctx context.Context, sourceTagID, targetTagID string) error {
	if err := s.store.DeleteTagRelationBetween(ctx, sourceTagID, targetTagID); err != nil {
		return err
	}
	s.logger.Info("tag relation deleted", "source_tag_id", sourceTagID, "target_tag_id", targetTagID)
	return nil
}

// GetTagRelation returns a relation by ID.
func (s *TagService) GetTagRelation(ctx context.Context, id string) (*domain.TagRelation, error) {
	rel, err := s.store.GetTagRelation(ctx, id)
	if err != nil {
		return nil, describeNotFound(err, "tag relation %s not found", id)
	}
	return rel, nil
}

// ListTagRelations returns every relation in a workspace.
func (s *TagService) ListTagRelations(ctx context.Context, workspace string) ([]domain.TagRelation, error) {
	return s.store.ListTagRelationsByWorkspace(ctx, workspace)
}

// TagRelationsForTag returns relations with the tag at either end.
func (s *TagService) TagRelationsForTag(ctx context.Context, tagID string) ([]domain.TagRelation, error) {
	return s.store.ListTagRelationsForTag(ctx, tagID)
}
