package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/store"
	"github.com/inkwell/tagstore/internal/validation"
)

// TagService orchestrates tag, node association and relation operations.
// Inputs are validated here; the store only persists.
type TagService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TagService{
		store:     store,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// CreateTag creates a tag, filling category and color defaults.
func (s *TagService) CreateTag(ctx context.Context, in domain.TagCreateInput) (*domain.Tag, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	tag := domain.NewTag(in, s.now())
	if err := s.validator.Validate(tag); err != nil {
		return nil, err
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag created",
		"tag_id", tag.ID,
		"workspace", tag.Workspace,
		"name", tag.Name,
		"category", tag.Category,
	)
	return tag, nil
}

// GetTag returns a tag by ID.
func (s *TagService) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, id)
	if err != nil {
		return nil, describeNotFound(err, "tag %s not found", id)
	}
	return tag, nil
}

// UpdateTag applies a partial update and stamps LastEdit.
// An empty update returns the stored tag unchanged.
func (s *TagService) UpdateTag(ctx context.Context, id string, in domain.TagUpdateInput) (*domain.Tag, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	tag, err := s.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return tag, nil
	}

	tag.Apply(in, s.now())
	if err := s.validator.Validate(tag); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag updated", "tag_id", tag.ID, "name", tag.Name)
	return tag, nil
}

// DeleteTag removes a tag along with its node associations and relations.
func (s *TagService) DeleteTag(ctx context.Context, id string) error {
	if err := s.store.DeleteTag(ctx, id); err != nil {
		return err
	}
	s.logger.Info("tag deleted", "tag_id", id)
	return nil
}

// ListTags returns every tag in a workspace.
func (s *TagService) ListTags(ctx context.Context, workspace string) ([]domain.Tag, error) {
	return s.store.ListTagsByWorkspace(ctx, workspace)
}

// ListTagsByCategory returns the workspace's tags of one category.
func (s *TagService) ListTagsByCategory(ctx context.Context, workspace string, category domain.Category) ([]domain.Tag, error) {
	if !category.Valid() {
		return nil, errors.Validationf("unknown category %q", category)
	}
	return s.store.ListTagsByCategory(ctx, workspace, category)
}

// SearchTags returns the workspace's tags whose name contains query,
// ignoring case. A blank query matches nothing.
func (s *TagService) SearchTags(ctx context.Context, workspace, query string) ([]domain.Tag, error) {
	if workspace == "" || strings.TrimSpace(query) == "" {
		return []domain.Tag{}, nil
	}

	tags, err := s.store.ListTagsByWorkspace(ctx, workspace)
	if err != nil {
		return nil, err
	}
	return filterByName(tags, query), nil
}

func filterByName(tags []domain.Tag, query string) []domain.Tag {
	matched := make([]domain.Tag, 0, len(tags))
	for i := range tags {
		if tags[i].NameContains(query) {
			matched = append(matched, tags[i])
		}
	}
	return matched
}

// GetOrCreateTag returns the workspace's tag with this name (ignoring case),
// creating it in category when none exists. The bool reports creation.
func (s *TagService) GetOrCreateTag(ctx context.Context, workspace, name string, category domain.Category) (*domain.Tag, bool, error) {
	existing, err := s.store.FindTagByName(ctx, workspace, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	if category == "" {
		category = domain.CategoryCustom
	}
	tag, err := s.CreateTag(ctx, domain.TagCreateInput{
		Workspace: workspace,
		Name:      name,
		Category:  category,
	})
	if err != nil {
		return nil, false, err
	}
	return tag, true, nil
}

// GetTagsWithStats returns the workspace's tags annotated with usage counts.
func (s *TagService) GetTagsWithStats(ctx context.Context, workspace string) ([]domain.TagWithStats, error) {
	return s.store.TagsWithStats(ctx, workspace)
}

// GetTagGraph returns the workspace's tags and relations as a graph.
func (s *TagService) GetTagGraph(ctx context.Context, workspace string) (domain.TagGraph, error) {
	return s.store.TagGraph(ctx, workspace)
}

// describeNotFound replaces a bare store miss with a message naming the
// missing row. Other errors pass through unchanged.
func describeNotFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return errors.NotFoundf(format, args...)
	}
	return err
}
