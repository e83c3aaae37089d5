package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkwell/tagstore/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspace}/tags",
		Summary:     "List tags",
		Description: "Returns the workspace's tags, optionally filtered by category",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspace}/tags/search",
		Summary:     "Search tags",
		Description: "Case-insensitive substring match on tag names. A blank query returns no tags.",
		Tags:        []string{"Tags"},
	}, s.handleSearchTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/workspaces/{workspace}/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag. Category defaults to custom and color to the category's color.",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspace}/tags/resolve",
		Summary:     "Get or create tag",
		Description: "Returns the tag with this name (case-insensitive), creating it if missing",
		Tags:        []string{"Tags"},
	}, s.handleResolveTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTagsWithStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspace}/stats",
		Summary:     "Tag statistics",
		Description: "Returns every tag in the workspace with its usage count",
		Tags:        []string{"Tags"},
	}, s.handleTagStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagGraph",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspace}/graph",
		Summary:     "Tag graph",
		Description: "Returns the workspace's tags as graph nodes and its relations as edges",
		Tags:        []string{"Tags"},
	}, s.handleTagGraph)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Applies a partial update. Changing category also moves a default color to the new category's default.",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}",
		Summary:       "Delete tag",
		Description:   "Deletes a tag with its node associations and relations",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagNodes",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/nodes",
		Summary:     "Get tag nodes",
		Description: "Returns IDs of nodes carrying this tag",
		Tags:        []string{"Tags"},
	}, s.handleGetTagNodes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagUsage",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/usage",
		Summary:     "Get tag usage",
		Description: "Returns how many node associations reference this tag",
		Tags:        []string{"Tags"},
	}, s.handleGetTagUsage)
}

// === DTOs ===

// WorkspaceInput addresses a workspace.
type WorkspaceInput struct {
	Workspace string `path:"workspace" doc:"Workspace ID"`
}

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	Workspace string `path:"workspace" doc:"Workspace ID"`
	Category  string `query:"category" doc:"Only tags of this category"`
}

// SearchTagsInput contains parameters for searching tags.
type SearchTagsInput struct {
	Workspace string `path:"workspace" doc:"Workspace ID"`
	Query     string `query:"q" doc:"Substring to match against tag names"`
}

// TagListOutput wraps a list of tags for Huma.
type TagListOutput struct {
	Body []domain.Tag
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name        string          `json:"name" doc:"Tag name"`
	Color       string          `json:"color,omitempty" doc:"Display color as #RRGGBB"`
	Category    domain.Category `json:"category,omitempty" doc:"character, location, item, event, theme or custom"`
	Icon        string          `json:"icon,omitempty" doc:"Icon name"`
	Description string          `json:"description,omitempty" doc:"Free-form description"`
	Metadata    string          `json:"metadata,omitempty" doc:"Opaque JSON metadata"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Workspace string `path:"workspace" doc:"Workspace ID"`
	Body      CreateTagRequest
}

// TagOutput wraps a tag for Huma.
type TagOutput struct {
	Body *domain.Tag
}

// ResolveTagRequest is the request body for get-or-create.
type ResolveTagRequest struct {
	Name     string          `json:"name" doc:"Tag name"`
	Category domain.Category `json:"category,omitempty" doc:"Category used if the tag is created"`
}

// ResolveTagInput wraps the resolve request for Huma.
type ResolveTagInput struct {
	Workspace string `path:"workspace" doc:"Workspace ID"`
	Body      ResolveTagRequest
}

// ResolveTagResponse reports the tag and whether it was just created.
type ResolveTagResponse struct {
	Tag     *domain.Tag `json:"tag" doc:"The resolved tag"`
	Created bool        `json:"created" doc:"True if the tag did not exist before"`
}

// ResolveTagOutput wraps the resolve response for Huma.
type ResolveTagOutput struct {
	Body ResolveTagResponse
}

// TagStatsOutput wraps tags with usage counts for Huma.
type TagStatsOutput struct {
	Body []domain.TagWithStats
}

// TagGraphOutput wraps the tag graph for Huma.
type TagGraphOutput struct {
	Body domain.TagGraph
}

// TagIDInput addresses a tag.
type TagIDInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body domain.TagUpdateInput
}

// NodeIDsOutput wraps a list of node IDs for Huma.
type NodeIDsOutput struct {
	Body []string
}

// UsageResponse carries a usage count.
type UsageResponse struct {
	TagID string `json:"tag_id" doc:"Tag ID"`
	Count int    `json:"count" doc:"Number of node associations"`
}

// UsageOutput wraps the usage response for Huma.
type UsageOutput struct {
	Body UsageResponse
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*TagListOutput, error) {
	var (
		tags []domain.Tag
		err  error
	)
	if input.Category != "" {
		tags, err = s.services.Tag.ListTagsByCategory(ctx, input.Workspace, domain.Category(input.Category))
	} else {
		tags, err = s.services.Tag.ListTags(ctx, input.Workspace)
	}
	if err != nil {
		return nil, err
	}
	return &TagListOutput{Body: nonNil(tags)}, nil
}

func (s *Server) handleSearchTags(ctx context.Context, input *SearchTagsInput) (*TagListOutput, error) {
	tags, err := s.services.Tag.SearchTags(ctx, input.Workspace, input.Query)
	if err != nil {
		return nil, err
	}
	return &TagListOutput{Body: nonNil(tags)}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	tag, err := s.services.Tag.CreateTag(ctx, domain.TagCreateInput{
		Workspace:   input.Workspace,
		Name:        input.Body.Name,
		Color:       input.Body.Color,
		Category:    input.Body.Category,
		Icon:        input.Body.Icon,
		Description: input.Body.Description,
		Metadata:    input.Body.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleResolveTag(ctx context.Context, input *ResolveTagInput) (*ResolveTagOutput, error) {
	tag, created, err := s.services.Tag.GetOrCreateTag(ctx, input.Workspace, input.Body.Name, input.Body.Category)
	if err != nil {
		return nil, err
	}
	return &ResolveTagOutput{Body: ResolveTagResponse{Tag: tag, Created: created}}, nil
}

func (s *Server) handleTagStats(ctx context.Context, input *WorkspaceInput) (*TagStatsOutput, error) {
	stats, err := s.services.Tag.GetTagsWithStats(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	return &TagStatsOutput{Body: nonNil(stats)}, nil
}

func (s *Server) handleTagGraph(ctx context.Context, input *WorkspaceInput) (*TagGraphOutput, error) {
	graph, err := s.services.Tag.GetTagGraph(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	return &TagGraphOutput{Body: graph}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagIDInput) (*TagOutput, error) {
	tag, err := s.services.Tag.GetTag(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	tag, err := s.services.Tag.UpdateTag(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagIDInput) (*struct{}, error) {
	return nil, s.services.Tag.DeleteTag(ctx, input.ID)
}

func (s *Server) handleGetTagNodes(ctx context.Context, input *TagIDInput) (*NodeIDsOutput, error) {
	nodes, err := s.services.Tag.NodesWithTag(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &NodeIDsOutput{Body: nonNil(nodes)}, nil
}

func (s *Server) handleGetTagUsage(ctx context.Context, input *TagIDInput) (*UsageOutput, error) {
	count, err := s.services.Tag.TagUsageCount(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UsageOutput{Body: UsageResponse{TagID: input.ID, Count: count}}, nil
}

// nonNil makes empty results encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
