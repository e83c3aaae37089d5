package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkwell/tagstore/internal/domain"
)

func (s *Server) registerRelationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRelations",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{workspace}/relations",
		Summary:     "List relations",
		Description: "Returns every tag relation in the workspace",
		Tags:        []string{"Relations"},
	}, s.handleListRelations)

	huma.Register(s.api, huma.Operation{
		OperationID: "createRelation",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{workspace}/relations",
		Summary:     "Create relation",
		Description: "Relates two tags. Relating an already related pair updates the stored relation.",
		Tags:        []string{"Relations"},
	}, s.handleCreateRelation)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagRelations",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/relations",
		Summary:     "Get tag relations",
		Description: "Returns relations where the tag is source or target",
		Tags:        []string{"Relations"},
	}, s.handleGetTagRelations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteRelationBetween",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}/relations/{target}",
		Summary:       "Delete relation between tags",
		Description:   "Deletes the relation from this tag to target, if any. The reverse direction is kept.",
		Tags:          []string{"Relations"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteRelationBetween)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRelation",
		Method:      http.MethodGet,
		Path:        "/api/v1/relations/{id}",
		Summary:     "Get relation",
		Description: "Returns a relation by ID",
		Tags:        []string{"Relations"},
	}, s.handleGetRelation)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRelation",
		Method:      http.MethodPatch,
		Path:        "/api/v1/relations/{id}",
		Summary:     "Update relation",
		Description: "Applies a partial update. Weight is clamped to 0..100.",
		Tags:        []string{"Relations"},
	}, s.handleUpdateRelation)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteRelation",
		Method:        http.MethodDelete,
		Path:          "/api/v1/relations/{id}",
		Summary:       "Delete relation",
		Description:   "Deletes a relation by ID",
		Tags:          []string{"Relations"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteRelation)
}

// === DTOs ===

// RelationListOutput wraps a list of relations for Huma.
type RelationListOutput struct {
	Body []domain.TagRelation
}

// RelationOutput wraps a relation for Huma.
type RelationOutput struct {
	Body *domain.TagRelation
}

// CreateRelationRequest is the request body for relating two tags.
type CreateRelationRequest struct {
	SourceTagID  string              `json:"source_tag_id" doc:"Source tag ID"`
	TargetTagID  string              `json:"target_tag_id" doc:"Target tag ID"`
	RelationType domain.RelationType `json:"relation_type,omitempty" doc:"related, parent, child, conflict, alias, belongs, owns, knows or custom"`
	Weight       *int                `json:"weight,omitempty" doc:"Strength 0..100, default 50"`
	Description  string              `json:"description,omitempty" doc:"Free-form description"`
}

// CreateRelationInput wraps the create request for Huma.
type CreateRelationInput struct {
	Workspace string `path:"workspace" doc:"Workspace ID"`
	Body      CreateRelationRequest
}

// RelationIDInput addresses a relation.
type RelationIDInput struct {
	ID string `path:"id" doc:"Relation ID"`
}

// UpdateRelationInput wraps the update request for Huma.
type UpdateRelationInput struct {
	ID   string `path:"id" doc:"Relation ID"`
	Body domain.TagRelationUpdateInput
}

// RelationPairInput addresses the relation from one tag to another.
type RelationPairInput struct {
	ID     string `path:"id" doc:"Source tag ID"`
	Target string `path:"target" doc:"Target tag ID"`
}

// === Handlers ===

func (s *Server) handleListRelations(ctx context.Context, input *WorkspaceInput) (*RelationListOutput, error) {
	rels, err := s.services.Tag.ListTagRelations(ctx, input.Workspace)
	if err != nil {
		return nil, err
	}
	return &RelationListOutput{Body: nonNil(rels)}, nil
}

func (s *Server) handleCreateRelation(ctx context.Context, input *CreateRelationInput) (*RelationOutput, error) {
	rel, err := s.services.Tag.CreateTagRelation(ctx, domain.TagRelationCreateInput{
		Workspace:    input.Workspace,
		SourceTagID:  input.Body.SourceTagID,
		TargetTagID:  input.Body.TargetTagID,
		RelationType: input.Body.RelationType,
		Weight:       input.Body.Weight,
		Description:  input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &RelationOutput{Body: rel}, nil
}

func (s *Server) handleGetTagRelations(ctx context.Context, input *TagIDInput) (*RelationListOutput, error) {
	rels, err := s.services.Tag.TagRelationsForTag(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &RelationListOutput{Body: nonNil(rels)}, nil
}

func (s *Server) handleDeleteRelationBetween(ctx context.Context, input *RelationPairInput) (*struct{}, error) {
	return nil, s.services.Tag.DeleteTagRelationBetween(ctx, input.ID, input.Target)
}

func (s *Server) handleGetRelation(ctx context.Context, input *RelationIDInput) (*RelationOutput, error) {
	rel, err := s.services.Tag.GetTagRelation(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &RelationOutput{Body: rel}, nil
}

func (s *Server) handleUpdateRelation(ctx context.Context, input *UpdateRelationInput) (*RelationOutput, error) {
	rel, err := s.services.Tag.UpdateTagRelation(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &RelationOutput{Body: rel}, nil
}

func (s *Server) handleDeleteRelation(ctx context.Context, input *RelationIDInput) (*struct{}, error) {
	return nil, s.services.Tag.DeleteTagRelation(ctx, input.ID)
}
