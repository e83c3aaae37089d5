package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkwell/tagstore/internal/domain"
)

func (s *Server) registerNodeTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNodeTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes/{node}/tags",
		Summary:     "List node tags",
		Description: "Returns the tags associated with a node",
		Tags:        []string{"Nodes"},
	}, s.handleListNodeTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNodeTagRows",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes/{node}/associations",
		Summary:     "List node associations",
		Description: "Returns the node's association rows with mention counts and positions",
		Tags:        []string{"Nodes"},
	}, s.handleListNodeAssociations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addTagToNode",
		Method:        http.MethodPost,
		Path:          "/api/v1/nodes/{node}/tags",
		Summary:       "Add tag to node",
		Description:   "Associates a tag with a node. Adding an existing pair bumps its mention count.",
		Tags:          []string{"Nodes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddTagToNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "syncNodeTags",
		Method:      http.MethodPut,
		Path:        "/api/v1/nodes/{node}/tags",
		Summary:     "Sync node tags",
		Description: "Makes the node's tag set exactly the given IDs",
		Tags:        []string{"Nodes"},
	}, s.handleSyncNodeTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeTagFromNode",
		Method:        http.MethodDelete,
		Path:          "/api/v1/nodes/{node}/tags/{tag}",
		Summary:       "Remove tag from node",
		Description:   "Removes the association between a node and a tag, if any",
		Tags:          []string{"Nodes"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveTagFromNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTagPositions",
		Method:      http.MethodPut,
		Path:        "/api/v1/nodes/{node}/tags/{tag}/positions",
		Summary:     "Update tag positions",
		Description: "Replaces the mention positions of a tag in a node",
		Tags:        []string{"Nodes"},
	}, s.handleUpdateTagPositions)

	huma.Register(s.api, huma.Operation{
		OperationID: "syncNodeContent",
		Method:      http.MethodPut,
		Path:        "/api/v1/nodes/{node}/content",
		Summary:     "Sync tags from content",
		Description: "Extracts tag mentions from serialized editor content and syncs the node's associations to them",
		Tags:        []string{"Nodes"},
	}, s.handleSyncNodeContent)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteNodeTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/node-tags/{id}",
		Summary:       "Delete node association",
		Description:   "Deletes an association row by ID",
		Tags:          []string{"Nodes"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteNodeTag)
}

// === DTOs ===

// NodeInput addresses a node.
type NodeInput struct {
	Node string `path:"node" doc:"Node ID"`
}

// NodeTagRowsOutput wraps association rows for Huma.
type NodeTagRowsOutput struct {
	Body []domain.NodeTag
}

// NodeTagOutput wraps one association row for Huma.
type NodeTagOutput struct {
	Body *domain.NodeTag
}

// AddTagToNodeRequest is the request body for adding a tag to a node.
type AddTagToNodeRequest struct {
	TagID     string               `json:"tag_id" doc:"Tag ID"`
	Mentions  int                  `json:"mentions,omitempty" doc:"Initial mention count"`
	Positions []domain.TagPosition `json:"positions,omitempty" doc:"Mention offsets"`
}

// AddTagToNodeInput wraps the add request for Huma.
type AddTagToNodeInput struct {
	Node string `path:"node" doc:"Node ID"`
	Body AddTagToNodeRequest
}

// SyncNodeTagsRequest is the request body for syncing a node's tags.
type SyncNodeTagsRequest struct {
	TagIDs []string `json:"tag_ids" doc:"The node's complete tag set"`
}

// SyncNodeTagsInput wraps the sync request for Huma.
type SyncNodeTagsInput struct {
	Node string `path:"node" doc:"Node ID"`
	Body SyncNodeTagsRequest
}

// NodeTagPairInput addresses one node/tag association.
type NodeTagPairInput struct {
	Node string `path:"node" doc:"Node ID"`
	Tag  string `path:"tag" doc:"Tag ID"`
}

// UpdatePositionsRequest is the request body for replacing positions.
type UpdatePositionsRequest struct {
	Positions []domain.TagPosition `json:"positions" doc:"Mention offsets"`
}

// UpdatePositionsInput wraps the positions request for Huma.
type UpdatePositionsInput struct {
	Node string `path:"node" doc:"Node ID"`
	Tag  string `path:"tag" doc:"Tag ID"`
	Body UpdatePositionsRequest
}

// SyncContentRequest carries serialized editor state.
type SyncContentRequest struct {
	Content string `json:"content" doc:"Serialized editor state (JSON text)"`
}

// SyncContentInput wraps the content sync request for Huma.
type SyncContentInput struct {
	Node string `path:"node" doc:"Node ID"`
	Body SyncContentRequest
}

// NodeTagIDInput addresses an association row.
type NodeTagIDInput struct {
	ID string `path:"id" doc:"Association ID"`
}

// === Handlers ===

func (s *Server) handleListNodeTags(ctx context.Context, input *NodeInput) (*TagListOutput, error) {
	tags, err := s.services.Tag.TagsForNode(ctx, input.Node)
	if err != nil {
		return nil, err
	}
	return &TagListOutput{Body: nonNil(tags)}, nil
}

func (s *Server) handleListNodeAssociations(ctx context.Context, input *NodeInput) (*NodeTagRowsOutput, error) {
	rows, err := s.services.Tag.NodeTagsForNode(ctx, input.Node)
	if err != nil {
		return nil, err
	}
	return &NodeTagRowsOutput{Body: nonNil(rows)}, nil
}

func (s *Server) handleAddTagToNode(ctx context.Context, input *AddTagToNodeInput) (*NodeTagOutput, error) {
	nt, err := s.services.Tag.AddTagToNode(ctx, domain.NodeTagCreateInput{
		NodeID:    input.Node,
		TagID:     input.Body.TagID,
		Mentions:  input.Body.Mentions,
		Positions: input.Body.Positions,
	})
	if err != nil {
		return nil, err
	}
	return &NodeTagOutput{Body: nt}, nil
}

func (s *Server) handleSyncNodeTags(ctx context.Context, input *SyncNodeTagsInput) (*NodeTagRowsOutput, error) {
	if err := s.services.Tag.SyncNodeTags(ctx, input.Node, input.Body.TagIDs); err != nil {
		return nil, err
	}
	rows, err := s.services.Tag.NodeTagsForNode(ctx, input.Node)
	if err != nil {
		return nil, err
	}
	return &NodeTagRowsOutput{Body: nonNil(rows)}, nil
}

func (s *Server) handleRemoveTagFromNode(ctx context.Context, input *NodeTagPairInput) (*struct{}, error) {
	return nil, s.services.Tag.RemoveTagFromNode(ctx, input.Node, input.Tag)
}

func (s *Server) handleUpdateTagPositions(ctx context.Context, input *UpdatePositionsInput) (*NodeTagOutput, error) {
	nt, err := s.services.Tag.UpdateTagPositions(ctx, input.Node, input.Tag, input.Body.Positions)
	if err != nil {
		return nil, err
	}
	return &NodeTagOutput{Body: nt}, nil
}

func (s *Server) handleSyncNodeContent(ctx context.Context, input *SyncContentInput) (*NodeTagRowsOutput, error) {
	rows, err := s.services.Tag.SyncTagsFromContent(ctx, input.Node, input.Body.Content)
	if err != nil {
		return nil, err
	}
	return &NodeTagRowsOutput{Body: nonNil(rows)}, nil
}

func (s *Server) handleDeleteNodeTag(ctx context.Context, input *NodeTagIDInput) (*struct{}, error) {
	return nil, s.services.Tag.DeleteNodeTag(ctx, input.ID)
}
