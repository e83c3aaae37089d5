package service

import (
	"context"

	"github.com/inkwell/tagstore/internal/content"
	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/store"
)

type positionsInput struct {
	Positions []domain.TagPosition `json:"positions" validate:"dive"`
}

// AddTagToNode associates a tag with a node. Adding an existing pair bumps
// its mention count instead of creating a duplicate row.
func (s *TagService) AddTagToNode(ctx context.Context, in domain.NodeTagCreateInput) (*domain.NodeTag, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	nt, err := s.store.CreateNodeTag(ctx, domain.NewNodeTag(in, s.now()))
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag added to node",
		"node_id", nt.NodeID,
		"tag_id", nt.TagID,
		"mentions", nt.Mentions,
	)
	return nt, nil
}

// CreateNodeTag is AddTagToNode under its repository name.
func (s *TagService) CreateNodeTag(ctx context.Context, in domain.NodeTagCreateInput) (*domain.NodeTag, error) {
	return s.AddTagToNode(ctx, in)
}

// DeleteNodeTag removes an association by ID.
func (s *TagService) DeleteNodeTag(ctx context.Context, id string) error {
	if err := s.store.DeleteNodeTag(ctx, id); err != nil {
		return err
	}
	s.logger.Info("node tag deleted", "node_tag_id", id)
	return nil
}

// RemoveTagFromNode removes the association between a node and a tag, if any.
func (s *TagService) RemoveTagFromNode(ctx context.Context, nodeID, tagID string) error {
	if err := s.store.DeleteNodeTagByPair(ctx, nodeID, tagID); err != nil {
		return err
	}
	s.logger.Info("tag removed from node", "node_id", nodeID, "tag_id", tagID)
	return nil
}

// SyncNodeTags replaces every association of a node with one per tag ID.
func (s *TagService) SyncNodeTags(ctx context.Context, nodeID string, tagIDs []string) error {
	if nodeID == "" {
		return errors.Validation("node id is required")
	}

	now := s.now()
	rows := make([]*domain.NodeTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		if tagID == "" {
			return errors.Validation("tag ids must not be empty")
		}
		rows = append(rows, domain.NewNodeTag(domain.NodeTagCreateInput{NodeID: nodeID, TagID: tagID}, now))
	}

	if err := s.store.ReplaceNodeTags(ctx, nodeID, rows); err != nil {
		return err
	}
	s.logger.Info("node tags synced", "node_id", nodeID, "tags", len(tagIDs))
	return nil
}

// UpdateTagPositions replaces the mention positions of an existing
// association and recounts its mentions.
func (s *TagService) UpdateTagPositions(ctx context.Context, nodeID, tagID string, positions []domain.TagPosition) (*domain.NodeTag, error) {
	if err := s.validator.Validate(positionsInput{Positions: positions}); err != nil {
		return nil, err
	}

	nt, err := s.store.GetNodeTagByPair(ctx, nodeID, tagID)
	if err != nil {
		return nil, describeNotFound(err, "tag %s is not on node %s", tagID, nodeID)
	}
	nt.SetPositions(positions)
	if err := s.store.UpdateNodeTag(ctx, nt); err != nil {
		return nil, err
	}

	s.logger.Debug("tag positions updated", "node_id", nodeID, "tag_id", tagID, "mentions", nt.Mentions)
	return nt, nil
}

// SyncTagsFromContent reconciles a node's associations with the tags
// referenced in its saved editor document. Tags still present keep their
// association row with refreshed positions, new tags are added and
// vanished tags are removed, all in one transaction. Tag ids that do not
// exist in the store are skipped.
func (s *TagService) SyncTagsFromContent(ctx context.Context, nodeID, doc string) ([]domain.NodeTag, error) {
	if nodeID == "" {
		return nil, errors.Validation("node id is required")
	}

	current, err := s.store.ListNodeTagsByNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	byTag := make(map[string]domain.NodeTag, len(current))
	for _, nt := range current {
		byTag[nt.TagID] = nt
	}

	now := s.now()
	extracted := content.ExtractTags(doc)
	rows := make([]*domain.NodeTag, 0, len(extracted))
	for _, ex := range extracted {
		if existing, ok := byTag[ex.TagID]; ok {
			existing.SetPositions(ex.Positions)
			rows = append(rows, &existing)
			continue
		}
		if _, err := s.store.GetTag(ctx, ex.TagID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Debug("skipping unknown tag in content", "node_id", nodeID, "tag_id", ex.TagID)
				continue
			}
			return nil, err
		}
		rows = append(rows, domain.NewNodeTag(domain.NodeTagCreateInput{
			NodeID:    nodeID,
			TagID:     ex.TagID,
			Mentions:  len(ex.Positions),
			Positions: ex.Positions,
		}, now))
	}

	if err := s.store.ReplaceNodeTags(ctx, nodeID, rows); err != nil {
		return nil, err
	}

	s.logger.Info("node tags synced from content",
		"node_id", nodeID,
		"before", len(current),
		"after", len(rows),
	)
	return s.store.ListNodeTagsByNode(ctx, nodeID)
}

// NodeTagsForNode returns a node's association rows.
func (s *TagService) NodeTagsForNode(ctx context.Context, nodeID string) ([]domain.NodeTag, error) {
	return s.store.ListNodeTagsByNode(ctx, nodeID)
}

// TagsForNode returns the tags associated with a node. Associations
// pointing at tags that no longer exist are skipped.
func (s *TagService) TagsForNode(ctx context.Context, nodeID string) ([]domain.Tag, error) {
	return tagsForNode(ctx, s.store, nodeID)
}

func tagsForNode(ctx context.Context, st store.Store, nodeID string) ([]domain.Tag, error) {
	nts, err := st.ListNodeTagsByNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	tags := make([]domain.Tag, 0, len(nts))
	seen := make(map[string]bool, len(nts))
	for _, nt := range nts {
		if seen[nt.TagID] {
			continue
		}
		seen[nt.TagID] = true

		tag, err := st.GetTag(ctx, nt.TagID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	domain.SortTags(tags)
	return tags, nil
}

// NodesWithTag returns the IDs of nodes associated with a tag.
func (s *TagService) NodesWithTag(ctx context.Context, tagID string) ([]string, error) {
	return nodesWithTag(ctx, s.store, tagID)
}

func nodesWithTag(ctx context.Context, st store.Store, tagID string) ([]string, error) {
	nts, err := st.ListNodeTagsByTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	nodeIDs := make([]string, 0, len(nts))
	for _, nt := range nts {
		nodeIDs = append(nodeIDs, nt.NodeID)
	}
	return nodeIDs, nil
}

// TagUsageCount returns how many association rows reference a tag.
func (s *TagService) TagUsageCount(ctx context.Context, tagID string) (int, error) {
	return s.store.CountNodeTagsByTag(ctx, tagID)
}
