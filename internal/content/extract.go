// Package content finds tag references inside serialized editor documents.
//
// Documents are the JSON tree the rich-text editor saves: a root node whose
// children are paragraphs, text runs and inline tag nodes. Offsets count
// UTF-16 code units, the unit the editor itself uses for selections.
package content

import (
	"encoding/json"
	"unicode/utf16"

	"github.com/inkwell/tagstore/internal/domain"
)

// nodeTypeTag and nodeTypeText are the serialized node types that advance the offset.
const (
	nodeTypeTag  = "tag"
	nodeTypeText = "text"
)

// ExtractedTag is one tag referenced by a document and where it appears.
type ExtractedTag struct {
	TagID     string               `json:"tag_id"`
	Positions []domain.TagPosition `json:"positions"`
}

type document struct {
	Root *node `json:"root"`
}

type node struct {
	Type     string  `json:"type"`
	TagID    string  `json:"tagId"`
	TagName  string  `json:"tagName"`
	Text     string  `json:"text"`
	Children []*node `json:"children"`
}

// ExtractTags returns every tag referenced in doc, in order of first
// appearance, each with the span of every mention.
//
// An empty or malformed document yields no tags.
func ExtractTags(doc string) []ExtractedTag {
	if doc == "" {
		return nil
	}

	var parsed document
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil
	}

	var (
		order []string
		found = make(map[string][]domain.TagPosition)
	)

	var walk func(n *node, offset int) int
	walk = func(n *node, offset int) int {
		if n == nil {
			return offset
		}

		switch {
		case n.Type == nodeTypeTag && n.TagID != "":
			length := textLen(n.TagName)
			if _, seen := found[n.TagID]; !seen {
				order = append(order, n.TagID)
			}
			found[n.TagID] = append(found[n.TagID], domain.TagPosition{Start: offset, End: offset + length})
			return offset + length
		case n.Type == nodeTypeText && n.Text != "":
			return offset + textLen(n.Text)
		}

		for _, child := range n.Children {
			offset = walk(child, offset)
		}
		return offset
	}
	walk(parsed.Root, 0)

	out := make([]ExtractedTag, 0, len(order))
	for _, tagID := range order {
		out = append(out, ExtractedTag{TagID: tagID, Positions: found[tagID]})
	}
	return out
}

// textLen measures s in UTF-16 code units.
func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
