package domain

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Category classifies a tag. The set is closed.
type Category string

// Tag categories.
const (
	CategoryCharacter Category = "character"
	CategoryLocation  Category = "location"
	CategoryItem      Category = "item"
	CategoryEvent     Category = "event"
	CategoryTheme     Category = "theme"
	CategoryCustom    Category = "custom"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryCharacter,
	CategoryLocation,
	CategoryItem,
	CategoryEvent,
	CategoryTheme,
	CategoryCustom,
}

var defaultColors = map[Category]string{
	CategoryCharacter: "#FF6B6B",
	CategoryLocation:  "#4ECDC4",
	CategoryItem:      "#FFE66D",
	CategoryEvent:     "#95E1D3",
	CategoryTheme:     "#DDA0DD",
	CategoryCustom:    "#A8A8A8",
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := defaultColors[c]
	return ok
}

// DefaultColor returns the color a tag of this category gets when none is supplied.
// Unknown categories fall back to the custom color.
func (c Category) DefaultColor() string {
	if color, ok := defaultColors[c]; ok {
		return color
	}
	return defaultColors[CategoryCustom]
}

// Tag is a named, colored, categorized label scoped to a workspace.
type Tag struct {
	ID          string    `json:"id"`
	Workspace   string    `json:"workspace" validate:"required"`
	Name        string    `json:"name" validate:"notblank,max=100"`
	Color       string    `json:"color" validate:"tagcolor"`
	Category    Category  `json:"category" validate:"tagcategory"`
	Icon        string    `json:"icon,omitempty"`
	Description string    `json:"description,omitempty" validate:"max=500"`
	Metadata    string    `json:"metadata,omitempty" validate:"omitempty,json"`
	CreateDate  time.Time `json:"create_date"`
	LastEdit    time.Time `json:"last_edit"`
}

// TagCreateInput holds the fields a caller supplies when creating a tag.
type TagCreateInput struct {
	Workspace   string   `json:"workspace" validate:"required"`
	Name        string   `json:"name" validate:"notblank,max=100"`
	Color       string   `json:"color,omitempty" validate:"omitempty,tagcolor"`
	Category    Category `json:"category,omitempty" validate:"omitempty,tagcategory"`
	Icon        string   `json:"icon,omitempty"`
	Description string   `json:"description,omitempty" validate:"max=500"`
	Metadata    string   `json:"metadata,omitempty" validate:"omitempty,json"`
}

// TagUpdateInput holds a partial tag update. Nil fields are left unchanged.
type TagUpdateInput struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Color       *string   `json:"color,omitempty" validate:"omitempty,tagcolor"`
	Category    *Category `json:"category,omitempty" validate:"omitempty,tagcategory"`
	Icon        *string   `json:"icon,omitempty"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	Metadata    *string   `json:"metadata,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (in TagUpdateInput) IsEmpty() bool {
	return in.Name == nil && in.Color == nil && in.Category == nil &&
		in.Icon == nil && in.Description == nil && in.Metadata == nil
}

// Apply merges the update into the tag and stamps LastEdit.
//
// Recategorizing a tag that still wears its old category's default color
// moves it to the new category's default, unless a color is supplied too.
func (t *Tag) Apply(in TagUpdateInput, now time.Time) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil && *in.Category != t.Category {
		if in.Color == nil && t.Color == t.Category.DefaultColor() {
			t.Color = in.Category.DefaultColor()
		}
		t.Category = *in.Category
	}
	if in.Color != nil {
		t.Color = *in.Color
	}
	if in.Icon != nil {
		t.Icon = *in.Icon
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Metadata != nil {
		t.Metadata = *in.Metadata
	}
	t.LastEdit = now.UTC()
}

var folder = cases.Fold()

// FoldName returns the case-folded form of a tag name used for
// case-insensitive comparison and substring search.
func FoldName(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// NameContains reports whether the tag name contains query, ignoring case.
// The query is matched as given, surrounding spaces included.
func (t *Tag) NameContains(query string) bool {
	return strings.Contains(FoldName(t.Name), folder.String(query))
}

// SortTags orders tags by creation time, then id, so listings are stable
// across storage backends.
func SortTags(tags []Tag) {
	slices.SortFunc(tags, func(a, b Tag) int {
		if c := a.CreateDate.Compare(b.CreateDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
