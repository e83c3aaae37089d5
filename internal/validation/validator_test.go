package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/tagstore/internal/domain"
	"github.com/inkwell/tagstore/internal/errors"
	"github.com/inkwell/tagstore/internal/validation"
)

func TestValidator_TagCreateInput(t *testing.T) {
	v := validation.New()

	//nolint:govet // fieldalignment: test table
	tests := []struct {
		name      string
		in        domain.TagCreateInput
		wantField string
	}{
		{
			name: "valid minimal",
			in:   domain.TagCreateInput{Workspace: "ws", Name: "Hero"},
		},
		{
			name: "valid full",
			in: domain.TagCreateInput{
				Workspace: "ws", Name: "Hero", Color: "#aBc123",
				Category: domain.CategoryCharacter, Metadata: `{"age":30}`,
			},
		},
		{
			name:      "blank name",
			in:        domain.TagCreateInput{Workspace: "ws", Name: "   "},
			wantField: "name",
		},
		{
			name:      "name too long",
			in:        domain.TagCreateInput{Workspace: "ws", Name: strings.Repeat("a", 101)},
			wantField: "name",
		},
		{
			name:      "missing workspace",
			in:        domain.TagCreateInput{Name: "Hero"},
			wantField: "workspace",
		},
		{
			name:      "bad color",
			in:        domain.TagCreateInput{Workspace: "ws", Name: "Hero", Color: "red"},
			wantField: "color",
		},
		{
			name:      "short color",
			in:        domain.TagCreateInput{Workspace: "ws", Name: "Hero", Color: "#FFF"},
			wantField: "color",
		},
		{
			name:      "unknown category",
			in:        domain.TagCreateInput{Workspace: "ws", Name: "Hero", Category: "weapon"},
			wantField: "category",
		},
		{
			name:      "description too long",
			in:        domain.TagCreateInput{Workspace: "ws", Name: "Hero", Description: strings.Repeat("d", 501)},
			wantField: "description",
		},
		{
			name:      "metadata not json",
			in:        domain.TagCreateInput{Workspace: "ws", Name: "Hero", Metadata: "{oops"},
			wantField: "metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			requireFieldError(t, err, tt.wantField)
		})
	}
}

func TestValidator_TagUpdateInput(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(domain.TagUpdateInput{}))

	empty := ""
	requireFieldError(t, v.Validate(domain.TagUpdateInput{Name: &empty}), "name")

	bad := domain.Category("weapon")
	requireFieldError(t, v.Validate(domain.TagUpdateInput{Category: &bad}), "category")
}

func TestValidator_NodeTagPositions(t *testing.T) {
	v := validation.New()

	ok := domain.NodeTagCreateInput{
		NodeID:    "node-1",
		TagID:     "tag-1",
		Positions: []domain.TagPosition{{Start: 0, End: 3}},
	}
	assert.NoError(t, v.Validate(ok))

	bad := ok
	bad.Positions = []domain.TagPosition{{Start: 5, End: 2}}
	requireFieldError(t, v.Validate(bad), "positions[0].end")

	negative := ok
	negative.Mentions = -1
	requireFieldError(t, v.Validate(negative), "mentions")
}

func TestValidator_RelationType(t *testing.T) {
	v := validation.New()

	in := domain.TagRelationCreateInput{Workspace: "ws", SourceTagID: "a", TargetTagID: "b"}
	assert.NoError(t, v.Validate(in))

	in.RelationType = domain.RelationOwns
	assert.NoError(t, v.Validate(in))

	in.RelationType = "hates"
	requireFieldError(t, v.Validate(in), "relation_type")
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, field)
}
