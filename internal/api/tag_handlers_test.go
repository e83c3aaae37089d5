package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/tagstore/internal/domain"
)

func TestCreateTag_Defaults(t *testing.T) {
	ts := setupTestServer(t)

	tag := ts.createTag(t, "ws-1", map[string]any{"name": "Hero"})

	assert.NotEmpty(t, tag.ID)
	assert.Equal(t, "ws-1", tag.Workspace)
	assert.Equal(t, "Hero", tag.Name)
	assert.Equal(t, domain.CategoryCustom, tag.Category)
	assert.Equal(t, "#A8A8A8", tag.Color)
	assert.False(t, tag.CreateDate.IsZero())
}

func TestCreateTag_BlankName(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/workspaces/ws-1/tags", map[string]any{"name": "   "})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	envelope := decodeError(t, resp)
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestCreateTag_BadColor(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/workspaces/ws-1/tags", map[string]any{"name": "Hero", "color": "red"})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
}

func TestGetTag_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/tags/tag-missing")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
}

func TestUpdateTag_Rename(t *testing.T) {
	ts := setupTestServer(t)
	tag := ts.createTag(t, "ws-1", map[string]any{"name": "Hero", "category": "character"})

	resp := ts.api.Patch("/api/v1/tags/"+tag.ID, map[string]any{"name": "Protagonist"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decodeData[domain.Tag](t, resp)
	assert.Equal(t, "Protagonist", updated.Name)
	assert.Equal(t, domain.CategoryCharacter, updated.Category)
	assert.False(t, updated.LastEdit.Before(tag.LastEdit))

	fetched := decodeData[domain.Tag](t, ts.api.Get("/api/v1/tags/"+tag.ID))
	assert.Equal(t, "Protagonist", fetched.Name)
}

func TestDeleteTag(t *testing.T) {
	ts := setupTestServer(t)
	tag := ts.createTag(t, "ws-1", map[string]any{"name": "Hero"})

	resp := ts.api.Delete("/api/v1/tags/" + tag.ID)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/tags/" + tag.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListTags_CategoryFilter(t *testing.T) {
	ts := setupTestServer(t)
	ts.createTag(t, "ws-1", map[string]any{"name": "Hero", "category": "character"})
	ts.createTag(t, "ws-1", map[string]any{"name": "Castle", "category": "location"})
	ts.createTag(t, "ws-2", map[string]any{"name": "Villain", "category": "character"})

	all := decodeData[[]domain.Tag](t, ts.api.Get("/api/v1/workspaces/ws-1/tags"))
	assert.Len(t, all, 2)

	chars := decodeData[[]domain.Tag](t, ts.api.Get("/api/v1/workspaces/ws-1/tags?category=character"))
	require.Len(t, chars, 1)
	assert.Equal(t, "Hero", chars[0].Name)

	resp := ts.api.Get("/api/v1/workspaces/ws-1/tags?category=planet")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListTags_EmptyWorkspace(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/workspaces/empty/tags")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"data":[]`)
}

func TestSearchTags(t *testing.T) {
	ts := setupTestServer(t)
	ts.createTag(t, "ws-1", map[string]any{"name": "Dragon"})
	ts.createTag(t, "ws-1", map[string]any{"name": "Dragonfly"})
	ts.createTag(t, "ws-1", map[string]any{"name": "Knight"})

	found := decodeData[[]domain.Tag](t, ts.api.Get("/api/v1/workspaces/ws-1/tags/search?q=drag"))
	assert.Len(t, found, 2)

	none := decodeData[[]domain.Tag](t, ts.api.Get("/api/v1/workspaces/ws-1/tags/search?q=%20"))
	assert.Empty(t, none)
}

func TestResolveTag(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/workspaces/ws-1/tags/resolve", map[string]any{"name": "Hero", "category": "character"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	first := decodeData[ResolveTagResponse](t, resp)
	assert.True(t, first.Created)
	require.NotNil(t, first.Tag)
	assert.Equal(t, domain.CategoryCharacter, first.Tag.Category)

	resp = ts.api.Post("/api/v1/workspaces/ws-1/tags/resolve", map[string]any{"name": "HERO"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	second := decodeData[ResolveTagResponse](t, resp)
	assert.False(t, second.Created)
	assert.Equal(t, first.Tag.ID, second.Tag.ID)
}

func TestTagGraph_EmptyWorkspace(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/workspaces/nothing/graph")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"nodes":[]`)
	assert.Contains(t, resp.Body.String(), `"edges":[]`)
}

func TestTagStats(t *testing.T) {
	ts := setupTestServer(t)
	hero := ts.createTag(t, "ws-1", map[string]any{"name": "Hero"})
	ts.createTag(t, "ws-1", map[string]any{"name": "Castle"})

	for _, node := range []string{"n1", "n2"} {
		resp := ts.api.Post("/api/v1/nodes/"+node+"/tags", map[string]any{"tag_id": hero.ID})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	stats := decodeData[[]domain.TagWithStats](t, ts.api.Get("/api/v1/workspaces/ws-1/stats"))
	require.Len(t, stats, 2)

	counts := map[string]int{}
	for _, s := range stats {
		counts[s.Name] = s.UsageCount
	}
	assert.Equal(t, 2, counts["Hero"])
	assert.Equal(t, 0, counts["Castle"])
}
