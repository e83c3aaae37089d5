package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/tagstore/internal/domain"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, dir, "", args...)
}

func runWithInput(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data", dir, "--backend", "sqlite", "--workspace", "ws-1"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func mustRun[T any](t *testing.T, dir string, args ...string) T {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err)

	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestTagsLifecycle(t *testing.T) {
	dir := t.TempDir()

	hero := mustRun[domain.Tag](t, dir, "tags", "create", "Hero", "--category", "character")
	assert.Equal(t, "ws-1", hero.Workspace)
	assert.Equal(t, "#FF6B6B", hero.Color)

	mustRun[domain.Tag](t, dir, "tags", "create", "Castle", "-c", "location")

	list := mustRun[[]domain.Tag](t, dir, "tags", "list")
	assert.Len(t, list, 2)

	chars := mustRun[[]domain.Tag](t, dir, "tags", "list", "--category", "character")
	require.Len(t, chars, 1)
	assert.Equal(t, hero.ID, chars[0].ID)

	renamed := mustRun[domain.Tag](t, dir, "tags", "rename", hero.ID, "Protagonist")
	assert.Equal(t, "Protagonist", renamed.Name)

	found := mustRun[[]domain.Tag](t, dir, "search", "PROTAG")
	require.Len(t, found, 1)

	ok := mustRun[map[string]any](t, dir, "tags", "rm", hero.ID)
	assert.Equal(t, true, ok["ok"])

	_, err := run(t, dir, "tags", "show", hero.ID)
	assert.Error(t, err)
}

func TestTagsCreate_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "tags", "create", "   ")
	assert.Error(t, err)

	_, err = run(t, dir, "tags", "create", "Hero", "--color", "blue")
	assert.Error(t, err)
}

func TestNodeCommands(t *testing.T) {
	dir := t.TempDir()
	hero := mustRun[domain.Tag](t, dir, "tags", "create", "Hero")
	castle := mustRun[domain.Tag](t, dir, "tags", "create", "Castle")

	nt := mustRun[domain.NodeTag](t, dir, "node", "link", "n1", hero.ID)
	assert.Equal(t, "n1", nt.NodeID)

	tags := mustRun[[]domain.Tag](t, dir, "node", "tags", "n1")
	require.Len(t, tags, 1)
	assert.Equal(t, "Hero", tags[0].Name)

	rows := mustRun[[]domain.NodeTag](t, dir, "node", "set", "n1", castle.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, castle.ID, rows[0].TagID)

	shown := mustRun[map[string]any](t, dir, "tags", "show", castle.ID)
	assert.Equal(t, []any{"n1"}, shown["nodes"])

	mustRun[map[string]any](t, dir, "node", "link", "--rm", "n1", castle.ID)
	assert.Empty(t, mustRun[[]domain.Tag](t, dir, "node", "tags", "n1"))
}

func TestNodeSyncContent(t *testing.T) {
	dir := t.TempDir()
	hero := mustRun[domain.Tag](t, dir, "tags", "create", "Hero")

	doc := `{"root": {"children": [{"type": "tag", "tagId": "` + hero.ID + `", "tagName": "Hero"}]}}`
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	rows := mustRun[[]domain.NodeTag](t, dir, "node", "sync-content", "n1", path)
	require.Len(t, rows, 1)
	assert.Equal(t, hero.ID, rows[0].TagID)
	assert.Equal(t, 1, rows[0].Mentions)

	out, err := runWithInput(t, dir, `{"root": {"children": []}}`, "node", "sync-content", "n1", "-")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestRelateAndGraph(t *testing.T) {
	dir := t.TempDir()
	a := mustRun[domain.Tag](t, dir, "tags", "create", "A")
	b := mustRun[domain.Tag](t, dir, "tags", "create", "B")

	rel := mustRun[domain.TagRelation](t, dir, "relate", a.ID, b.ID, "--type", "owns", "--weight", "0")
	assert.Equal(t, domain.RelationOwns, rel.RelationType)
	assert.Equal(t, 0, rel.Weight)

	graph := mustRun[domain.TagGraph](t, dir, "graph")
	assert.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, a.ID, graph.Edges[0].Source)

	rels := mustRun[[]domain.TagRelation](t, dir, "relations", b.ID)
	assert.Len(t, rels, 1)

	mustRun[map[string]any](t, dir, "relate", "--rm", a.ID, b.ID)
	assert.Empty(t, mustRun[[]domain.TagRelation](t, dir, "relations"))
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	hero := mustRun[domain.Tag](t, dir, "tags", "create", "Hero")
	mustRun[domain.NodeTag](t, dir, "node", "link", "n1", hero.ID)
	mustRun[domain.NodeTag](t, dir, "node", "link", "n2", hero.ID)

	stats := mustRun[[]domain.TagWithStats](t, dir, "stats")
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].UsageCount)
}

func TestEmptyWorkspace(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "tags", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	graph := mustRun[domain.TagGraph](t, dir, "graph")
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
}

func TestStorageFromConfigLayers(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	tomlPath := filepath.Join(dir, "tagstore.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[storage]\nbackend = \"sqlite\"\npath = \""+dataDir+"\"\n"), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TAGSTORE_WORKSPACE=from-dotenv\n"), 0o600))

	for _, key := range []string{"DATA_PATH", "STORAGE_BACKEND", "CONFIG_FILE", "TAGSTORE_WORKSPACE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", tomlPath, "--env-file", envFile, "tags", "create", "Hero"})
	require.NoError(t, cmd.Execute())

	var tag domain.Tag
	require.NoError(t, json.Unmarshal(out.Bytes(), &tag), out.String())
	assert.Equal(t, "from-dotenv", tag.Workspace)
	assert.FileExists(t, filepath.Join(dataDir, "tagstore.db"))
}

func TestInvalidBackendFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data", t.TempDir(), "--backend", "mongo", "tags", "list"})
	assert.Error(t, cmd.Execute())
}
