package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/treeq/internal/clock"
	"github.com/standardbeagle/treeq/internal/config"
	"github.com/standardbeagle/treeq/internal/dataset"
	"github.com/standardbeagle/treeq/internal/query"
	"github.com/standardbeagle/treeq/internal/selection"
	"github.com/standardbeagle/treeq/internal/types"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	settings := dataset.Settings{
		Config:        query.Config{Paginated: true, PageSize: 2},
		Options:       query.Options{Clock: clock.NewFake()},
		SelectionMode: selection.Range,
	}
	tree, err := dataset.NewHierarchy(settings)
	require.NoError(t, err)
	list := dataset.NewListOver(settings, tree.Items())
	t.Cleanup(func() {
		tree.Dispose()
		list.Dispose()
	})

	folders := []dataset.Folder{
		{ID: "root", Name: "Projects"},
		{ID: "web", ParentID: "root", Name: "Website"},
		{ID: "ops", ParentID: "root", Name: "Operations"},
	}
	items := []dataset.Item{
		{ID: "i1", FolderID: "web", Name: "landing page", Tags: []string{"design"}},
		{ID: "i2", FolderID: "web", Name: "pricing page", Tags: []string{"design"}},
		{ID: "i3", FolderID: "ops", Name: "deploy runbook"},
		{ID: "i4", FolderID: "root", Name: "quarterly budget"},
	}
	tree.Folders().Set(folders)
	tree.Items().Set(items)

	return NewServer(config.Default(), tree, list)
}

func call(t *testing.T, s *Server, tool string, params interface{}) (*mcp.CallToolResult, map[string]interface{}) {
	t.Helper()
	args, err := json.Marshal(params)
	require.NoError(t, err)
	result, err := s.GetHandlerForTesting(tool)(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: tool, Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return result, out
}

func decode[T any](t *testing.T, raw map[string]interface{}) T {
	t.Helper()
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestTreeTool(t *testing.T) {
	s := testServer(t)

	_, raw := call(t, s, "tree", map[string]interface{}{"depth": 2, "items": true, "sort": "name"})
	resp := decode[TreeResponse](t, raw)
	require.Len(t, resp.Folders, 1)
	root := resp.Folders[0]
	assert.Equal(t, 4, root.ItemCount)
	assert.Equal(t, 2, root.FolderCount)
	assert.Equal(t, "none", root.State)
	require.Len(t, root.Folders, 2)
	assert.Equal(t, types.ID("ops"), root.Folders[0].ID, "sorted by name")
	assert.Equal(t, []string{"Projects"}, root.Folders[0].Path)
	assert.Len(t, root.Items, 1)

	_, raw = call(t, s, "tree", map[string]interface{}{"folder": "web", "items": true})
	resp = decode[TreeResponse](t, raw)
	require.Len(t, resp.Folders, 1)
	assert.Len(t, resp.Folders[0].Items, 2)

	result, _ := call(t, s, "tree", map[string]interface{}{"folder": "nope"})
	assert.True(t, result.IsError)
}

func TestNewTreeResponseDepth(t *testing.T) {
	s := testServer(t)

	full, err := NewTreeResponse(s.tree, "", 0, false)
	require.NoError(t, err)
	require.Len(t, full.Folders[0].Folders, 2, "depth 0 expands everything")
	assert.False(t, full.Folders[0].Collapsed)

	shallow, err := NewTreeResponse(s.tree, "", 1, false)
	require.NoError(t, err)
	assert.Empty(t, shallow.Folders[0].Folders)
	assert.True(t, shallow.Folders[0].Collapsed)

	_, err = NewTreeResponse(s.tree, "ghost", 1, false)
	assert.ErrorIs(t, err, errUnknownFolder)
}

func TestListTool(t *testing.T) {
	s := testServer(t)

	_, raw := call(t, s, "list", map[string]interface{}{"sort": "name", "direction": "desc", "page": 1})
	resp := decode[ListResponse](t, raw)
	assert.Equal(t, query.PageInfo{Index: 1, Size: 2, Total: 4, Pages: 2}, resp.Page)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "landing page", resp.Items[0].Name)
	assert.Equal(t, "deploy runbook", resp.Items[1].Name)

	_, raw = call(t, s, "list", map[string]interface{}{"filter": map[string]interface{}{"tags": []string{"design"}}})
	resp = decode[ListResponse](t, raw)
	assert.Equal(t, 2, resp.Page.Total)

	result, _ := call(t, s, "list", map[string]interface{}{"direction": "sideways", "sort": "name"})
	assert.True(t, result.IsError)
}

func TestSearchTool(t *testing.T) {
	s := testServer(t)

	_, raw := call(t, s, "search", map[string]interface{}{"query": "runbook"})
	resp := decode[SearchResponse](t, raw)
	require.NotEmpty(t, resp.Rows)
	assert.Equal(t, "item", resp.Rows[0].Kind)
	assert.Equal(t, types.ID("i3"), resp.Rows[0].ID)
	assert.Equal(t, []string{"Projects", "Operations"}, resp.Rows[0].Path)

	_, raw = call(t, s, "search", map[string]interface{}{"query": "page", "limit": 1})
	resp = decode[SearchResponse](t, raw)
	assert.Len(t, resp.Rows, 1)
	assert.Equal(t, 2, resp.Total)

	_, raw = call(t, s, "search", map[string]interface{}{"query": ""})
	resp = decode[SearchResponse](t, raw)
	assert.Empty(t, resp.Rows)
}

func TestSelectAndFolderStateTools(t *testing.T) {
	s := testServer(t)

	_, raw := call(t, s, "select", map[string]interface{}{"action": "toggle_folder", "folder": "web"})
	sel := decode[SelectResponse](t, raw)
	assert.True(t, sel.Changed)
	assert.Equal(t, []types.ID{"i1", "i2"}, sel.Selected)

	_, raw = call(t, s, "folder_state", map[string]interface{}{"folders": []string{"web", "root", "ops"}})
	states := decode[FolderStateResponse](t, raw)
	assert.Equal(t, map[types.ID]string{"web": "all", "root": "some", "ops": "none"}, states.States)

	_, raw = call(t, s, "select", map[string]interface{}{"action": "select", "ids": []string{"i3", "i4", "ghost"}})
	sel = decode[SelectResponse](t, raw)
	assert.Equal(t, []types.ID{"i1", "i2", "i3", "i4"}, sel.Selected, "unknown ids are ignored")

	_, raw = call(t, s, "folder_state", nil)
	states = decode[FolderStateResponse](t, raw)
	assert.Equal(t, "all", states.States["root"])

	_, raw = call(t, s, "select", map[string]interface{}{"action": "clear"})
	sel = decode[SelectResponse](t, raw)
	assert.Empty(t, sel.Selected)

	result, _ := call(t, s, "select", map[string]interface{}{"action": "explode"})
	assert.True(t, result.IsError)
	result, _ = call(t, s, "folder_state", map[string]interface{}{"folders": []string{"nope"}})
	assert.True(t, result.IsError)
}

func TestInfoToolAndUnknownHandler(t *testing.T) {
	s := testServer(t)

	_, raw := call(t, s, "info", map[string]interface{}{})
	assert.EqualValues(t, 3, raw["folders"])
	assert.EqualValues(t, 4, raw["items"])

	result, _ := call(t, s, "nope", map[string]interface{}{})
	assert.True(t, result.IsError)
}

func TestServerOverInMemoryTransport(t *testing.T) {
	s := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverT, clientT := mcp.NewInMemoryTransports()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"info", "tree", "list", "search", "select", "folder_state"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "search", Arguments: map[string]any{"query": "budget"}})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	require.NoError(t, session.Close())
	cancel()
	<-done
}
