package mcp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/treeq/internal/dataset"
	"github.com/standardbeagle/treeq/internal/hierarchy"
	"github.com/standardbeagle/treeq/internal/query"
	"github.com/standardbeagle/treeq/internal/selection"
	"github.com/standardbeagle/treeq/internal/types"
	"github.com/standardbeagle/treeq/internal/version"
)

// FilterParams mirrors dataset.FilterState. A nil filter keeps the current one.
type FilterParams struct {
	Glob       string   `json:"glob,omitempty"`
	FolderGlob string   `json:"folder_glob,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Folder     string   `json:"folder,omitempty"`
}

func (f *FilterParams) state() dataset.FilterState {
	return dataset.FilterState{Glob: f.Glob, FolderGlob: f.FolderGlob, Tags: f.Tags, Folder: types.ID(f.Folder)}
}

type TreeParams struct {
	Folder    string        `json:"folder,omitempty"`
	Depth     int           `json:"depth,omitempty"`
	Items     bool          `json:"items,omitempty"`
	Sort      string        `json:"sort,omitempty"`
	Direction string        `json:"direction,omitempty"`
	Filter    *FilterParams `json:"filter,omitempty"`
}

type ListParams struct {
	Page      int           `json:"page,omitempty"`
	PageSize  int           `json:"page_size,omitempty"`
	Sort      string        `json:"sort,omitempty"`
	Direction string        `json:"direction,omitempty"`
	Filter    *FilterParams `json:"filter,omitempty"`
}

type SearchParams struct {
	Query  string        `json:"query"`
	Limit  int           `json:"limit,omitempty"`
	Filter *FilterParams `json:"filter,omitempty"`
}

type SelectParams struct {
	Action  string   `json:"action"`
	IDs     []string `json:"ids,omitempty"`
	Folder  string   `json:"folder,omitempty"`
	Checked *bool    `json:"checked,omitempty"`
	Shallow bool     `json:"shallow,omitempty"`
}

type FolderStateParams struct {
	Folders []string `json:"folders,omitempty"`
}

// FolderNode is one folder of the tree response
type FolderNode struct {
	ID          types.ID     `json:"id"`
	Name        string       `json:"name"`
	Path        []string     `json:"path,omitempty"`
	ItemCount   int          `json:"item_count"`
	FolderCount int          `json:"folder_count"`
	State       string       `json:"state"`
	Items       []ItemRow    `json:"items,omitempty"`
	Folders     []FolderNode `json:"folders,omitempty"`
	// Collapsed marks folders whose subfolders were not expanded
	Collapsed bool `json:"collapsed,omitempty"`
}

// ItemRow is one item of a tree or list response
type ItemRow struct {
	ID       types.ID          `json:"id"`
	Name     string            `json:"name"`
	FolderID types.ID          `json:"folder_id"`
	Tags     []string          `json:"tags,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Selected bool              `json:"selected,omitempty"`
}

type TreeResponse struct {
	Folders []FolderNode `json:"folders"`
	Orphans []types.ID   `json:"orphans,omitempty"`
	Dropped []types.ID   `json:"dropped_items,omitempty"`
}

type ListResponse struct {
	Items   []ItemRow      `json:"items"`
	Page    query.PageInfo `json:"page"`
	Columns []string       `json:"columns"`
}

type SearchRow struct {
	Kind  string   `json:"kind"`
	ID    types.ID `json:"id"`
	Name  string   `json:"name"`
	Score float64  `json:"score"`
	Field string   `json:"field,omitempty"`
	Path  []string `json:"path,omitempty"`
}

type SearchResponse struct {
	Query string      `json:"query"`
	Rows  []SearchRow `json:"rows"`
	Total int         `json:"total"`
}

type SelectResponse struct {
	Changed  bool       `json:"changed"`
	Selected []types.ID `json:"selected"`
}

type FolderStateResponse struct {
	States map[types.ID]string `json:"states"`
}

var errUnknownFolder = errors.New("unknown folder")

func (s *Server) applyFilter(f *FilterParams) {
	if f == nil {
		return
	}
	st := f.state()
	s.tree.FilterState().Set(st)
	if s.list != nil {
		s.list.FilterState().Set(st)
	}
}

func sortSpec(column, direction string) (types.SortSpec, error) {
	if column == "" {
		return types.SortSpec{}, nil
	}
	dir, err := types.ParseSortDirection(direction)
	if err != nil {
		return types.SortSpec{}, err
	}
	return types.SortSpec{Column: column, Direction: dir}, nil
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree := s.tree.Tree().Get()
	return createJSONResponse(map[string]interface{}{
		"server_version": version.FullInfo(),
		"go_version":     runtime.Version(),
		"folders":        len(tree.Folders()),
		"items":          len(tree.Items()),
		"roots":          len(tree.RootIDs()),
		"selected":       s.tree.Selection().Len(),
		"columns":        s.tree.VisibleColumns(),
		"tools":          []string{"tree", "list", "search", "select", "folder_state"},
	})
}

func (s *Server) handleTree(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p TreeParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("tree", err)
	}
	s.applyFilter(p.Filter)
	if p.Sort != "" || p.Direction != "" {
		spec, err := sortSpec(p.Sort, p.Direction)
		if err != nil {
			return createErrorResponse("tree", err)
		}
		s.tree.Sort().Set(spec)
	}
	depth := p.Depth
	if depth <= 0 {
		depth = 1
	}
	resp, err := NewTreeResponse(s.tree, types.ID(p.Folder), depth, p.Items)
	if err != nil {
		return createErrorResponse("tree", err)
	}
	return createJSONResponse(resp)
}

// NewTreeResponse renders the hierarchy from folder (all roots when empty)
// down depth levels; depth <= 0 expands everything
func NewTreeResponse(h *dataset.Hierarchy, folder types.ID, depth int, withItems bool) (TreeResponse, error) {
	tree := h.Tree().Get()
	states := h.States().Get()
	selected := h.Selection().Selected()

	var start []*hierarchy.MetaFolder[dataset.Folder]
	if folder != "" {
		f, ok := tree.Folder(folder)
		if !ok {
			return TreeResponse{}, fmt.Errorf("%w: %s", errUnknownFolder, folder)
		}
		start = append(start, f)
	} else {
		start = tree.Roots()
	}

	resp := TreeResponse{Folders: make([]FolderNode, 0, len(start)), Orphans: tree.Orphans(), Dropped: tree.Dropped()}
	for _, f := range start {
		resp.Folders = append(resp.Folders, buildNode(tree, f, states, selected, depth, withItems))
	}
	return resp, nil
}

func folderPath(tree *hierarchy.Tree[dataset.Folder, dataset.Item], id types.ID) []string {
	var out []string
	for _, a := range tree.PathOf(id) {
		out = append(out, a.Model.Name)
	}
	return out
}

func buildNode(tree *hierarchy.Tree[dataset.Folder, dataset.Item], f *hierarchy.MetaFolder[dataset.Folder],
	states selection.StateMap, selected types.IDSet, depth int, withItems bool) FolderNode {
	node := FolderNode{
		ID:          f.ID,
		Name:        f.Model.Name,
		Path:        folderPath(tree, f.ID),
		ItemCount:   f.ItemCount,
		FolderCount: f.FolderCount,
		State:       states.Get(f.ID).String(),
	}
	if withItems {
		for _, it := range tree.ItemsOf(f.ID) {
			node.Items = append(node.Items, itemRow(it.Model, selected))
		}
	}
	if depth == 1 {
		node.Collapsed = len(f.Folders) > 0
		return node
	}
	for _, child := range tree.FoldersOf(f.ID) {
		node.Folders = append(node.Folders, buildNode(tree, child, states, selected, depth-1, withItems))
	}
	return node
}

func itemRow(it dataset.Item, selected types.IDSet) ItemRow {
	return ItemRow{ID: it.ID, Name: it.Name, FolderID: it.FolderID, Tags: it.Tags, Attrs: it.Attrs, Selected: selected.Has(it.ID)}
}

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.list == nil {
		return createErrorResponse("list", errors.New("list view is not configured"))
	}
	var p ListParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("list", err)
	}
	if p.Page < 0 || p.PageSize < 0 {
		return createErrorResponse("list", errors.New("page and page_size must not be negative"))
	}
	s.applyFilter(p.Filter)
	if p.Sort != "" || p.Direction != "" {
		spec, err := sortSpec(p.Sort, p.Direction)
		if err != nil {
			return createErrorResponse("list", err)
		}
		s.list.Sort().Set(spec)
	}
	s.list.Page().Set(types.PageState{Index: p.Page, Size: p.PageSize})

	return createJSONResponse(NewListResponse(s.tree, s.list))
}

// NewListResponse renders the current page of list with the selection of h
func NewListResponse(h *dataset.Hierarchy, list *dataset.List) ListResponse {
	selected := h.Selection().Selected()
	page := list.Paged().Get()
	resp := ListResponse{
		Items:   make([]ItemRow, 0, len(page)),
		Page:    list.PageInfo(),
		Columns: list.VisibleColumns(),
	}
	for _, it := range page {
		resp.Items = append(resp.Items, itemRow(it, selected))
	}
	return resp
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p SearchParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("search", err)
	}
	s.applyFilter(p.Filter)
	s.tree.SubmitQuery(strings.TrimSpace(p.Query))

	feed, err := s.tree.SearchFeed()
	if err != nil {
		return createErrorResponse("search", err)
	}
	return createJSONResponse(NewSearchResponse(p.Query, feed.Get(), p.Limit))
}

// NewSearchResponse renders merged search rows, keeping at most limit rows
// when limit > 0. Total counts every row.
func NewSearchResponse(q string, rows []query.SearchRow[dataset.Folder, dataset.Item], limit int) SearchResponse {
	resp := SearchResponse{Query: q, Rows: make([]SearchRow, 0, len(rows)), Total: len(rows)}
	for _, r := range rows {
		if limit > 0 && len(resp.Rows) == limit {
			break
		}
		row := SearchRow{Kind: r.Kind.String(), ID: r.ID, Score: r.Score, Field: r.Field}
		if r.Item != nil {
			row.Name = r.Item.Model.Name
		} else if r.Folder != nil {
			row.Name = r.Folder.Model.Name
		}
		for _, a := range r.Path {
			row.Path = append(row.Path, a.Model.Name)
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp
}

func toIDs(in []string) []types.ID {
	out := make([]types.ID, len(in))
	for i, s := range in {
		out[i] = types.ID(s)
	}
	return out
}

func (s *Server) handleSelect(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p SelectParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("select", err)
	}
	engine := s.tree.Selection()
	ids := toIDs(p.IDs)

	var changed bool
	switch strings.ToLower(p.Action) {
	case "select":
		changed = engine.Select(ids...)
	case "deselect":
		changed = engine.Deselect(ids...)
	case "toggle":
		for _, id := range ids {
			changed = engine.Toggle(id) || changed
		}
	case "clear":
		changed = engine.Clear()
	case "set":
		changed = engine.SetSelected(types.NewIDSet(ids...))
	case "toggle_folder":
		if p.Folder == "" {
			return createErrorResponse("select", errors.New("toggle_folder needs a folder"))
		}
		ref := selection.RefID[dataset.Folder](types.ID(p.Folder))
		if _, ok := selection.Resolve(s.tree.Tree().Get(), ref); !ok {
			return createErrorResponse("select", fmt.Errorf("%w: %s", errUnknownFolder, p.Folder))
		}
		changed = s.tree.ToggleFolder(ref, p.Checked, p.Shallow)
	default:
		return createErrorResponse("select", fmt.Errorf("unknown action %q", p.Action))
	}

	return createJSONResponse(SelectResponse{Changed: changed, Selected: engine.Selected().Sorted()})
}

func (s *Server) handleFolderState(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p FolderStateParams
	if err := decodeParams(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("folder_state", err)
	}
	resp, err := NewFolderStateResponse(s.tree, toIDs(p.Folders))
	if err != nil {
		return createErrorResponse("folder_state", err)
	}
	return createJSONResponse(resp)
}

// NewFolderStateResponse reports the tri-state of each folder in ids, or of
// every folder when ids is empty
func NewFolderStateResponse(h *dataset.Hierarchy, ids []types.ID) (FolderStateResponse, error) {
	tree := h.Tree().Get()
	if len(ids) == 0 {
		for _, f := range tree.Folders() {
			ids = append(ids, f.ID)
		}
	}

	resp := FolderStateResponse{States: make(map[types.ID]string, len(ids))}
	for _, id := range ids {
		if _, ok := tree.Folder(id); !ok {
			return FolderStateResponse{}, fmt.Errorf("%w: %s", errUnknownFolder, id)
		}
		resp.States[id] = h.FolderState(selection.RefID[dataset.Folder](id)).String()
	}
	return resp, nil
}
