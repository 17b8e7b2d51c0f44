// Package mcp serves a loaded dataset over the Model Context Protocol on stdio.
package mcp

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/treeq/internal/config"
	"github.com/standardbeagle/treeq/internal/dataset"
	logging "github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/version"
)

// Server exposes the hierarchy and flat list pipelines as MCP tools. The
// pipelines are single-threaded; every handler and every source write runs
// under mu.
type Server struct {
	mu     sync.Mutex
	cfg    *config.Config
	tree   *dataset.Hierarchy
	list   *dataset.List
	server *mcp.Server
}

// NewServer wires the tools. Sources feeding the pipelines should write
// through Dispatch.
func NewServer(cfg *config.Config, tree *dataset.Hierarchy, list *dataset.List) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{cfg: cfg, tree: tree, list: list}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "treeq",
		Version: version.Info(),
	}, nil)
	s.registerTools()
	return s
}

// Dispatch runs fn under the server lock
func (s *Server) Dispatch(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func stringArray(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: &jsonschema.Schema{Type: "string"}}
}

func filterSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "Filters applied before the tool runs; they persist for later calls",
		Properties: map[string]*jsonschema.Schema{
			"glob":        {Type: "string", Description: "Glob matched against item names"},
			"folder_glob": {Type: "string", Description: "Glob matched against folder names"},
			"tags":        stringArray("Keep items carrying any of these tags"),
			"folder":      {Type: "string", Description: "Keep items directly in this folder"},
		},
	}
}

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: "Server version and dataset summary.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.guard("info", s.handleInfo))

	s.server.AddTool(&mcp.Tool{
		Name:        "tree",
		Description: "Nested folder view with subtree item/folder counts and selection state.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"folder":    {Type: "string", Description: "Start at this folder instead of the roots"},
				"depth":     {Type: "integer", Description: "Levels of subfolders to expand (default 1)"},
				"items":     {Type: "boolean", Description: "Include direct items of expanded folders"},
				"sort":      {Type: "string", Description: "Column to sort siblings by"},
				"direction": {Type: "string", Description: "asc or desc"},
				"filter":    filterSchema(),
			},
		},
	}, s.guard("tree", s.handleTree))

	s.server.AddTool(&mcp.Tool{
		Name:        "list",
		Description: "Flat, filtered, sorted and paginated item list.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"page":      {Type: "integer", Description: "Zero-based page index"},
				"page_size": {Type: "integer", Description: "Items per page"},
				"sort":      {Type: "string", Description: "Column to sort by"},
				"direction": {Type: "string", Description: "asc or desc"},
				"filter":    filterSchema(),
			},
		},
	}, s.guard("list", s.handleList))

	s.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "Fuzzy search over folders and items, ranked best first with folder paths.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"query"},
			Properties: map[string]*jsonschema.Schema{
				"query":  {Type: "string", Description: "Search text; empty clears the search"},
				"limit":  {Type: "integer", Description: "Maximum rows"},
				"filter": filterSchema(),
			},
		},
	}, s.guard("search", s.handleSearch))

	s.server.AddTool(&mcp.Tool{
		Name:        "select",
		Description: "Change the item selection: select, deselect, toggle, clear, set or toggle_folder.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"action"},
			Properties: map[string]*jsonschema.Schema{
				"action":  {Type: "string", Enum: []any{"select", "deselect", "toggle", "clear", "set", "toggle_folder"}},
				"ids":     stringArray("Item ids"),
				"folder":  {Type: "string", Description: "Folder for toggle_folder"},
				"checked": {Type: "boolean", Description: "Force toggle_folder on or off"},
				"shallow": {Type: "boolean", Description: "toggle_folder affects direct items only"},
			},
		},
	}, s.guard("select", s.handleSelect))

	s.server.AddTool(&mcp.Tool{
		Name:        "folder_state",
		Description: "Tri-state (none, some, all) selection state of folders.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"folders": stringArray("Folder ids; empty reports every folder"),
			},
		},
	}, s.guard("folder_state", s.handleFolderState))
}

type handlerFunc func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// guard serializes handlers and turns panics and errors into error results
func (s *Server) guard(operation string, handler handlerFunc) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				logging.LogMCP("PANIC RECOVERED in %s: %v\n%s\n", operation, r, debug.Stack())
				result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
			}
		}()

		result, err = handler(ctx, req)
		if err != nil {
			logging.LogMCP("Error in %s: %v\n", operation, err)
			return createErrorResponse(operation, err)
		}
		return result, nil
	}
}

// Start serves on stdio until ctx is done or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	logging.LogMCP("Starting MCP server with stdio transport\n")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Run serves on an arbitrary transport
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// GetHandlerForTesting returns the guarded handler of a tool
func (s *Server) GetHandlerForTesting(toolName string) mcp.ToolHandler {
	handlers := map[string]handlerFunc{
		"info":         s.handleInfo,
		"tree":         s.handleTree,
		"list":         s.handleList,
		"search":       s.handleSearch,
		"select":       s.handleSelect,
		"folder_state": s.handleFolderState,
	}
	h, ok := handlers[toolName]
	if !ok {
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return createErrorResponse("GetHandlerForTesting", fmt.Errorf("unknown tool: %s", toolName))
		}
	}
	return s.guard(toolName, h)
}
