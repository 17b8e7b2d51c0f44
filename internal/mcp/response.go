package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse creates a standardized error response for MCP tools.
// Tool errors travel inside the result with IsError set so the client can
// see and correct them.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	return createErrorResponseWithHelp(operation, err, "")
}

// createErrorResponseWithHelp adds a usage hint to the error payload
func createErrorResponseWithHelp(operation string, err error, help string) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if help == "" {
		help = toolHelp[operation]
	}
	if help != "" {
		errorData["help"] = help
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// toolHelp holds one usage example per tool
var toolHelp = map[string]string{
	"tree":         `{"folder": "web", "depth": 2, "items": true}`,
	"list":         `{"page": 0, "page_size": 20, "sort": "name", "direction": "desc", "filter": {"tags": ["design"]}}`,
	"search":       `{"query": "budget", "limit": 10}`,
	"select":       `{"action": "select", "ids": ["i1"]} or {"action": "toggle_folder", "folder": "web"}`,
	"folder_state": `{"folders": ["web", "ops"]}`,
}

// decodeParams unmarshals tool arguments; empty arguments leave v untouched
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
