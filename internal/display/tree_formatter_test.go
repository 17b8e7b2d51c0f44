package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/treeq/internal/mcp"
	"github.com/standardbeagle/treeq/internal/types"
)

func sampleTree() mcp.TreeResponse {
	return mcp.TreeResponse{
		Folders: []mcp.FolderNode{{
			ID: "root", Name: "Projects", ItemCount: 4, FolderCount: 2, State: "some",
			Items: []mcp.ItemRow{{ID: "i4", Name: "quarterly plan"}},
			Folders: []mcp.FolderNode{
				{
					ID: "web", Name: "Website", ItemCount: 2, State: "all",
					Items: []mcp.ItemRow{
						{ID: "i1", Name: "landing page", Selected: true, Tags: []string{"design"}},
						{ID: "i2", Name: "pricing page", Selected: true},
					},
				},
				{ID: "ops", Name: "Operations", ItemCount: 1, State: "none"},
			},
		}},
	}
}

// TestNewTreeFormatter tests the new tree formatter.
func TestNewTreeFormatter(t *testing.T) {
	// Test with default options
	formatter := NewTreeFormatter(FormatterOptions{})
	assert.NotNil(t, formatter)
	assert.Equal(t, "  ", formatter.options.Indent)

	// Test with custom options
	options := FormatterOptions{
		Format:     "compact",
		ShowCounts: true,
		ShowState:  true,
		Indent:     "\t",
	}
	formatter = NewTreeFormatter(options)
	assert.Equal(t, options, formatter.options)
}

func TestTreeFormatter_Format_Empty(t *testing.T) {
	formatter := NewTreeFormatter(FormatterOptions{})
	assert.Equal(t, "No folders\n", formatter.Format(mcp.TreeResponse{}))
}

func TestTreeFormatter_Format_Text(t *testing.T) {
	formatter := NewTreeFormatter(FormatterOptions{Format: "text"})

	want := "" +
		"Projects (root)\n" +
		"├─ · quarterly plan (i4)\n" +
		"├─ Website (web)\n" +
		"│  ├─ * landing page (i1) #design\n" +
		"│  └─ * pricing page (i2)\n" +
		"└─ Operations (ops)\n"
	assert.Equal(t, want, formatter.Format(sampleTree()))
}

func TestTreeFormatter_Format_StateAndCounts(t *testing.T) {
	formatter := NewTreeFormatter(FormatterOptions{ShowCounts: true, ShowState: true})
	out := formatter.Format(sampleTree())

	assert.Contains(t, out, "[-] Projects (root)  4 items, 2 folders\n")
	assert.Contains(t, out, "├─ [x] Website (web)  2 items, 0 folders\n")
	assert.Contains(t, out, "└─ [ ] Operations (ops)  1 items, 0 folders\n")
}

func TestTreeFormatter_Format_Collapsed(t *testing.T) {
	formatter := NewTreeFormatter(FormatterOptions{})
	tree := mcp.TreeResponse{
		Folders: []mcp.FolderNode{{ID: "root", Name: "Projects", Collapsed: true}},
		Orphans: []types.ID{"lost"},
	}

	out := formatter.Format(tree)
	assert.Equal(t, "Projects (root)\n└─ ...\norphaned folders: [lost]\n", out)
}

func TestTreeFormatter_Format_Compact(t *testing.T) {
	formatter := NewTreeFormatter(FormatterOptions{Format: "compact"})

	want := "" +
		"Projects (root) +1\n" +
		"  Website (web) +2\n" +
		"  Operations (ops)\n"
	assert.Equal(t, want, formatter.Format(sampleTree()))
}

func TestStateMark(t *testing.T) {
	assert.Equal(t, "[x]", StateMark("all"))
	assert.Equal(t, "[-]", StateMark("some"))
	assert.Equal(t, "[ ]", StateMark("none"))
	assert.Equal(t, "[ ]", StateMark(""))
}
