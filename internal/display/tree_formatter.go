package display

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/treeq/internal/mcp"
	"github.com/standardbeagle/treeq/internal/selection"
)

// TreeFormatter formats folder trees for the terminal
type TreeFormatter struct {
	options FormatterOptions
}

// FormatterOptions controls tree formatting
type FormatterOptions struct {
	Format     string // "text" or "compact"
	ShowCounts bool   // Show subtree item/folder counts
	ShowState  bool   // Prefix folders with their selection mark
	Indent     string // Indentation string for compact output
}

// NewTreeFormatter creates a new tree formatter
func NewTreeFormatter(options FormatterOptions) *TreeFormatter {
	if options.Indent == "" {
		options.Indent = "  "
	}
	return &TreeFormatter{options: options}
}

// StateMark renders a tri-state name as a checkbox
func StateMark(state string) string {
	switch state {
	case selection.All.String():
		return "[x]"
	case selection.Some.String():
		return "[-]"
	default:
		return "[ ]"
	}
}

// Format formats a tree response for display
func (tf *TreeFormatter) Format(tree mcp.TreeResponse) string {
	if len(tree.Folders) == 0 {
		return "No folders\n"
	}

	var sb strings.Builder
	switch tf.options.Format {
	case "compact":
		for _, f := range tree.Folders {
			tf.formatCompact(&sb, f, "")
		}
	default:
		for i, f := range tree.Folders {
			tf.formatNode(&sb, f, "", i == len(tree.Folders)-1, true)
		}
	}

	if len(tree.Orphans) > 0 {
		sb.WriteString(fmt.Sprintf("orphaned folders: %v\n", tree.Orphans))
	}
	if len(tree.Dropped) > 0 {
		sb.WriteString(fmt.Sprintf("items without a folder: %v\n", tree.Dropped))
	}
	return sb.String()
}

func (tf *TreeFormatter) folderLabel(node mcp.FolderNode) string {
	var sb strings.Builder
	if tf.options.ShowState {
		sb.WriteString(StateMark(node.State))
		sb.WriteString(" ")
	}
	sb.WriteString(fmt.Sprintf("%s (%s)", node.Name, node.ID))
	if tf.options.ShowCounts {
		sb.WriteString(fmt.Sprintf("  %d items, %d folders", node.ItemCount, node.FolderCount))
	}
	return sb.String()
}

func itemLabel(it mcp.ItemRow) string {
	mark := "·"
	if it.Selected {
		mark = "*"
	}
	label := fmt.Sprintf("%s %s (%s)", mark, it.Name, it.ID)
	if len(it.Tags) > 0 {
		label += " #" + strings.Join(it.Tags, " #")
	}
	return label
}

// formatNode recursively formats a folder with box-drawing branches
func (tf *TreeFormatter) formatNode(sb *strings.Builder, node mcp.FolderNode, prefix string, isLast, isRoot bool) {
	var branch, childPrefix string
	switch {
	case isRoot:
		childPrefix = prefix
	case isLast:
		branch = "└─ "
		childPrefix = prefix + "   "
	default:
		branch = "├─ "
		childPrefix = prefix + "│  "
	}

	sb.WriteString(prefix)
	sb.WriteString(branch)
	sb.WriteString(tf.folderLabel(node))
	sb.WriteString("\n")

	children := len(node.Items) + len(node.Folders)
	if node.Collapsed {
		children++
	}
	n := 0
	next := func() string {
		n++
		if n == children {
			return "└─ "
		}
		return "├─ "
	}

	for _, it := range node.Items {
		sb.WriteString(childPrefix + next() + itemLabel(it) + "\n")
	}
	for _, child := range node.Folders {
		n++
		tf.formatNode(sb, child, childPrefix, n == children, false)
	}
	if node.Collapsed {
		sb.WriteString(childPrefix + next() + "...\n")
	}
}

// formatCompact writes one indented line per folder, items folded into a count
func (tf *TreeFormatter) formatCompact(sb *strings.Builder, node mcp.FolderNode, indent string) {
	sb.WriteString(indent)
	sb.WriteString(tf.folderLabel(node))
	if len(node.Items) > 0 {
		sb.WriteString(fmt.Sprintf(" +%d", len(node.Items)))
	}
	if node.Collapsed {
		sb.WriteString(" ...")
	}
	sb.WriteString("\n")
	for _, child := range node.Folders {
		tf.formatCompact(sb, child, indent+tf.options.Indent)
	}
}
