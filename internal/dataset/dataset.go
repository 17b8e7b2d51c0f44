// Package dataset defines the concrete folder and item records served by the
// CLI and the MCP server, and binds them to the generic pipelines.
package dataset

import (
	"sort"
	"strconv"
	"strings"

	"github.com/standardbeagle/treeq/internal/query"
	"github.com/standardbeagle/treeq/internal/types"
)

// Folder is a named container. An empty ParentID makes it a root.
type Folder struct {
	ID       types.ID          `json:"id" yaml:"id" toml:"id"`
	ParentID types.ID          `json:"parent_id,omitempty" yaml:"parent_id,omitempty" toml:"parent_id,omitempty"`
	Name     string            `json:"name" yaml:"name" toml:"name"`
	Tags     []string          `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty" toml:"attrs,omitempty"`
}

// GetID implements types.Identifiable
func (f Folder) GetID() types.ID { return f.ID }

// Item is a leaf record filed under one folder
type Item struct {
	ID       types.ID          `json:"id" yaml:"id" toml:"id"`
	FolderID types.ID          `json:"folder_id" yaml:"folder_id" toml:"folder_id"`
	Name     string            `json:"name" yaml:"name" toml:"name"`
	Tags     []string          `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty" toml:"attrs,omitempty"`
	Order    int               `json:"order,omitempty" yaml:"order,omitempty" toml:"order,omitempty"`
}

// GetID implements types.Identifiable
func (i Item) GetID() types.ID { return i.ID }

// FolderParent links folders to their parent
func FolderParent(f Folder) types.ID { return f.ParentID }

// ItemFolder links items to their folder
func ItemFolder(i Item) types.ID { return i.FolderID }

// FilterState is the user-controlled filter input shared by folders and items
type FilterState struct {
	// Glob matches item names
	Glob string `json:"glob,omitempty" toml:"glob,omitempty"`
	// FolderGlob matches folder names; hidden folders take their items with them
	FolderGlob string   `json:"folder_glob,omitempty" toml:"folder_glob,omitempty"`
	Tags       []string `json:"tags,omitempty" toml:"tags,omitempty"`
	Folder     types.ID `json:"folder,omitempty" toml:"folder,omitempty"`
}

// Column ids
const (
	ColumnID    = "id"
	ColumnName  = "name"
	ColumnTags  = "tags"
	ColumnOrder = "order"
	// ColumnAttrs searches every attribute value, whatever its key
	ColumnAttrs = "attrs"
)

func joinTags(tags []string) string { return strings.Join(tags, " ") }

func compareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// attrKeys returns the sorted union of attribute keys
func attrKeys[R any](records []R, attrs func(R) map[string]string) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range attrs(r) {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// attrText joins attribute values in key order
func attrText(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = attrs[k]
	}
	return strings.Join(vals, " ")
}

// attrsColumn is searchable over all attribute values, so keys first seen in a
// later snapshot are found without rebuilding the registry
func attrsColumn[R any](attrs func(R) map[string]string) query.Column[R] {
	text := func(r R) string { return attrText(attrs(r)) }
	return query.Column[R]{
		ID:         ColumnAttrs,
		Label:      "Attributes",
		Value:      text,
		Searchable: text,
		Weight:     0.5,
	}
}

// attrColumn exposes one attribute key for sorting and display
func attrColumn[R any](key string, attrs func(R) map[string]string) query.Column[R] {
	value := func(r R) string { return attrs(r)[key] }
	return query.Column[R]{
		ID:      ColumnAttrs + "." + key,
		Label:   key,
		Value:   value,
		Compare: func(a, b R) int { return compareNames(value(a), value(b)) },
	}
}

// FolderColumns returns the folder column registry. Attribute values are
// searched through one attrs column; each listed key adds a sortable
// attrs.<key> column.
func FolderColumns(attrs ...string) query.Columns[Folder] {
	name := func(f Folder) string { return f.Name }
	cols := query.Columns[Folder]{
		{ID: ColumnID, Label: "ID", Value: func(f Folder) string { return string(f.ID) },
			Compare: func(a, b Folder) int { return strings.Compare(string(a.ID), string(b.ID)) }},
		{ID: ColumnName, Label: "Name", Value: name, Searchable: name,
			Compare: func(a, b Folder) int { return compareNames(a.Name, b.Name) }, Weight: 1},
		{ID: ColumnTags, Label: "Tags", Value: func(f Folder) string { return joinTags(f.Tags) },
			Searchable: func(f Folder) string { return joinTags(f.Tags) }, Weight: 0.5},
	}
	folderAttrs := func(f Folder) map[string]string { return f.Attrs }
	cols = append(cols, attrsColumn(folderAttrs))
	for _, k := range attrs {
		cols = append(cols, attrColumn(k, folderAttrs))
	}
	return cols
}

// ItemColumns returns the item column registry
func ItemColumns(attrs ...string) query.Columns[Item] {
	name := func(i Item) string { return i.Name }
	cols := query.Columns[Item]{
		{ID: ColumnID, Label: "ID", Value: func(i Item) string { return string(i.ID) },
			Compare: func(a, b Item) int { return strings.Compare(string(a.ID), string(b.ID)) }},
		{ID: ColumnName, Label: "Name", Value: name, Searchable: name,
			Compare: func(a, b Item) int { return compareNames(a.Name, b.Name) }, Weight: 1},
		{ID: ColumnTags, Label: "Tags", Value: func(i Item) string { return joinTags(i.Tags) },
			Searchable: func(i Item) string { return joinTags(i.Tags) }, Weight: 0.5},
		{ID: ColumnOrder, Label: "Order", Value: func(i Item) string { return strconv.Itoa(i.Order) },
			Compare: func(a, b Item) int { return a.Order - b.Order }},
	}
	itemAttrs := func(i Item) map[string]string { return i.Attrs }
	cols = append(cols, attrsColumn(itemAttrs))
	for _, k := range attrs {
		cols = append(cols, attrColumn(k, itemAttrs))
	}
	return cols
}

// ItemAttrKeys lists the attribute keys used by any item
func ItemAttrKeys(items []Item) []string {
	return attrKeys(items, func(i Item) map[string]string { return i.Attrs })
}

// FolderAttrKeys lists the attribute keys used by any folder
func FolderAttrKeys(folders []Folder) []string {
	return attrKeys(folders, func(f Folder) map[string]string { return f.Attrs })
}

// ItemFilters returns the item filters driven by FilterState
func ItemFilters() []query.Filter[Item, FilterState] {
	return []query.Filter[Item, FilterState]{
		query.GlobFilter[Item, FilterState]("glob",
			func(i Item) string { return i.Name },
			func(s FilterState) string { return s.Glob }),
		query.AnyOfFilter[Item, FilterState]("tags",
			func(i Item) []string { return i.Tags },
			func(s FilterState) []string { return s.Tags }),
		query.EqualsFilter[Item, FilterState]("folder",
			func(i Item) string { return string(i.FolderID) },
			func(s FilterState) string { return string(s.Folder) }),
	}
}

// FolderFilters returns the folder filters driven by FilterState
func FolderFilters() []query.Filter[Folder, FilterState] {
	return []query.Filter[Folder, FilterState]{
		query.GlobFilter[Folder, FilterState]("folder_glob",
			func(f Folder) string { return f.Name },
			func(s FilterState) string { return s.FolderGlob }),
	}
}
