package query

import (
	"github.com/standardbeagle/treeq/internal/search"
	"github.com/standardbeagle/treeq/internal/types"
)

// Pseudo columns that only appear when actions or flags are configured
const (
	ActionsColumn = "_actions"
	FlagsColumn   = "_flags"
)

// Column describes one field of a record. A column is sortable when Compare
// is set and searchable when Searchable is set.
type Column[R any] struct {
	ID         string
	Label      string
	Value      func(R) string
	Searchable func(R) string
	Compare    func(a, b R) int
	Weight     float64
}

// Columns is an ordered column registry
type Columns[R any] []Column[R]

// Lookup finds a column by id
func (cs Columns[R]) Lookup(id string) (Column[R], bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return Column[R]{}, false
}

// IDs lists the column ids in order
func (cs Columns[R]) IDs() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

// Comparator returns the comparator for a sort spec with the direction
// applied by negation. Unknown or unsortable columns yield nil.
func (cs Columns[R]) Comparator(spec types.SortSpec, fallback types.SortDirection) func(a, b R) int {
	if !spec.Active() {
		return nil
	}
	col, ok := cs.Lookup(spec.Column)
	if !ok || col.Compare == nil {
		return nil
	}
	dir := spec.Direction
	if dir == "" {
		dir = fallback
	}
	if dir == types.SortDesc {
		return func(a, b R) int { return -col.Compare(a, b) }
	}
	return col.Compare
}

// SearchFields converts the searchable columns into index fields
func (cs Columns[R]) SearchFields() []search.Field[R] {
	var out []search.Field[R]
	for _, c := range cs {
		if c.Searchable == nil {
			continue
		}
		out = append(out, search.Field[R]{ID: c.ID, Extract: c.Searchable, Weight: c.Weight})
	}
	return out
}

// Config holds the collection level switches
type Config struct {
	Paginated        bool
	PageSize         int
	DefaultSortOrder types.SortDirection
	IndexSorted      bool
	Actions          []string
	Flags            []string
}

// DefaultConfig returns the defaults used when a field is left zero
func DefaultConfig() Config {
	return Config{
		Paginated:        true,
		PageSize:         types.DefaultPageSize,
		DefaultSortOrder: types.SortAsc,
	}
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = types.DefaultPageSize
	}
	if c.DefaultSortOrder == "" {
		c.DefaultSortOrder = types.SortAsc
	}
	return c
}

// VisibleColumns returns the column ids to display, followed by the action
// and flag pseudo columns when at least one action or flag is configured.
func (c Config) VisibleColumns(columns []string) []string {
	out := append([]string(nil), columns...)
	if len(c.Actions) > 0 {
		out = append(out, ActionsColumn)
	}
	if len(c.Flags) > 0 {
		out = append(out, FlagsColumn)
	}
	return out
}
