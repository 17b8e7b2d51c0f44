// Package selection owns the selected item set and derives tri-state
// (none/some/all) folder states from it.
package selection

import (
	"github.com/standardbeagle/treeq/internal/cell"
	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/hierarchy"
	"github.com/standardbeagle/treeq/internal/types"
)

// Mode limits how many items may be selected
type Mode int

const (
	// Single keeps at most one selected item
	Single Mode = iota
	// Range allows any number of selected items
	Range
)

// Engine owns the selected id set. Every write replaces the set with a new
// snapshot, so readers may keep the set they were handed.
type Engine struct {
	mode     Mode
	selected *cell.Value[types.IDSet]
	known    func(types.ID) bool
}

// NewEngine creates an empty selection
func NewEngine(mode Mode) *Engine {
	return &Engine{
		mode: mode,
		selected: cell.NewValue(types.NewIDSet(), cell.WithEqual(func(a, b types.IDSet) bool {
			return a.Equal(b)
		})),
	}
}

// SetValidator restricts selection to ids accepted by known. Unknown ids
// are ignored.
func (e *Engine) SetValidator(known func(types.ID) bool) {
	e.known = known
}

// Mode returns the selection mode
func (e *Engine) Mode() Mode { return e.mode }

// Cell exposes the selection for derived values
func (e *Engine) Cell() cell.Readable[types.IDSet] { return e.selected }

// Watch registers fn to run after every selection change
func (e *Engine) Watch(fn func()) func() { return e.selected.Watch(fn) }

// Selected returns the current snapshot. Do not modify it.
func (e *Engine) Selected() types.IDSet { return e.selected.Get() }

// IsSelected reports whether id is selected
func (e *Engine) IsSelected(id types.ID) bool { return e.selected.Get().Has(id) }

// Len returns the number of selected items
func (e *Engine) Len() int { return len(e.selected.Get()) }

func (e *Engine) accept(id types.ID) bool {
	if id.IsZero() {
		return false
	}
	return e.known == nil || e.known(id)
}

func (e *Engine) commit(next types.IDSet) bool {
	before := e.selected.Version()
	e.selected.Set(next)
	changed := e.selected.Version() != before
	if changed {
		debug.LogSelect("selection now holds %d items\n", len(next))
	}
	return changed
}

// Select adds ids. In Single mode the last accepted id replaces the selection.
func (e *Engine) Select(ids ...types.ID) bool {
	if e.mode == Single {
		for k := len(ids) - 1; k >= 0; k-- {
			if e.accept(ids[k]) {
				return e.commit(types.NewIDSet(ids[k]))
			}
		}
		return false
	}
	next := e.selected.Get().Clone()
	for _, id := range ids {
		if e.accept(id) {
			next[id] = struct{}{}
		}
	}
	return e.commit(next)
}

// Deselect removes ids
func (e *Engine) Deselect(ids ...types.ID) bool {
	next := e.selected.Get().Clone()
	for _, id := range ids {
		delete(next, id)
	}
	return e.commit(next)
}

// Toggle flips a single id
func (e *Engine) Toggle(id types.ID) bool {
	if e.IsSelected(id) {
		return e.Deselect(id)
	}
	return e.Select(id)
}

// Clear empties the selection
func (e *Engine) Clear() bool {
	return e.commit(types.NewIDSet())
}

// SetSelected replaces the selection. In Single mode only the
// lexically smallest accepted id is kept.
func (e *Engine) SetSelected(ids types.IDSet) bool {
	next := types.NewIDSet()
	for _, id := range ids.Sorted() {
		if !e.accept(id) {
			continue
		}
		next[id] = struct{}{}
		if e.mode == Single {
			break
		}
	}
	return e.commit(next)
}

// ToggleFolder selects or clears every item below a folder (only its direct
// items when shallow). A nil checked toggles: to All unless the folder is
// already All, in which case it clears. In Single mode a folder can never be
// All once it holds more than one item, so a nil checked clears whenever the
// folder is not None. Unknown folders are a no-op.
func ToggleFolder[F, I any](e *Engine, tree *hierarchy.Tree[F, I], ref FolderRef[F], checked *bool, shallow bool) bool {
	f, ok := Resolve(tree, ref)
	if !ok {
		return false
	}
	ids := tree.DescendantItemIDs(f.ID, shallow)

	var want bool
	if checked != nil {
		want = *checked
	} else {
		state := pointState(tree, f, e.Selected())
		if e.mode == Single {
			want = state == None
		} else {
			want = state != All
		}
	}

	if want {
		return e.Select(ids...)
	}
	return e.Deselect(ids...)
}
