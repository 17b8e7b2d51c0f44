package selection

import (
	"github.com/standardbeagle/treeq/internal/hierarchy"
	"github.com/standardbeagle/treeq/internal/types"
)

// FolderState answers a single folder query by walking its subtree. It
// stops at the first disagreement. Unknown folders report None.
func FolderState[F, I any](tree *hierarchy.Tree[F, I], ref FolderRef[F], selected types.IDSet) TriState {
	f, ok := Resolve(tree, ref)
	if !ok {
		return None
	}
	return pointState(tree, f, selected)
}

func pointState[F, I any](tree *hierarchy.Tree[F, I], f *hierarchy.MetaFolder[F], selected types.IDSet) TriState {
	var acc Accumulator
	for _, id := range f.Items {
		if acc.Add(itemState(selected.Has(id))) {
			return Some
		}
	}
	for _, sub := range tree.FoldersOf(f.ID) {
		if acc.Add(pointState(tree, sub, selected)) {
			return Some
		}
	}
	return acc.Result()
}

// StateMap holds precomputed states for every folder of a tree
type StateMap map[types.ID]TriState

// Get returns the state of id, None when unknown
func (m StateMap) Get(id types.ID) TriState {
	return m[id]
}

// BulkStates computes every folder's state in O(items + folders): one pass
// over the selection counts selected direct items per folder, then one
// bottom-up pass folds children into parents.
func BulkStates[F, I any](tree *hierarchy.Tree[F, I], selected types.IDSet) StateMap {
	if tree == nil {
		return StateMap{}
	}
	folders := tree.Folders()

	counts := make(map[types.ID]int, len(folders))
	for id := range selected {
		if it, ok := tree.Item(id); ok {
			counts[it.FolderID]++
		}
	}

	out := make(StateMap, len(folders))
	fold := func(f *hierarchy.MetaFolder[F]) {
		var acc Accumulator
		if s, ok := shallowState(counts[f.ID], len(f.Items)); ok {
			acc.Add(s)
		}
		for _, child := range f.Folders {
			if acc.Add(out[child]) {
				break
			}
		}
		out[f.ID] = acc.Result()
	}

	for _, id := range tree.PostOrder() {
		f, _ := tree.Folder(id)
		fold(f)
	}
	// orphans have no subfolders and are not part of the post-order walk
	for _, id := range tree.Orphans() {
		f, _ := tree.Folder(id)
		fold(f)
	}
	return out
}
