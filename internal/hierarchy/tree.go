// Package hierarchy reconstructs a folder tree from two flat collections and
// computes per-folder ancestor paths and subtree rollups.
//
// Nodes live in flat arenas owned by a Tree; every cross reference (folder to
// items, item to folder, path) is an identity lookup, so a Tree holds no
// pointer cycles and can be dropped wholesale on the next rebuild.
package hierarchy

import (
	"sort"

	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/types"
)

// Options controls ordering and linking
type Options[F, I any] struct {
	// ItemCompare orders the items inside each folder (stable). Nil keeps input order.
	ItemCompare func(a, b I) int
	// FolderCompare orders sibling folders, roots included (stable)
	FolderCompare func(a, b F) int
	// Linked enables parent links. When false the hierarchy is flat and
	// folders carry only their direct item counts.
	Linked bool
}

// Tree is an immutable snapshot of the built hierarchy
type Tree[F, I any] struct {
	folders   []MetaFolder[F]
	items     []MetaItem[I]
	folderIdx map[types.ID]int
	itemIdx   map[types.ID]int

	roots     []types.ID
	postOrder []types.ID
	orphans   []types.ID
	dropped   []types.ID
	linked    bool
}

// Build links folders and items into a Tree:
//
//  1. bucket items by folder, dropping items whose folder does not exist
//  2. attach each bucket to its folder (sorted) with direct counts
//  3. stop here when parent links are disabled
//  4. bucket folders by parent
//  5. walk down from the roots assigning paths and subfolder lists, folding
//     rollups on the way back up
//
// Folders that cannot be reached from a root, because their parent is missing
// or their parent chain is cyclic, are orphans: they keep only their direct
// items and are excluded from Roots.
func Build[F, I any](folders []BaseFolder[F], items []BaseItem[I], opts Options[F, I]) *Tree[F, I] {
	t := &Tree[F, I]{
		folders:   make([]MetaFolder[F], 0, len(folders)),
		items:     make([]MetaItem[I], 0, len(items)),
		folderIdx: make(map[types.ID]int, len(folders)),
		itemIdx:   make(map[types.ID]int, len(items)),
		linked:    opts.Linked,
	}

	for _, bf := range folders {
		if _, dup := t.folderIdx[bf.ID]; dup {
			debug.LogTree("duplicate folder %q ignored\n", bf.ID)
			continue
		}
		mf := MetaFolder[F]{ID: bf.ID, Model: bf.Model}
		if opts.Linked {
			mf.ParentID = bf.ParentID
		}
		t.folderIdx[bf.ID] = len(t.folders)
		t.folders = append(t.folders, mf)
	}

	// 1. bucket items
	buckets := make(map[types.ID][]int, len(t.folders))
	for _, bi := range items {
		if _, dup := t.itemIdx[bi.ID]; dup {
			debug.LogTree("duplicate item %q ignored\n", bi.ID)
			continue
		}
		if _, ok := t.folderIdx[bi.FolderID]; !ok {
			t.dropped = append(t.dropped, bi.ID)
			continue
		}
		t.itemIdx[bi.ID] = len(t.items)
		t.items = append(t.items, MetaItem[I]{ID: bi.ID, FolderID: bi.FolderID, Model: bi.Model})
		buckets[bi.FolderID] = append(buckets[bi.FolderID], len(t.items)-1)
	}
	if len(t.dropped) > 0 {
		debug.LogTree("dropped %d items referencing missing folders\n", len(t.dropped))
	}

	// 2. attach buckets
	for i := range t.folders {
		f := &t.folders[i]
		bucket := buckets[f.ID]
		if opts.ItemCompare != nil && len(bucket) > 1 {
			sort.SliceStable(bucket, func(a, b int) bool {
				return opts.ItemCompare(t.items[bucket[a]].Model, t.items[bucket[b]].Model) < 0
			})
		}
		f.Items = make([]types.ID, len(bucket))
		for k, idx := range bucket {
			f.Items[k] = t.items[idx].ID
		}
		f.ItemCount = len(bucket)
	}

	// 3. flat mode
	if !opts.Linked {
		all := make([]int, len(t.folders))
		for i := range all {
			all[i] = i
		}
		t.roots = t.idsOf(t.sortFolders(all, opts.FolderCompare))
		t.postOrder = t.roots
		debug.LogTree("built flat tree: %d folders, %d items\n", len(t.folders), len(t.items))
		return t
	}

	// 4. bucket folders by parent
	children := make(map[types.ID][]int, len(t.folders))
	var rootIdx []int
	for i := range t.folders {
		parent := t.folders[i].ParentID
		if parent.IsZero() {
			rootIdx = append(rootIdx, i)
			continue
		}
		children[parent] = append(children[parent], i)
	}

	// 5. paths and rollups
	visited := make([]bool, len(t.folders))
	t.postOrder = make([]types.ID, 0, len(t.folders))
	var visit func(i int, path []types.ID)
	visit = func(i int, path []types.ID) {
		visited[i] = true
		f := &t.folders[i]
		f.Path = path

		kids := t.sortFolders(children[f.ID], opts.FolderCompare)
		childPath := make([]types.ID, len(path), len(path)+1)
		copy(childPath, path)
		childPath = append(childPath, f.ID)

		for _, k := range kids {
			if visited[k] {
				continue
			}
			f.Folders = append(f.Folders, t.folders[k].ID)
			visit(k, childPath)
			f.ItemCount += t.folders[k].ItemCount
			f.FolderCount += 1 + t.folders[k].FolderCount
		}
		t.postOrder = append(t.postOrder, f.ID)
	}

	sortedRoots := t.sortFolders(rootIdx, opts.FolderCompare)
	for _, r := range sortedRoots {
		visit(r, nil)
	}
	t.roots = t.idsOf(sortedRoots)

	for i := range t.folders {
		if !visited[i] {
			t.orphans = append(t.orphans, t.folders[i].ID)
		}
	}
	if len(t.orphans) > 0 {
		debug.LogTree("%d folders unreachable from any root (missing or cyclic parent): %v\n", len(t.orphans), t.orphans)
	}

	debug.LogTree("built tree: %d folders (%d roots), %d items\n", len(t.folders), len(t.roots), len(t.items))
	return t
}

func (t *Tree[F, I]) sortFolders(idxs []int, cmp func(a, b F) int) []int {
	out := append([]int(nil), idxs...)
	if cmp != nil && len(out) > 1 {
		sort.SliceStable(out, func(a, b int) bool {
			return cmp(t.folders[out[a]].Model, t.folders[out[b]].Model) < 0
		})
	}
	return out
}

func (t *Tree[F, I]) idsOf(idxs []int) []types.ID {
	out := make([]types.ID, len(idxs))
	for k, i := range idxs {
		out[k] = t.folders[i].ID
	}
	return out
}

// Linked reports whether parent links were applied
func (t *Tree[F, I]) Linked() bool { return t.linked }

// Folders returns every folder in input order. The slice is shared; do not modify.
func (t *Tree[F, I]) Folders() []MetaFolder[F] { return t.folders }

// Items returns every linked item in input order. The slice is shared; do not modify.
func (t *Tree[F, I]) Items() []MetaItem[I] { return t.items }

// Folder looks a folder up by identity
func (t *Tree[F, I]) Folder(id types.ID) (*MetaFolder[F], bool) {
	i, ok := t.folderIdx[id]
	if !ok {
		return nil, false
	}
	return &t.folders[i], true
}

// Item looks an item up by identity
func (t *Tree[F, I]) Item(id types.ID) (*MetaItem[I], bool) {
	i, ok := t.itemIdx[id]
	if !ok {
		return nil, false
	}
	return &t.items[i], true
}

// FolderOf resolves an item's folder
func (t *Tree[F, I]) FolderOf(itemID types.ID) (*MetaFolder[F], bool) {
	it, ok := t.Item(itemID)
	if !ok {
		return nil, false
	}
	return t.Folder(it.FolderID)
}

// Roots returns the top level of the nested view
func (t *Tree[F, I]) Roots() []*MetaFolder[F] {
	return t.resolveFolders(t.roots)
}

// RootIDs returns the identities of the top level folders
func (t *Tree[F, I]) RootIDs() []types.ID { return t.roots }

// ItemsOf returns a folder's direct items
func (t *Tree[F, I]) ItemsOf(folderID types.ID) []*MetaItem[I] {
	f, ok := t.Folder(folderID)
	if !ok {
		return nil
	}
	out := make([]*MetaItem[I], len(f.Items))
	for k, id := range f.Items {
		out[k] = &t.items[t.itemIdx[id]]
	}
	return out
}

// FoldersOf returns a folder's direct subfolders
func (t *Tree[F, I]) FoldersOf(folderID types.ID) []*MetaFolder[F] {
	f, ok := t.Folder(folderID)
	if !ok {
		return nil
	}
	return t.resolveFolders(f.Folders)
}

// PathOf returns the ancestors of a folder, root first
func (t *Tree[F, I]) PathOf(folderID types.ID) []*MetaFolder[F] {
	f, ok := t.Folder(folderID)
	if !ok {
		return nil
	}
	return t.resolveFolders(f.Path)
}

func (t *Tree[F, I]) resolveFolders(ids []types.ID) []*MetaFolder[F] {
	out := make([]*MetaFolder[F], len(ids))
	for k, id := range ids {
		out[k] = &t.folders[t.folderIdx[id]]
	}
	return out
}

// DescendantItemIDs lists every item below a folder, or only its direct items
// when shallow is set. Unknown folders yield nil.
func (t *Tree[F, I]) DescendantItemIDs(folderID types.ID, shallow bool) []types.ID {
	f, ok := t.Folder(folderID)
	if !ok {
		return nil
	}
	if shallow {
		return append([]types.ID(nil), f.Items...)
	}
	out := make([]types.ID, 0, f.ItemCount)
	stack := []*MetaFolder[F]{f}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur.Items...)
		for k := len(cur.Folders) - 1; k >= 0; k-- {
			stack = append(stack, &t.folders[t.folderIdx[cur.Folders[k]]])
		}
	}
	return out
}

// PostOrder lists every folder reachable from a root with children before
// their parents
func (t *Tree[F, I]) PostOrder() []types.ID { return t.postOrder }

// Orphans lists folders unreachable from any root
func (t *Tree[F, I]) Orphans() []types.ID { return t.orphans }

// Dropped lists items whose folder did not exist
func (t *Tree[F, I]) Dropped() []types.ID { return t.dropped }

// Walk visits the nested view depth first, roots in order. Returning false
// from fn skips that folder's subtree.
func (t *Tree[F, I]) Walk(fn func(f *MetaFolder[F]) bool) {
	var visit func(ids []types.ID)
	visit = func(ids []types.ID) {
		for _, id := range ids {
			f := &t.folders[t.folderIdx[id]]
			if fn(f) {
				visit(f.Folders)
			}
		}
	}
	visit(t.roots)
}
