package hierarchy

import (
	"github.com/standardbeagle/treeq/internal/types"
)

// BaseFolder is a raw folder record with its optional parent link
type BaseFolder[F any] struct {
	ID       types.ID
	ParentID types.ID
	Model    F
}

// BaseItem is a raw item record with the folder it belongs to
type BaseItem[I any] struct {
	ID       types.ID
	FolderID types.ID
	Model    I
}

// MetaFolder is a linked, rollup-enriched folder node. Cross references are
// identities resolved through the owning Tree.
type MetaFolder[F any] struct {
	ID       types.ID
	ParentID types.ID
	Model    F

	// Path holds the strict ancestors, root first. Roots and orphans have none.
	Path []types.ID
	// Items and Folders are the direct children, already sorted
	Items   []types.ID
	Folders []types.ID

	// ItemCount and FolderCount cover the whole subtree
	ItemCount   int
	FolderCount int
}

// Depth is the number of ancestors
func (f *MetaFolder[F]) Depth() int {
	return len(f.Path)
}

// IsRoot reports whether the folder has no parent
func (f *MetaFolder[F]) IsRoot() bool {
	return f.ParentID.IsZero()
}

// MetaItem is an item linked to its folder
type MetaItem[I any] struct {
	ID       types.ID
	FolderID types.ID
	Model    I
}

// DeriveFolders wraps raw records. A nil parentOf produces a flat hierarchy.
func DeriveFolders[F types.Identifiable](records []F, parentOf func(F) types.ID) []BaseFolder[F] {
	out := make([]BaseFolder[F], len(records))
	for i, r := range records {
		out[i] = BaseFolder[F]{ID: r.GetID(), Model: r}
		if parentOf != nil {
			out[i].ParentID = parentOf(r)
		}
	}
	return out
}

// DeriveItems wraps raw item records using the item->folder selector
func DeriveItems[I types.Identifiable](records []I, folderOf func(I) types.ID) []BaseItem[I] {
	out := make([]BaseItem[I], len(records))
	for i, r := range records {
		out[i] = BaseItem[I]{ID: r.GetID(), FolderID: folderOf(r), Model: r}
	}
	return out
}

// FlattenChildren derives items in "folder owns children" mode: every child a
// folder declares is stamped with that folder's identity.
func FlattenChildren[F, I types.Identifiable](folders []F, childrenOf func(F) []I) []BaseItem[I] {
	var out []BaseItem[I]
	for _, f := range folders {
		fid := f.GetID()
		for _, child := range childrenOf(f) {
			out = append(out, BaseItem[I]{ID: child.GetID(), FolderID: fid, Model: child})
		}
	}
	return out
}
