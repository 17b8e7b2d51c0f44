package selection

import (
	"github.com/standardbeagle/treeq/internal/hierarchy"
	"github.com/standardbeagle/treeq/internal/types"
)

// RefKind tells which variant a FolderRef holds
type RefKind int

const (
	KindID RefKind = iota
	KindBase
	KindMeta
)

// FolderRef addresses a folder by identity, by its raw record or by an
// already built node. It is resolved once against a Tree at the entry of each
// operation.
type FolderRef[F any] struct {
	kind RefKind
	id   types.ID
	base *hierarchy.BaseFolder[F]
	meta *hierarchy.MetaFolder[F]
}

// RefID refers to a folder by identity
func RefID[F any](id types.ID) FolderRef[F] {
	return FolderRef[F]{kind: KindID, id: id}
}

// RefBase refers to a folder by its raw record
func RefBase[F any](b hierarchy.BaseFolder[F]) FolderRef[F] {
	return FolderRef[F]{kind: KindBase, id: b.ID, base: &b}
}

// RefMeta refers to a built folder node
func RefMeta[F any](m *hierarchy.MetaFolder[F]) FolderRef[F] {
	if m == nil {
		return FolderRef[F]{kind: KindMeta}
	}
	return FolderRef[F]{kind: KindMeta, id: m.ID, meta: m}
}

// Kind returns the variant
func (r FolderRef[F]) Kind() RefKind { return r.kind }

// ID returns the referenced identity
func (r FolderRef[F]) ID() types.ID { return r.id }

// Resolve finds the node in tree by identity, so a node kept from an earlier
// snapshot resolves to its current counterpart.
func Resolve[F, I any](tree *hierarchy.Tree[F, I], r FolderRef[F]) (*hierarchy.MetaFolder[F], bool) {
	if tree == nil || r.id.IsZero() {
		return nil, false
	}
	return tree.Folder(r.id)
}
