package search

import (
	"sort"

	"github.com/standardbeagle/treeq/internal/types"
)

// Kind tells which collection a merged hit came from
type Kind int

const (
	KindFolder Kind = iota
	KindItem
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "item"
}

// Merged is a hit from either side of a folder/item search
type Merged[F, I any] struct {
	Kind   Kind
	ID     types.ID
	Score  float64
	Folder *Hit[F]
	Item   *Hit[I]
}

// Merge interleaves folder and item hits by raw score, ascending. Scores are
// compared as is, so both indices should use the same matcher. Equal scores
// keep folders ahead of items, each side in its own order.
func Merge[F, I any](folders []Hit[F], items []Hit[I]) []Merged[F, I] {
	out := make([]Merged[F, I], 0, len(folders)+len(items))
	for i := range folders {
		h := &folders[i]
		out = append(out, Merged[F, I]{Kind: KindFolder, ID: h.ID, Score: h.Score, Folder: h})
	}
	for i := range items {
		h := &items[i]
		out = append(out, Merged[F, I]{Kind: KindItem, ID: h.ID, Score: h.Score, Item: h})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score < out[b].Score })
	return out
}
