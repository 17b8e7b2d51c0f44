package testhelpers

import (
	"fmt"
	"math/rand"

	"github.com/standardbeagle/treeq/internal/types"
)

// Folder is a minimal folder record for engine tests
type Folder struct {
	ID     types.ID
	Parent types.ID
	Name   string
	Rank   int
}

// GetID implements types.Identifiable
func (f Folder) GetID() types.ID { return f.ID }

// Item is a minimal item record for engine tests
type Item struct {
	ID     types.ID
	Folder types.ID
	Name   string
	Rank   int
	Tags   []string
}

// GetID implements types.Identifiable
func (i Item) GetID() types.ID { return i.ID }

// FolderParent is the parent selector for Folder fixtures
func FolderParent(f Folder) types.ID { return f.Parent }

// ItemFolder is the folder selector for Item fixtures
func ItemFolder(i Item) types.ID { return i.Folder }

// TreeDataBuilder builds folder/item fixtures without shared state
type TreeDataBuilder struct {
	folders []Folder
	items   []Item
}

// NewTreeDataBuilder creates an empty builder
func NewTreeDataBuilder() *TreeDataBuilder {
	return &TreeDataBuilder{}
}

// AddFolder appends a folder. An empty parent makes it a root.
func (b *TreeDataBuilder) AddFolder(id, parent, name string) *TreeDataBuilder {
	b.folders = append(b.folders, Folder{
		ID:     types.ID(id),
		Parent: types.ID(parent),
		Name:   name,
		Rank:   len(b.folders),
	})
	return b
}

// AddItem appends an item inside folder
func (b *TreeDataBuilder) AddItem(id, folder, name string, tags ...string) *TreeDataBuilder {
	b.items = append(b.items, Item{
		ID:     types.ID(id),
		Folder: types.ID(folder),
		Name:   name,
		Rank:   len(b.items),
		Tags:   tags,
	})
	return b
}

// AddItems appends n items named "<prefix>-<k>" inside folder
func (b *TreeDataBuilder) AddItems(folder, prefix string, n int) *TreeDataBuilder {
	for k := 0; k < n; k++ {
		id := fmt.Sprintf("%s-%d", prefix, k)
		b.AddItem(id, folder, id)
	}
	return b
}

// Folders returns a copy of the folders added so far
func (b *TreeDataBuilder) Folders() []Folder {
	return append([]Folder(nil), b.folders...)
}

// Items returns a copy of the items added so far
func (b *TreeDataBuilder) Items() []Item {
	return append([]Item(nil), b.items...)
}

// ItemIDs lists every item id in insertion order
func (b *TreeDataBuilder) ItemIDs() []types.ID {
	ids := make([]types.ID, len(b.items))
	for i, it := range b.items {
		ids[i] = it.ID
	}
	return ids
}

// RandomTree builds a random acyclic forest. Parents always precede their
// children so every folder is reachable from a root.
func RandomTree(rng *rand.Rand, folders, items int) *TreeDataBuilder {
	b := NewTreeDataBuilder()
	for f := 0; f < folders; f++ {
		parent := ""
		if f > 0 && rng.Intn(4) != 0 {
			parent = fmt.Sprintf("F%d", rng.Intn(f))
		}
		b.AddFolder(fmt.Sprintf("F%d", f), parent, fmt.Sprintf("folder %d", f))
	}
	if folders == 0 {
		return b
	}
	for i := 0; i < items; i++ {
		b.AddItem(fmt.Sprintf("I%d", i), fmt.Sprintf("F%d", rng.Intn(folders)), fmt.Sprintf("item %d", i))
	}
	return b
}

// RandomSubset picks each id with probability p
func RandomSubset(rng *rand.Rand, ids []types.ID, p float64) types.IDSet {
	out := types.NewIDSet()
	for _, id := range ids {
		if rng.Float64() < p {
			out[id] = struct{}{}
		}
	}
	return out
}
