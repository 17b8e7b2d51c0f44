package query

import (
	"github.com/standardbeagle/treeq/internal/cell"
	treeqerrors "github.com/standardbeagle/treeq/internal/errors"
	"github.com/standardbeagle/treeq/internal/hierarchy"
	"github.com/standardbeagle/treeq/internal/search"
	"github.com/standardbeagle/treeq/internal/selection"
	"github.com/standardbeagle/treeq/internal/types"
)

// HierarchySpec describes a folder/item pipeline. Exactly one of FolderOf
// (items name their folder) or ChildrenOf (folders own their items) links
// the two collections; ParentOf is optional and enables nesting.
type HierarchySpec[F, I types.Identifiable, S any] struct {
	Config        Config
	ParentOf      func(F) types.ID
	FolderOf      func(I) types.ID
	ChildrenOf    func(F) []I
	FolderColumns Columns[F]
	ItemColumns   Columns[I]
	FolderFilters []Filter[F, S]
	ItemFilters   []Filter[I, S]
	SelectionMode selection.Mode
	Store         StateStore[S]
	Options
}

// HierarchyInputs are the cells a Hierarchy reads. Nil cells are created internally.
type HierarchyInputs[F, I, S any] struct {
	Folders     cell.Cell[[]F]
	Items       cell.Cell[[]I]
	Blacklists  []cell.Readable[[]types.ID]
	FilterState cell.Cell[S]
	Sort        cell.Cell[types.SortSpec]
	Query       cell.Cell[string]
}

// SearchRow is a merged search hit re-attached to the current tree
type SearchRow[F, I any] struct {
	Kind  search.Kind
	ID    types.ID
	Score float64
	Field string
	// Folder is the matched folder, or the folder holding the matched item
	Folder *hierarchy.MetaFolder[F]
	Item   *hierarchy.MetaItem[I]
	// Path lists the ancestors of the row, root first
	Path []*hierarchy.MetaFolder[F]
}

// View is what a hierarchy renders: the nested roots, or ranked rows while a
// query is committed
type View[F, I any] struct {
	Searching bool
	Roots     []*hierarchy.MetaFolder[F]
	Rows      []SearchRow[F, I]
}

// Hierarchy is the reactive pipeline over two linked collections:
//
//	folders, items -> base records -> filtered -> tree -> roots
//	                                        \-> folder/item indices -> merged rows
//	tree + selection -> folder states
type Hierarchy[F, I types.Identifiable, S any] struct {
	spec  HierarchySpec[F, I, S]
	in    HierarchyInputs[F, I, S]
	query *queryInput

	baseFolders     *cell.Memo[[]hierarchy.BaseFolder[F]]
	baseItems       *cell.Memo[[]hierarchy.BaseItem[I]]
	filteredFolders *cell.Memo[[]hierarchy.BaseFolder[F]]
	filteredItems   *cell.Memo[[]hierarchy.BaseItem[I]]
	tree            *cell.Memo[*hierarchy.Tree[F, I]]
	folderIndex     *cell.Memo[*search.Index[F]]
	itemIndex       *cell.Memo[*search.Index[I]]
	searched        *cell.Memo[[]SearchRow[F, I]]

	selection *selection.Engine
	states    *cell.Memo[selection.StateMap]

	closers []func()
}

// NewHierarchy builds the pipeline. It fails only when the HierarchySpec cannot link
// items to folders.
func NewHierarchy[F, I types.Identifiable, S any](spec HierarchySpec[F, I, S], in HierarchyInputs[F, I, S]) (*Hierarchy[F, I, S], error) {
	if spec.FolderOf == nil && spec.ChildrenOf == nil {
		return nil, treeqerrors.NewConfigError("hierarchy", "", treeqerrors.ErrMissingLink)
	}
	spec.Config = spec.Config.withDefaults()
	if in.Folders == nil {
		in.Folders = cell.NewValue[[]F](nil)
	}
	if in.Items == nil {
		in.Items = cell.NewValue[[]I](nil)
	}
	if in.FilterState == nil {
		var zero S
		in.FilterState = cell.NewValue(zero)
	}
	if in.Sort == nil {
		in.Sort = cell.NewValue(types.SortSpec{})
	}

	h := &Hierarchy[F, I, S]{spec: spec, in: in}
	h.query = newQueryInput(in.Query, spec.Options)
	h.in.Query = h.query.raw
	hook := cell.OnCompute(logStage)

	h.baseFolders = cell.NewMemo(func() []hierarchy.BaseFolder[F] {
		return hierarchy.DeriveFolders(h.in.Folders.Get(), spec.ParentOf)
	}, cell.Deps(in.Folders), cell.Named("baseFolders"), hook)

	itemDeps := cell.Deps(in.Items)
	if spec.FolderOf == nil {
		itemDeps = cell.Deps(in.Folders)
	}
	h.baseItems = cell.NewMemo(func() []hierarchy.BaseItem[I] {
		if spec.FolderOf != nil {
			return hierarchy.DeriveItems(h.in.Items.Get(), spec.FolderOf)
		}
		return hierarchy.FlattenChildren(h.in.Folders.Get(), spec.ChildrenOf)
	}, itemDeps, cell.Named("baseItems"), hook)

	blDeps := observables(in.Blacklists)
	h.filteredFolders = cell.NewMemo(func() []hierarchy.BaseFolder[F] {
		out := removeIDs(h.baseFolders.Get(), func(b hierarchy.BaseFolder[F]) types.ID { return b.ID }, blacklistSet(h.in.Blacklists))
		return applyFilters(out, func(b hierarchy.BaseFolder[F]) F { return b.Model }, spec.FolderFilters, h.in.FilterState.Get())
	}, append(cell.Deps(h.baseFolders, in.FilterState), blDeps...), cell.Named("filteredFolders"), hook)

	h.filteredItems = cell.NewMemo(func() []hierarchy.BaseItem[I] {
		out := removeIDs(h.baseItems.Get(), func(b hierarchy.BaseItem[I]) types.ID { return b.ID }, blacklistSet(h.in.Blacklists))
		return applyFilters(out, func(b hierarchy.BaseItem[I]) I { return b.Model }, spec.ItemFilters, h.in.FilterState.Get())
	}, append(cell.Deps(h.baseItems, in.FilterState), blDeps...), cell.Named("filteredItems"), hook)

	h.tree = cell.NewMemo(func() *hierarchy.Tree[F, I] {
		sortSpec := h.in.Sort.Get()
		return hierarchy.Build(h.filteredFolders.Get(), h.filteredItems.Get(), hierarchy.Options[F, I]{
			ItemCompare:   spec.ItemColumns.Comparator(sortSpec, spec.Config.DefaultSortOrder),
			FolderCompare: spec.FolderColumns.Comparator(sortSpec, spec.Config.DefaultSortOrder),
			Linked:        spec.ParentOf != nil,
		})
	}, cell.Deps(h.filteredFolders, h.filteredItems, in.Sort), cell.Named("tree"), hook)

	fix := search.NewIndex(spec.FolderColumns.SearchFields(), spec.Options.indexOptions()...)
	h.folderIndex = cell.NewMemo(func() *search.Index[F] {
		bases := h.filteredFolders.Get()
		models := make([]F, len(bases))
		for i, b := range bases {
			models[i] = b.Model
		}
		fix.Sync(models)
		return fix
	}, cell.Deps(h.filteredFolders), cell.Named("folderIndex"), hook)

	iix := search.NewIndex(spec.ItemColumns.SearchFields(), spec.Options.indexOptions()...)
	h.itemIndex = cell.NewMemo(func() *search.Index[I] {
		bases := h.filteredItems.Get()
		models := make([]I, len(bases))
		for i, b := range bases {
			models[i] = b.Model
		}
		iix.Sync(models)
		return iix
	}, cell.Deps(h.filteredItems), cell.Named("itemIndex"), hook)

	h.searched = cell.NewMemo(h.computeSearch,
		cell.Deps(h.folderIndex, h.itemIndex, h.tree, h.query.committed), cell.Named("searched"), hook)

	h.selection = selection.NewEngine(spec.SelectionMode)
	h.selection.SetValidator(func(id types.ID) bool {
		_, ok := h.tree.Get().Item(id)
		return ok
	})
	h.states = cell.NewMemo(func() selection.StateMap {
		return selection.BulkStates(h.tree.Get(), h.selection.Selected())
	}, cell.Deps(h.tree, h.selection.Cell()), cell.Named("states"), hook)

	h.closers = append(h.closers, persistEffect(spec.Store, in.FilterState))
	return h, nil
}

func (h *Hierarchy[F, I, S]) computeSearch() []SearchRow[F, I] {
	q := h.query.committed.Get()
	if q == "" {
		return nil
	}
	limit := h.spec.Options.searchLimit()
	merged := search.Merge(h.folderIndex.Get().Search(q, limit), h.itemIndex.Get().Search(q, limit))

	tree := h.tree.Get()
	rows := make([]SearchRow[F, I], 0, len(merged))
	for _, m := range merged {
		row := SearchRow[F, I]{Kind: m.Kind, ID: m.ID, Score: m.Score}
		switch m.Kind {
		case search.KindFolder:
			f, ok := tree.Folder(m.ID)
			if !ok {
				continue
			}
			row.Folder, row.Field = f, m.Folder.Field
			row.Path = tree.PathOf(f.ID)
		case search.KindItem:
			it, ok := tree.Item(m.ID)
			if !ok {
				continue
			}
			f, _ := tree.Folder(it.FolderID)
			row.Item, row.Folder, row.Field = it, f, m.Item.Field
			row.Path = append(tree.PathOf(f.ID), f)
		}
		rows = append(rows, row)
		if limit > 0 && len(rows) == limit {
			break
		}
	}
	return rows
}

// Folders returns the raw folder cell
func (h *Hierarchy[F, I, S]) Folders() cell.Cell[[]F] { return h.in.Folders }

// Items returns the raw item cell
func (h *Hierarchy[F, I, S]) Items() cell.Cell[[]I] { return h.in.Items }

// FilterState returns the filter state cell
func (h *Hierarchy[F, I, S]) FilterState() cell.Cell[S] { return h.in.FilterState }

// Sort returns the sort spec cell
func (h *Hierarchy[F, I, S]) Sort() cell.Cell[types.SortSpec] { return h.in.Sort }

// Query returns the raw, undebounced query cell
func (h *Hierarchy[F, I, S]) Query() cell.Cell[string] { return h.in.Query }

// SetQuery writes the raw query
func (h *Hierarchy[F, I, S]) SetQuery(q string) { h.in.Query.Set(q) }

// SubmitQuery writes and commits the query immediately
func (h *Hierarchy[F, I, S]) SubmitQuery(q string) { h.query.submit(q) }

// CommittedQuery returns the debounced query
func (h *Hierarchy[F, I, S]) CommittedQuery() cell.Readable[string] { return h.query.committed }

// Tree returns the built tree stage
func (h *Hierarchy[F, I, S]) Tree() cell.Readable[*hierarchy.Tree[F, I]] { return h.tree }

// Roots returns the top level of the nested view
func (h *Hierarchy[F, I, S]) Roots() []*hierarchy.MetaFolder[F] { return h.tree.Get().Roots() }

// Searching reports whether the committed query is non-empty
func (h *Hierarchy[F, I, S]) Searching() bool { return h.query.committed.Get() != "" }

// SearchResults returns the merged rows for the committed query
func (h *Hierarchy[F, I, S]) SearchResults() cell.Readable[[]SearchRow[F, I]] { return h.searched }

// SearchFeed exposes the merged rows on their own. It needs at least one
// searchable column to render rows from.
func (h *Hierarchy[F, I, S]) SearchFeed() (cell.Readable[[]SearchRow[F, I]], error) {
	if len(h.spec.FolderColumns.SearchFields()) == 0 && len(h.spec.ItemColumns.SearchFields()) == 0 {
		return nil, treeqerrors.NewConfigError("search_feed", "", treeqerrors.ErrNoRows)
	}
	return h.searched, nil
}

// View returns the rows to render
func (h *Hierarchy[F, I, S]) View() View[F, I] {
	if h.Searching() {
		return View[F, I]{Searching: true, Rows: h.searched.Get()}
	}
	return View[F, I]{Roots: h.Roots()}
}

// Selection returns the selection engine
func (h *Hierarchy[F, I, S]) Selection() *selection.Engine { return h.selection }

// States returns the memoized per-folder states
func (h *Hierarchy[F, I, S]) States() cell.Readable[selection.StateMap] { return h.states }

// FolderState reads a folder's state from the bulk map
func (h *Hierarchy[F, I, S]) FolderState(ref selection.FolderRef[F]) selection.TriState {
	return h.states.Get().Get(ref.ID())
}

// PointFolderState walks the folder's subtree directly
func (h *Hierarchy[F, I, S]) PointFolderState(ref selection.FolderRef[F]) selection.TriState {
	return selection.FolderState(h.tree.Get(), ref, h.selection.Selected())
}

// ToggleFolder selects or clears a folder's items, see selection.ToggleFolder
func (h *Hierarchy[F, I, S]) ToggleFolder(ref selection.FolderRef[F], checked *bool, shallow bool) bool {
	return selection.ToggleFolder(h.selection, h.tree.Get(), ref, checked, shallow)
}

// VisibleColumns lists the item display columns including pseudo columns
func (h *Hierarchy[F, I, S]) VisibleColumns() []string {
	return h.spec.Config.VisibleColumns(h.spec.ItemColumns.IDs())
}

// AddCloser registers a release function run by Dispose
func (h *Hierarchy[F, I, S]) AddCloser(fn func()) {
	h.closers = append(h.closers, fn)
}

// Dispose stops timers, effects and subscriptions
func (h *Hierarchy[F, I, S]) Dispose() {
	h.query.close()
	for _, c := range h.closers {
		c()
	}
	h.closers = nil
	for _, m := range []interface{ Close() }{
		h.baseFolders, h.baseItems, h.filteredFolders, h.filteredItems,
		h.tree, h.folderIndex, h.itemIndex, h.searched, h.states,
	} {
		m.Close()
	}
}
