package query

import (
	"sort"

	"github.com/standardbeagle/treeq/internal/cell"
	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/search"
	"github.com/standardbeagle/treeq/internal/types"
)

// ListSpec describes a flat collection pipeline
type ListSpec[R types.Identifiable, S any] struct {
	Config  Config
	Columns Columns[R]
	Filters []Filter[R, S]
	// IndexOrder is the declared ordering field, applied when Config.IndexSorted
	// is set and no user sort is active.
	IndexOrder func(R) int
	Store      StateStore[S]
	Options
}

// ListInputs are the cells a List reads. Nil cells are created internally.
type ListInputs[R any, S any] struct {
	Records     cell.Cell[[]R]
	Blacklists  []cell.Readable[[]types.ID]
	FilterState cell.Cell[S]
	Sort        cell.Cell[types.SortSpec]
	Page        cell.Cell[types.PageState]
	Query       cell.Cell[string]
}

// PageInfo describes the active page window
type PageInfo struct {
	Index int `json:"index"`
	Size  int `json:"size"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// List is the reactive pipeline for a flat collection:
//
//	records -> filtered -> indexSorted -> sorted -> paged
//	                 \-> search index -> search results
type List[R types.Identifiable, S any] struct {
	spec   ListSpec[R, S]
	in     ListInputs[R, S]
	query  *queryInput
	filter func([]R, S) []R

	filtered    *cell.Memo[[]R]
	indexSorted *cell.Memo[[]R]
	sorted      *cell.Memo[[]R]
	paged       *cell.Memo[[]R]
	index       *cell.Memo[*search.Index[R]]
	searched    *cell.Memo[[]search.Hit[R]]

	closers []func()
}

// NewList builds the pipeline
func NewList[R types.Identifiable, S any](spec ListSpec[R, S], in ListInputs[R, S]) *List[R, S] {
	spec.Config = spec.Config.withDefaults()
	if in.Records == nil {
		in.Records = cell.NewValue[[]R](nil)
	}
	if in.FilterState == nil {
		var zero S
		in.FilterState = cell.NewValue(zero)
	}
	if in.Sort == nil {
		in.Sort = cell.NewValue(types.SortSpec{})
	}
	if in.Page == nil {
		in.Page = cell.NewValue(types.PageState{Size: spec.Config.PageSize})
	}

	l := &List[R, S]{
		spec:   spec,
		in:     in,
		filter: Compose(spec.Filters...),
	}
	l.query = newQueryInput(in.Query, spec.Options)
	l.in.Query = l.query.raw

	hook := cell.OnCompute(logStage)

	filterDeps := append(cell.Deps(in.Records, in.FilterState), observables(in.Blacklists)...)
	l.filtered = cell.NewMemo(l.computeFiltered, filterDeps, cell.Named("filtered"), hook)
	l.indexSorted = cell.NewMemo(l.computeIndexSorted, cell.Deps(l.filtered), cell.Named("indexSorted"), hook)
	l.sorted = cell.NewMemo(l.computeSorted, cell.Deps(l.indexSorted, in.Sort), cell.Named("sorted"), hook)
	l.paged = cell.NewMemo(l.computePaged, cell.Deps(l.sorted, in.Page), cell.Named("paged"), hook)

	ix := search.NewIndex(spec.Columns.SearchFields(), spec.Options.indexOptions()...)
	l.index = cell.NewMemo(func() *search.Index[R] {
		ix.Sync(l.filtered.Get())
		return ix
	}, cell.Deps(l.filtered), cell.Named("index"), hook)
	l.searched = cell.NewMemo(func() []search.Hit[R] {
		return l.index.Get().Search(l.query.committed.Get(), spec.Options.searchLimit())
	}, cell.Deps(l.index, l.query.committed), cell.Named("searched"), hook)

	l.closers = append(l.closers,
		cell.Effect(l.clampPage, l.filtered),
		persistEffect(spec.Store, in.FilterState),
	)
	// Reading once arms the effect: a memo only notifies on its clean->dirty edge.
	l.clampPage()
	return l
}

func (l *List[R, S]) computeFiltered() []R {
	out := RemoveBlacklisted(l.in.Records.Get(), blacklistSet(l.in.Blacklists))
	return l.filter(out, l.in.FilterState.Get())
}

func (l *List[R, S]) computeIndexSorted() []R {
	in := l.filtered.Get()
	if !l.spec.Config.IndexSorted || l.spec.IndexOrder == nil {
		return in
	}
	out := append([]R(nil), in...)
	sort.SliceStable(out, func(a, b int) bool {
		return l.spec.IndexOrder(out[a]) < l.spec.IndexOrder(out[b])
	})
	return out
}

func (l *List[R, S]) computeSorted() []R {
	in := l.indexSorted.Get()
	cmp := l.spec.Columns.Comparator(l.in.Sort.Get(), l.spec.Config.DefaultSortOrder)
	if cmp == nil {
		return in
	}
	out := append([]R(nil), in...)
	sort.SliceStable(out, func(a, b int) bool { return cmp(out[a], out[b]) < 0 })
	return out
}

func (l *List[R, S]) pageSize() int {
	if size := l.in.Page.Get().Size; size > 0 {
		return size
	}
	return l.spec.Config.PageSize
}

func (l *List[R, S]) computePaged() []R {
	in := l.sorted.Get()
	if !l.spec.Config.Paginated {
		return in
	}
	return paginate(in, l.in.Page.Get().Index, l.pageSize())
}

// clampPage pulls the page index back inside the filtered range. A page
// that is still valid is never written.
func (l *List[R, S]) clampPage() {
	if !l.spec.Config.Paginated {
		return
	}
	p := l.in.Page.Get()
	next := clampIndex(p.Index, len(l.filtered.Get()), l.pageSize())
	if next != p.Index {
		debug.LogPipeline("clamping page %d -> %d\n", p.Index, next)
		p.Index = next
		l.in.Page.Set(p)
	}
}

// Records returns the raw records cell
func (l *List[R, S]) Records() cell.Cell[[]R] { return l.in.Records }

// FilterState returns the filter state cell
func (l *List[R, S]) FilterState() cell.Cell[S] { return l.in.FilterState }

// Sort returns the sort spec cell
func (l *List[R, S]) Sort() cell.Cell[types.SortSpec] { return l.in.Sort }

// Page returns the page cell
func (l *List[R, S]) Page() cell.Cell[types.PageState] { return l.in.Page }

// Query returns the raw, undebounced query cell
func (l *List[R, S]) Query() cell.Cell[string] { return l.in.Query }

// SubmitQuery writes and commits the query immediately, for callers that
// are not typing
func (l *List[R, S]) SubmitQuery(q string) { l.query.submit(q) }

// CommittedQuery returns the debounced query
func (l *List[R, S]) CommittedQuery() cell.Readable[string] { return l.query.committed }

// SetQuery writes the raw query
func (l *List[R, S]) SetQuery(q string) { l.in.Query.Set(q) }

// Filtered returns the filtered stage
func (l *List[R, S]) Filtered() cell.Readable[[]R] { return l.filtered }

// Sorted returns the sorted stage
func (l *List[R, S]) Sorted() cell.Readable[[]R] { return l.sorted }

// Paged returns the paginated stage
func (l *List[R, S]) Paged() cell.Readable[[]R] { return l.paged }

// SearchResults returns the ranked search hits for the committed query
func (l *List[R, S]) SearchResults() cell.Readable[[]search.Hit[R]] { return l.searched }

// Searching reports whether the committed query is non-empty
func (l *List[R, S]) Searching() bool { return l.query.committed.Get() != "" }

// Display returns the search hits while searching, the current page otherwise
func (l *List[R, S]) Display() []R {
	if !l.Searching() {
		return l.paged.Get()
	}
	hits := l.searched.Get()
	out := make([]R, len(hits))
	for i, h := range hits {
		out[i] = h.Record
	}
	return out
}

// PageInfo describes pagination over the filtered records
func (l *List[R, S]) PageInfo() PageInfo {
	total := len(l.filtered.Get())
	size := l.pageSize()
	info := PageInfo{Index: l.in.Page.Get().Index, Size: size, Total: total}
	if !l.spec.Config.Paginated {
		info.Size = total
		info.Pages = 1
		return info
	}
	info.Pages = (total + size - 1) / size
	return info
}

// VisibleColumns lists the display columns including pseudo columns
func (l *List[R, S]) VisibleColumns() []string {
	return l.spec.Config.VisibleColumns(l.spec.Columns.IDs())
}

// AddCloser registers a release function run by Dispose, e.g. a source binding
func (l *List[R, S]) AddCloser(fn func()) {
	l.closers = append(l.closers, fn)
}

// Dispose stops timers, effects and subscriptions
func (l *List[R, S]) Dispose() {
	l.query.close()
	for _, c := range l.closers {
		c()
	}
	l.closers = nil
	for _, m := range []interface{ Close() }{l.filtered, l.indexSorted, l.sorted, l.paged, l.index, l.searched} {
		m.Close()
	}
}

func paginate[R any](in []R, index, size int) []R {
	start := index * size
	if start >= len(in) || start < 0 {
		return nil
	}
	end := start + size
	if end > len(in) {
		end = len(in)
	}
	return in[start:end:end]
}

// clampIndex returns the largest valid page index not above index
func clampIndex(index, total, size int) int {
	if index <= 0 || size <= 0 {
		return max(index, 0)
	}
	if index*size < total {
		return index
	}
	return max((total-1)/size, 0)
}
