package query

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/treeq/internal/cell"
	"github.com/standardbeagle/treeq/internal/clock"
	"github.com/standardbeagle/treeq/internal/types"
	"github.com/standardbeagle/treeq/testhelpers"
)

type rankState struct {
	MaxRank int
}

func rankFilter() Filter[testhelpers.Item, rankState] {
	return Filter[testhelpers.Item, rankState]{
		ID:       "max-rank",
		IsActive: func(s rankState) bool { return s.MaxRank > 0 },
		Keep:     func(i testhelpers.Item, s rankState) bool { return i.Rank < s.MaxRank },
	}
}

func itemColumns() Columns[testhelpers.Item] {
	return Columns[testhelpers.Item]{
		{
			ID:         "name",
			Value:      itemName,
			Searchable: itemName,
			Compare:    func(a, b testhelpers.Item) int { return strings.Compare(a.Name, b.Name) },
		},
		{
			ID:      "rank",
			Value:   func(i testhelpers.Item) string { return fmt.Sprint(i.Rank) },
			Compare: func(a, b testhelpers.Item) int { return a.Rank - b.Rank },
		},
	}
}

func numberedItems(n int) []testhelpers.Item {
	return testhelpers.NewTreeDataBuilder().AddItems("F", "item", n).Items()
}

func newTestList(t *testing.T, cfg Config, c *clock.Fake) *List[testhelpers.Item, rankState] {
	t.Helper()
	l := NewList(ListSpec[testhelpers.Item, rankState]{
		Config:  cfg,
		Columns: itemColumns(),
		Filters: []Filter[testhelpers.Item, rankState]{rankFilter()},
		Options: Options{Clock: c},
	}, ListInputs[testhelpers.Item, rankState]{})
	t.Cleanup(l.Dispose)
	return l
}

func TestListPageClampAfterFilter(t *testing.T) {
	l := newTestList(t, Config{Paginated: true, PageSize: 10}, clock.NewFake())
	l.Records().Set(numberedItems(25))
	l.Page().Set(types.PageState{Index: 2, Size: 10})
	require.Len(t, l.Paged().Get(), 5)

	l.FilterState().Set(rankState{MaxRank: 15})
	assert.Equal(t, 1, l.Page().Get().Index, "page 2 no longer exists with 15 records")
	assert.Len(t, l.Paged().Get(), 5)

	l.FilterState().Set(rankState{MaxRank: 1})
	assert.Equal(t, 0, l.Page().Get().Index)
}

func TestListPageClampNeverTouchesValidPage(t *testing.T) {
	l := newTestList(t, Config{Paginated: true, PageSize: 10}, clock.NewFake())
	l.Records().Set(numberedItems(25))

	writes := 0
	l.Page().Watch(func() { writes++ })

	l.FilterState().Set(rankState{MaxRank: 5})
	assert.Equal(t, 0, l.Page().Get().Index)
	l.FilterState().Set(rankState{MaxRank: -1})
	l.Records().Set(nil)
	assert.Equal(t, 0, l.Page().Get().Index, "never below zero")
	assert.Equal(t, 0, writes, "valid page must not be rewritten")
}

func TestListStagesAreMemoized(t *testing.T) {
	l := newTestList(t, Config{Paginated: true, PageSize: 10}, clock.NewFake())
	l.Records().Set(numberedItems(30))

	first := l.Sorted().Get()
	again := l.Sorted().Get()
	assert.Same(t, &first[0], &again[0])

	// a page change must not re-run filter or sort
	l.Page().Set(types.PageState{Index: 1, Size: 10})
	assert.Equal(t, types.ID("item-10"), l.Paged().Get()[0].ID)
	assert.Same(t, &first[0], &l.Sorted().Get()[0])
}

func TestListNoSortIsIdentity(t *testing.T) {
	l := newTestList(t, Config{}, clock.NewFake())
	records := numberedItems(3)
	l.Records().Set(records)
	assert.Same(t, &records[0], &l.Sorted().Get()[0])

	// unknown column is a silent no-op
	l.Sort().Set(types.SortSpec{Column: "missing"})
	assert.Same(t, &records[0], &l.Sorted().Get()[0])
}

func TestListSortDirections(t *testing.T) {
	l := newTestList(t, Config{}, clock.NewFake())
	records := testhelpers.NewTreeDataBuilder().
		AddItem("a", "F", "beta").
		AddItem("b", "F", "alpha").
		AddItem("c", "F", "gamma").
		Items()
	l.Records().Set(records)

	l.Sort().Set(types.SortSpec{Column: "name", Direction: types.SortAsc})
	assert.Equal(t, []types.ID{"b", "a", "c"}, idsOf(l.Sorted().Get()))

	l.Sort().Set(types.SortSpec{Column: "name", Direction: types.SortDesc})
	assert.Equal(t, []types.ID{"c", "a", "b"}, idsOf(l.Sorted().Get()))
	assert.Equal(t, []types.ID{"a", "b", "c"}, idsOf(records), "sort clones before sorting")
}

func TestListDefaultSortOrder(t *testing.T) {
	l := newTestList(t, Config{DefaultSortOrder: types.SortDesc}, clock.NewFake())
	l.Records().Set(numberedItems(3))
	l.Sort().Set(types.SortSpec{Column: "rank"})
	assert.Equal(t, []types.ID{"item-2", "item-1", "item-0"}, idsOf(l.Sorted().Get()))
}

func TestListIndexSorted(t *testing.T) {
	l := NewList(ListSpec[testhelpers.Item, rankState]{
		Config:     Config{IndexSorted: true},
		Columns:    itemColumns(),
		IndexOrder: func(i testhelpers.Item) int { return -i.Rank },
		Options:    Options{Clock: clock.NewFake()},
	}, ListInputs[testhelpers.Item, rankState]{})
	defer l.Dispose()

	l.Records().Set(numberedItems(3))
	assert.Equal(t, []types.ID{"item-2", "item-1", "item-0"}, idsOf(l.Sorted().Get()))

	l.Sort().Set(types.SortSpec{Column: "name", Direction: types.SortAsc})
	assert.Equal(t, []types.ID{"item-0", "item-1", "item-2"}, idsOf(l.Sorted().Get()), "user sort overrides index order")
}

func TestListBlacklists(t *testing.T) {
	a := cell.NewValue([]types.ID{"item-0"})
	b := cell.NewValue([]types.ID(nil))
	l := NewList(ListSpec[testhelpers.Item, rankState]{Options: Options{Clock: clock.NewFake()}},
		ListInputs[testhelpers.Item, rankState]{Blacklists: []cell.Readable[[]types.ID]{a, b}})
	defer l.Dispose()

	l.Records().Set(numberedItems(4))
	assert.Equal(t, []types.ID{"item-1", "item-2", "item-3"}, idsOf(l.Filtered().Get()))

	b.Set([]types.ID{"item-3"})
	assert.Equal(t, []types.ID{"item-1", "item-2"}, idsOf(l.Filtered().Get()))
}

func TestListSearchBranch(t *testing.T) {
	c := clock.NewFake()
	l := newTestList(t, Config{Paginated: true, PageSize: 2}, c)
	l.Records().Set(testhelpers.NewTreeDataBuilder().
		AddItem("1", "F", "apple pie").
		AddItem("2", "F", "banana bread").
		AddItem("3", "F", "apple crumble").
		Items())

	assert.False(t, l.Searching())
	assert.Len(t, l.Display(), 2, "paged view while not searching")

	l.SetQuery("apple")
	assert.False(t, l.Searching(), "query is debounced")
	c.Advance(300 * time.Millisecond)
	require.True(t, l.Searching())
	assert.ElementsMatch(t, []types.ID{"1", "3"}, idsOf(l.Display()))

	// search follows the filtered stage
	l.FilterState().Set(rankState{MaxRank: 1})
	assert.Equal(t, []types.ID{"1"}, idsOf(l.Display()))

	l.SetQuery("")
	assert.False(t, l.Searching(), "clearing is immediate")
	assert.Equal(t, "", l.CommittedQuery().Get())
}

func TestListSubmitQuerySkipsDebounce(t *testing.T) {
	c := clock.NewFake()
	l := newTestList(t, Config{}, c)
	l.Records().Set(testhelpers.NewTreeDataBuilder().
		AddItem("1", "F", "apple pie").
		AddItem("2", "F", "banana bread").
		Items())

	l.SubmitQuery("banana")
	require.True(t, l.Searching())
	assert.Equal(t, "banana", l.Query().Get())
	assert.Equal(t, []types.ID{"2"}, idsOf(l.Display()))
	assert.Equal(t, 0, c.Pending())
}

func TestListSearchSeesReplacedRecords(t *testing.T) {
	c := clock.NewFake()
	l := newTestList(t, Config{}, c)
	items := numberedItems(3)
	l.Records().Set(items)

	l.SubmitQuery("item")
	require.Len(t, l.Display(), 3)

	// same names, so the index keeps its text; only Rank changes
	next := make([]testhelpers.Item, len(items))
	for i, it := range items {
		it.Rank = 1000 + i
		next[i] = it
	}
	l.Records().Set(next)

	shown := l.Display()
	require.Len(t, shown, 3)
	for _, it := range shown {
		assert.GreaterOrEqual(t, it.Rank, 1000, "search results come from the latest records")
	}
}

func TestListPageInfoAndColumns(t *testing.T) {
	l := newTestList(t, Config{Paginated: true, PageSize: 10, Actions: []string{"open"}}, clock.NewFake())
	l.Records().Set(numberedItems(25))
	assert.Equal(t, PageInfo{Index: 0, Size: 10, Total: 25, Pages: 3}, l.PageInfo())
	assert.Equal(t, []string{"name", "rank", ActionsColumn}, l.VisibleColumns())

	flat := newTestList(t, Config{}, clock.NewFake())
	flat.Records().Set(numberedItems(25))
	assert.Len(t, flat.Paged().Get(), 25)
	assert.Equal(t, 1, flat.PageInfo().Pages)
}

type memStore struct {
	saved  []rankState
	loaded *rankState
}

func (m *memStore) Load() (rankState, bool) {
	if m.loaded == nil {
		return rankState{}, false
	}
	return *m.loaded, true
}

func (m *memStore) Save(s rankState) { m.saved = append(m.saved, s) }

func TestListPersistsFilterState(t *testing.T) {
	store := &memStore{loaded: &rankState{MaxRank: 2}}
	l := NewList(ListSpec[testhelpers.Item, rankState]{
		Filters: []Filter[testhelpers.Item, rankState]{rankFilter()},
		Store:   store,
		Options: Options{Clock: clock.NewFake()},
	}, ListInputs[testhelpers.Item, rankState]{})
	defer l.Dispose()

	l.Records().Set(numberedItems(5))
	assert.Len(t, l.Filtered().Get(), 2, "restored state applies")

	l.FilterState().Set(rankState{MaxRank: 4})
	assert.Equal(t, []rankState{{MaxRank: 4}}, store.saved)
}

func TestListDisposeStopsEverything(t *testing.T) {
	c := clock.NewFake()
	l := NewList(ListSpec[testhelpers.Item, rankState]{Options: Options{Clock: c}}, ListInputs[testhelpers.Item, rankState]{})
	closed := false
	l.AddCloser(func() { closed = true })

	l.SetQuery("pending")
	require.Equal(t, 2, c.Pending())
	l.Dispose()

	assert.True(t, closed)
	assert.Equal(t, 0, c.Pending())
	c.Advance(5 * time.Second)
	assert.Equal(t, "", l.CommittedQuery().Get())
}

func TestPaginateAndClamp(t *testing.T) {
	in := []int{0, 1, 2, 3, 4}
	assert.Equal(t, []int{2, 3}, paginate(in, 1, 2))
	assert.Equal(t, []int{4}, paginate(in, 2, 2))
	assert.Nil(t, paginate(in, 3, 2))

	page := paginate(in, 0, 2)
	_ = append(page, 99)
	assert.Equal(t, 2, in[2], "pages never alias past their end")

	assert.Equal(t, 1, clampIndex(2, 15, 10))
	assert.Equal(t, 0, clampIndex(0, 5, 10))
	assert.Equal(t, 0, clampIndex(3, 0, 10))
	assert.Equal(t, 2, clampIndex(2, 25, 10))
}

func idsOf[R types.Identifiable](rs []R) []types.ID {
	out := make([]types.ID, len(rs))
	for i, r := range rs {
		out[i] = r.GetID()
	}
	return out
}
