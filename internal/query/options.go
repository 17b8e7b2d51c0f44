// Package query wires filter, sort, search and pagination stages into
// memoized reactive pipelines over flat lists and folder/item hierarchies.
//
// Every stage is a cell.Memo: it recomputes on the first read after one of
// its inputs changed and never mutates the slice it was given.
package query

import (
	"time"

	"github.com/standardbeagle/treeq/internal/cell"
	"github.com/standardbeagle/treeq/internal/clock"
	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/search"
	"github.com/standardbeagle/treeq/internal/types"
)

// StateStore persists filter state between runs. Load reports false when
// nothing usable was stored.
type StateStore[S any] interface {
	Load() (S, bool)
	Save(state S)
}

// Options are the runtime knobs shared by every pipeline
type Options struct {
	Clock    clock.Clock
	Dispatch func(func())
	Debounce time.Duration
	Throttle time.Duration

	Matcher     search.Matcher
	Normalizer  search.Normalizer
	SearchLimit int
	// CacheTTL bounds how long a query's hits are reused between index syncs
	CacheTTL time.Duration
}

func (o Options) debounceOptions() DebounceOptions {
	return DebounceOptions{
		Clock:    o.Clock,
		Debounce: o.Debounce,
		Throttle: o.Throttle,
		Dispatch: o.Dispatch,
	}
}

func (o Options) indexOptions() []search.IndexOption {
	opts := []search.IndexOption{search.WithNormalizer(o.Normalizer)}
	if o.Matcher != nil {
		opts = append(opts, search.WithMatcher(o.Matcher))
	}
	if o.CacheTTL > 0 {
		opts = append(opts, search.WithCacheTTL(o.CacheTTL))
	}
	return opts
}

func (o Options) searchLimit() int {
	if o.SearchLimit == 0 {
		return types.DefaultSearchLimit
	}
	return o.SearchLimit
}

// queryInput connects a raw query cell to a committed one through a Debouncer
type queryInput struct {
	raw       cell.Cell[string]
	committed *cell.Value[string]
	debouncer *Debouncer
	cancel    func()
}

func newQueryInput(raw cell.Cell[string], opts Options) *queryInput {
	if raw == nil {
		raw = cell.NewValue("")
	}
	q := &queryInput{
		raw:       raw,
		committed: cell.NewValue("", cell.WithEqual(func(a, b string) bool { return a == b })),
	}
	q.debouncer = NewDebouncer(q.committed.Set, opts.debounceOptions())
	q.cancel = raw.Watch(func() { q.debouncer.Push(raw.Get()) })
	if initial := raw.Get(); initial != "" {
		q.committed.Set(initial)
	}
	return q
}

// submit writes v and commits it without waiting for the debounce
func (q *queryInput) submit(v string) {
	q.raw.Set(v)
	q.debouncer.Flush()
	q.committed.Set(v)
}

func (q *queryInput) close() {
	q.cancel()
	q.debouncer.Close()
}

// blacklistSet unions the blacklist cells
func blacklistSet(cells []cell.Readable[[]types.ID]) types.IDSet {
	lists := make([][]types.ID, len(cells))
	for i, c := range cells {
		lists[i] = c.Get()
	}
	return types.UnionIDs(lists...)
}

func observables[T any](cells []cell.Readable[T]) []cell.Observable {
	out := make([]cell.Observable, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// persistEffect loads stored state into state once, then saves every change
func persistEffect[S any](store StateStore[S], state cell.Cell[S]) func() {
	if store == nil {
		return func() {}
	}
	if loaded, ok := store.Load(); ok {
		state.Set(loaded)
		debug.LogPipeline("restored persisted filter state\n")
	}
	return cell.Effect(func() { store.Save(state.Get()) }, state)
}

func logStage(name string) {
	debug.LogPipeline("recomputed %s\n", name)
}
