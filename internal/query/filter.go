package query

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/treeq/internal/debug"
	"github.com/standardbeagle/treeq/internal/types"
)

// Filter is one guarded predicate. IsActive decides, from the current filter
// state alone, whether the filter takes part at all; inactive filters are
// skipped without touching the records. A nil IsActive means always active.
type Filter[R, S any] struct {
	ID       string
	IsActive func(state S) bool
	Keep     func(r R, state S) bool
}

func (f Filter[R, S]) active(state S) bool {
	if f.Keep == nil {
		return false
	}
	return f.IsActive == nil || f.IsActive(state)
}

// Compose chains filters in order. When no filter is active the input slice
// itself is returned.
func Compose[R, S any](filters ...Filter[R, S]) func(records []R, state S) []R {
	return func(records []R, state S) []R {
		return applyFilters(records, func(r R) R { return r }, filters, state)
	}
}

// applyFilters runs filters against model(w) for each wrapper w. Active
// filters always produce a fresh slice; the input is never modified.
func applyFilters[W, R, S any](in []W, model func(W) R, filters []Filter[R, S], state S) []W {
	out := in
	for _, f := range filters {
		if !f.active(state) {
			continue
		}
		next := make([]W, 0, len(out))
		for _, w := range out {
			if f.Keep(model(w), state) {
				next = append(next, w)
			}
		}
		debug.LogPipeline("filter %s kept %d of %d\n", f.ID, len(next), len(out))
		out = next
	}
	return out
}

// RemoveBlacklisted drops records whose identity is in blacklist. The input
// slice is returned as is when nothing is removed.
func RemoveBlacklisted[R types.Identifiable](records []R, blacklist types.IDSet) []R {
	return removeIDs(records, func(r R) types.ID { return r.GetID() }, blacklist)
}

func removeIDs[W any](in []W, id func(W) types.ID, blacklist types.IDSet) []W {
	if len(blacklist) == 0 {
		return in
	}
	first := -1
	for i, w := range in {
		if blacklist.Has(id(w)) {
			first = i
			break
		}
	}
	if first < 0 {
		return in
	}
	out := make([]W, first, len(in)-1)
	copy(out, in[:first])
	for _, w := range in[first+1:] {
		if !blacklist.Has(id(w)) {
			out = append(out, w)
		}
	}
	return out
}

// GlobFilter keeps records whose value matches the doublestar pattern taken
// from the filter state. It is inactive while the pattern is empty or invalid.
func GlobFilter[R, S any](id string, value func(R) string, pattern func(S) string) Filter[R, S] {
	return Filter[R, S]{
		ID: id,
		IsActive: func(state S) bool {
			p := pattern(state)
			if p == "" {
				return false
			}
			if !doublestar.ValidatePattern(p) {
				debug.LogPipeline("filter %s: ignoring invalid pattern %q\n", id, p)
				return false
			}
			return true
		},
		Keep: func(r R, state S) bool {
			ok, err := doublestar.Match(pattern(state), value(r))
			return err == nil && ok
		},
	}
}

// EqualsFilter keeps records whose value equals the wanted value taken from
// the filter state. It is inactive while the wanted value is empty.
func EqualsFilter[R, S any](id string, value func(R) string, want func(S) string) Filter[R, S] {
	return Filter[R, S]{
		ID:       id,
		IsActive: func(state S) bool { return want(state) != "" },
		Keep:     func(r R, state S) bool { return value(r) == want(state) },
	}
}

// AnyOfFilter keeps records sharing at least one value with the wanted set.
// It is inactive while the wanted set is empty.
func AnyOfFilter[R, S any](id string, values func(R) []string, want func(S) []string) Filter[R, S] {
	return Filter[R, S]{
		ID:       id,
		IsActive: func(state S) bool { return len(want(state)) > 0 },
		Keep: func(r R, state S) bool {
			wanted := want(state)
			for _, v := range values(r) {
				for _, w := range wanted {
					if v == w {
						return true
					}
				}
			}
			return false
		},
	}
}
