package types

import (
	"fmt"
	"sort"
	"strings"
)

// Common engine-wide defaults
const (
	DefaultPageSize = 25

	// Query input shaping
	DefaultSearchDebounceMs = 300
	DefaultSearchThrottleMs = 1000

	DefaultSearchLimit = 100
)

// ID is an opaque record identity. The empty ID means "absent" (no parent, no folder).
type ID string

// IsZero reports whether the ID is absent
func (id ID) IsZero() bool {
	return id == ""
}

// Identifiable is implemented by every record the engine handles
type Identifiable interface {
	GetID() ID
}

// SortDirection is the direction applied on top of a registered comparator
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts "asc"/"desc" in any case. Empty defaults to asc.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return SortAsc, nil
	case "desc", "descending":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q (must be asc or desc)", s)
	}
}

// SortSpec names the active sort column and its direction. A zero SortSpec means "no user sort".
type SortSpec struct {
	Column    string        `json:"column" toml:"column"`
	Direction SortDirection `json:"direction" toml:"direction"`
}

// Active reports whether a column is selected
func (s SortSpec) Active() bool {
	return s.Column != ""
}

// PageState is the active page window
type PageState struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// IDSet is a set of identities
type IDSet map[ID]struct{}

// NewIDSet builds a set from the given ids
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership
func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same ids
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in lexical order, mostly for stable output
func (s IDSet) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnionIDs merges several id lists into one set. Used to combine blacklists.
func UnionIDs(lists ...[]ID) IDSet {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make(IDSet, n)
	for _, l := range lists {
		for _, id := range l {
			out[id] = struct{}{}
		}
	}
	return out
}
