package selection

// TriState is the aggregate selection state of a folder's descendants
type TriState int

const (
	None TriState = iota
	Some
	All
)

func (s TriState) String() string {
	switch s {
	case None:
		return "none"
	case Some:
		return "some"
	case All:
		return "all"
	default:
		return "unknown"
	}
}

// Accumulator folds states left to right: any Some, or two states that
// disagree, settle the result at Some. An accumulator that saw nothing
// reports None.
type Accumulator struct {
	state TriState
	seen  bool
	done  bool
}

// Add folds s in and reports whether the result is settled
func (a *Accumulator) Add(s TriState) bool {
	if a.done {
		return true
	}
	switch {
	case s == Some:
		a.state, a.done = Some, true
	case !a.seen:
		a.state = s
	case s != a.state:
		a.state, a.done = Some, true
	}
	a.seen = true
	return a.done
}

// Seen reports whether any state was added
func (a *Accumulator) Seen() bool { return a.seen }

// Result returns the folded state
func (a *Accumulator) Result() TriState {
	if !a.seen {
		return None
	}
	return a.state
}

// Combine folds states with the accumulator rule
func Combine(states ...TriState) TriState {
	var acc Accumulator
	for _, s := range states {
		if acc.Add(s) {
			break
		}
	}
	return acc.Result()
}

func itemState(selected bool) TriState {
	if selected {
		return All
	}
	return None
}

// shallowState summarises n direct items of which k are selected. ok is
// false for folders without direct items.
func shallowState(k, n int) (s TriState, ok bool) {
	switch {
	case n == 0:
		return None, false
	case k == 0:
		return None, true
	case k == n:
		return All, true
	default:
		return Some, true
	}
}
