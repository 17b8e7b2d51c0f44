package cell

// Memo is a derived value. It recomputes only on the first Get after one of
// its dependencies notified, so a chain of memos always observes a single
// consistent snapshot of the cells upstream of it.
//
// Watchers of a Memo fire once per clean->dirty transition: further upstream
// writes while the memo is still dirty are already covered by that
// notification.
type Memo[T any] struct {
	name       string
	compute    func() T
	value      T
	dirty      bool
	recomputes int
	watchers   watchers
	cancels    []func()
	onCompute  func(name string)
}

// MemoOption configures a Memo
type MemoOption func(*memoOptions)

type memoOptions struct {
	name      string
	onCompute func(name string)
}

// Named labels the memo in debug output
func Named(name string) MemoOption {
	return func(o *memoOptions) { o.name = name }
}

// OnCompute registers a hook called after each recompute
func OnCompute(fn func(name string)) MemoOption {
	return func(o *memoOptions) { o.onCompute = fn }
}

// NewMemo creates a memo over compute, invalidated whenever any of deps notifies
func NewMemo[T any](compute func() T, deps []Observable, opts ...MemoOption) *Memo[T] {
	var o memoOptions
	for _, opt := range opts {
		opt(&o)
	}
	m := &Memo[T]{
		name:      o.name,
		compute:   compute,
		dirty:     true,
		onCompute: o.onCompute,
	}
	for _, d := range deps {
		m.cancels = append(m.cancels, d.Watch(m.invalidate))
	}
	return m
}

// Deps is shorthand for building a dependency list
func Deps(deps ...Observable) []Observable {
	return deps
}

func (m *Memo[T]) invalidate() {
	if m.dirty {
		return
	}
	m.dirty = true
	m.watchers.notify()
}

// Get returns the memoized value, recomputing it first if stale
func (m *Memo[T]) Get() T {
	if m.dirty {
		// Clear first so a dependency write during compute re-dirties us.
		m.dirty = false
		m.value = m.compute()
		m.recomputes++
		if m.onCompute != nil {
			m.onCompute(m.name)
		}
	}
	return m.value
}

// Watch registers fn to run when the memo becomes stale
func (m *Memo[T]) Watch(fn func()) func() {
	return m.watchers.add(fn)
}

// Invalidate forces a recompute on the next Get ("cancellation" of the
// memoized value) and notifies watchers.
func (m *Memo[T]) Invalidate() {
	m.invalidate()
}

// Recomputes reports how many times compute ran
func (m *Memo[T]) Recomputes() int {
	return m.recomputes
}

// Close detaches the memo from its dependencies
func (m *Memo[T]) Close() {
	for _, c := range m.cancels {
		c()
	}
	m.cancels = nil
}
